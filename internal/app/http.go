package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pitchbay/api/internal/auth"
	"pitchbay/api/internal/authpw"
	"pitchbay/api/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		session := s.resolveSession(r)
		if session == nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "name": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"authorId":      session.AuthorID,
			"name":          session.Name,
			"username":      session.Username,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        session.Token,
			"refreshToken": session.RefreshToken,
			"name":         session.Name,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.URL.Path == "/api/startups" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListStartups(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")))
			if err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"startups": items})
		case http.MethodPost:
			s.handleCreatePitch(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "startups" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
			return
		}
		item, err := s.service.GetStartup(r.Context(), parts[2])
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "startups" {
		startupID := parts[2]
		switch parts[3] {
		case "like":
			if r.Method == http.MethodPost {
				s.handleLike(w, r, startupID)
				return
			}
		case "views":
			switch r.Method {
			case http.MethodGet:
				views, err := s.service.GetViews(r.Context(), startupID)
				if err != nil {
					status, code, message := mapError(err)
					writeError(w, status, code, message)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"views": views})
				return
			case http.MethodPost:
				views, err := s.service.RecordView(r.Context(), startupID)
				if err != nil {
					status, code, message := mapError(err)
					writeError(w, status, code, message)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"views": views})
				return
			}
		case "comments":
			switch r.Method {
			case http.MethodGet:
				items, err := s.service.ListComments(r.Context(), startupID)
				if err != nil {
					status, code, message := mapError(err)
					writeError(w, status, code, message)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"comments": items})
				return
			case http.MethodPost:
				s.handleCreateComment(w, r, startupID)
				return
			}
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "authors" && r.Method == http.MethodGet {
		author, err := s.service.GetAuthor(r.Context(), parts[2])
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, author)
		return
	}

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "authors" && parts[3] == "startups" && r.Method == http.MethodGet {
		items, err := s.service.StartupsByAuthor(r.Context(), parts[2])
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"startups": items})
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "playlists" && r.Method == http.MethodGet {
		item, err := s.service.GetPlaylist(r.Context(), parts[2])
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"contentStore": map[string]any{"status": "ok"},
		"sessions":     map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["contentStore"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if err := s.service.PingSessions(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["sessions"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	session, author, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
		Username: body.Username,
	})
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"authorId":     author.ID,
		"name":         author.Name,
		"username":     author.Username,
		"expiresAt":    session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	session, author, err := s.service.SignIn(r.Context(), authpw.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"authorId":     author.ID,
		"name":         author.Name,
		"username":     author.Username,
		"expiresAt":    session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}
	offset := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	payload := s.service.Search(r.Context(), search.Query{
		Text:           q,
		FilterCategory: category,
		Limit:          limit,
		Offset:         offset,
	})
	writeJSON(w, http.StatusOK, payload)
}

// Action endpoints return the uniform envelope:
// {status: SUCCESS|ERROR, error?, action?, ...created fields}.

func (s *HTTPServer) handleCreatePitch(w http.ResponseWriter, r *http.Request) {
	var input PitchInput
	if err := decodeBody(r, &input); err != nil {
		writeActionError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.service.CreatePitch(r.Context(), s.resolveSession(r), input)
	if err != nil {
		status, _, message := mapError(err)
		writeActionError(w, status, message)
		return
	}

	payload := map[string]any{"status": "SUCCESS", "error": ""}
	for key, value := range created {
		payload[key] = value
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleLike(w http.ResponseWriter, r *http.Request, startupID string) {
	action, err := s.service.LikeStartup(r.Context(), s.resolveSession(r), startupID)
	if err != nil {
		status, _, message := mapError(err)
		writeActionError(w, status, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "SUCCESS",
		"action": string(action),
	})
}

func (s *HTTPServer) handleCreateComment(w http.ResponseWriter, r *http.Request, startupID string) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeActionError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.service.CreateComment(r.Context(), s.resolveSession(r), startupID, body.Text)
	if err != nil {
		status, _, message := mapError(err)
		writeActionError(w, status, message)
		return
	}

	payload := map[string]any{"status": "SUCCESS"}
	for key, value := range created {
		payload[key] = value
	}
	writeJSON(w, http.StatusOK, payload)
}

// resolveSession returns nil when the request carries no valid bearer token.
// The action layer decides what an absent session means.
func (s *HTTPServer) resolveSession(r *http.Request) *Session {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil {
		return nil
	}
	return &session
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = randomRequestID()
		}

		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":  code,
		"error": message,
	})
}

func writeActionError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status": "ERROR",
		"error":  message,
	})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}
