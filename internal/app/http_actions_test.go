package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pitchbay/api/internal/auth"
	"pitchbay/api/internal/search"
	"pitchbay/api/internal/store"
)

func doRequest(t *testing.T, server *HTTPServer, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	payload := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, payload
}

func bearerFor(t *testing.T, service *Service, authorID string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(service.cfg.JWTSecret), auth.Claims{
		Sub:      authorID,
		Name:     "Jane Doe",
		Username: "jane",
		JTI:      "jti-test",
		Exp:      time.Now().Add(time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return token
}

func TestLikeEndpointSuccessEnvelope(t *testing.T) {
	fake := &fakeStore{
		canWrite: true,
		getLikeStateFn: func(context.Context, string) (store.LikeState, error) {
			return store.LikeState{Likes: intPtr(0), Rev: "rev-1"}, nil
		},
	}
	service := newTestService(fake)
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups/s1/like", bearerFor(t, service, "u1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if payload["status"] != "SUCCESS" || payload["action"] != "LIKED" {
		t.Errorf("payload = %v", payload)
	}
}

func TestLikeEndpointWithoutSession(t *testing.T) {
	service := newTestService(&fakeStore{canWrite: true})
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups/s1/like", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["status"] != "ERROR" || payload["error"] != "Not signed in" {
		t.Errorf("payload = %v", payload)
	}
}

func TestLikeEndpointRejectsGarbageToken(t *testing.T) {
	service := newTestService(&fakeStore{canWrite: true})
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups/s1/like", "not.a.token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["error"] != "Not signed in" {
		t.Errorf("payload = %v", payload)
	}
}

func TestCreatePitchEndpointEnvelope(t *testing.T) {
	fake := &fakeStore{
		createStartupFn: func(_ context.Context, item store.Startup, _ string) (map[string]any, error) {
			return map[string]any{"_id": "st_1", "title": item.Title}, nil
		},
	}
	service := newTestService(fake)
	server := NewHTTPServer(service, "*")

	body := `{"title":"Acme","description":"d","category":"tech","link":"https://x/y.png","pitch":"p"}`
	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups", bearerFor(t, service, "u1"), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if payload["status"] != "SUCCESS" || payload["error"] != "" {
		t.Errorf("payload = %v", payload)
	}
	if payload["_id"] != "st_1" || payload["title"] != "Acme" {
		t.Errorf("created fields missing: %v", payload)
	}
}

func TestCreatePitchEndpointWithoutSession(t *testing.T) {
	service := newTestService(&fakeStore{})
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups", "", `{"title":"Acme"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["status"] != "ERROR" || payload["error"] != "Not signed in" {
		t.Errorf("payload = %v", payload)
	}
}

func TestCreateCommentEndpointEnvelope(t *testing.T) {
	fake := &fakeStore{
		createCommentFn: func(_ context.Context, startupID, authorID, text string, _ time.Time) (map[string]any, error) {
			if startupID != "s1" || authorID != "u1" || text != "hello" {
				t.Errorf("CreateComment called with %s %s %q", startupID, authorID, text)
			}
			return map[string]any{"_id": "cm_1"}, nil
		},
	}
	service := newTestService(fake)
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups/s1/comments", bearerFor(t, service, "u1"), `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if payload["status"] != "SUCCESS" || payload["_id"] != "cm_1" {
		t.Errorf("payload = %v", payload)
	}
}

func TestCreateCommentEndpointStoreFailure(t *testing.T) {
	fake := &fakeStore{
		createCommentFn: func(context.Context, string, string, string, time.Time) (map[string]any, error) {
			return nil, context.DeadlineExceeded
		},
	}
	service := newTestService(fake)
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodPost, "/api/startups/s1/comments", bearerFor(t, service, "u1"), `{"text":"hello"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["status"] != "ERROR" || payload["error"] != "Failed to create comment" {
		t.Errorf("payload = %v", payload)
	}
}

func TestListStartupsEndpoint(t *testing.T) {
	fake := &fakeStore{
		listStartupsFn: func(_ context.Context, search string) ([]store.Startup, error) {
			if search != "robots" {
				t.Errorf("search = %q", search)
			}
			return []store.Startup{{ID: "s1", Title: "RoboCo"}}, nil
		},
	}
	service := newTestService(fake)
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodGet, "/api/startups?search=robots", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	startups, ok := payload["startups"].([]any)
	if !ok || len(startups) != 1 {
		t.Errorf("payload = %v", payload)
	}
}

func TestStartupNotFoundUsesErrorSchema(t *testing.T) {
	service := newTestService(&fakeStore{})
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodGet, "/api/startups/ghost", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if payload["code"] != "NOT_FOUND" || payload["error"] != "Startup not found" {
		t.Errorf("payload = %v", payload)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	service := newTestService(&fakeStore{})
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK || payload["ok"] != true {
		t.Fatalf("health: status=%d payload=%v", rec.Code, payload)
	}

	rec, payload = doRequest(t, server, http.MethodGet, "/api/nope", "", "")
	if rec.Code != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Errorf("unknown route: status=%d payload=%v", rec.Code, payload)
	}
}

func TestSearchEndpointRejectsBadPaging(t *testing.T) {
	fake := &fakeStore{
		listStartupsFn: func(context.Context, string) ([]store.Startup, error) {
			t.Fatal("search should not reach the store with invalid paging")
			return nil, nil
		},
	}
	service := newTestService(fake)
	service.search = search.NewService(nil, search.NewGroqFallback(fake))
	server := NewHTTPServer(service, "*")

	for _, path := range []string{
		"/api/search?offset=-1",
		"/api/search?limit=-1",
		"/api/search?offset=abc",
		"/api/search?limit=abc",
	} {
		rec, payload := doRequest(t, server, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
		if payload["code"] != "VALIDATION_ERROR" {
			t.Errorf("%s: payload = %v", path, payload)
		}
	}
}

func TestSearchEndpointPagesResults(t *testing.T) {
	fake := &fakeStore{
		listStartupsFn: func(context.Context, string) ([]store.Startup, error) {
			return []store.Startup{
				{ID: "s1", Title: "RoboCo"},
				{ID: "s2", Title: "FinBot"},
			}, nil
		},
	}
	service := newTestService(fake)
	service.search = search.NewService(nil, search.NewGroqFallback(fake))
	server := NewHTTPServer(service, "*")

	rec, payload := doRequest(t, server, http.MethodGet, "/api/search?q=bot&offset=1&limit=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	results, _ := payload["results"].([]any)
	if payload["total"] != float64(2) || len(results) != 1 {
		t.Errorf("payload = %v", payload)
	}
}

func TestCORSAndRequestIDHeaders(t *testing.T) {
	service := newTestService(&fakeStore{})
	server := NewHTTPServer(service, "https://pitchbay.example")

	rec, _ := doRequest(t, server, http.MethodOptions, "/api/startups", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://pitchbay.example" {
		t.Errorf("allow-origin = %q", got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
