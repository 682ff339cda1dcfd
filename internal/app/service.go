package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"pitchbay/api/internal/auth"
	"pitchbay/api/internal/authpw"
	"pitchbay/api/internal/config"
	"pitchbay/api/internal/content"
	"pitchbay/api/internal/search"
	"pitchbay/api/internal/session"
	"pitchbay/api/internal/slugger"
	"pitchbay/api/internal/store"
	"pitchbay/api/internal/util"
)

// Session identifies the calling author for one request.
type Session struct {
	Token        string
	RefreshToken string
	AuthorID     string
	Name         string
	Username     string
	JTI          string
	ExpiresAt    time.Time
}

// PitchInput carries the form fields plus the separately supplied pitch body.
type PitchInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Link        string `json:"link"`
	Pitch       string `json:"pitch"`
}

// LikeAction is the outcome of a like toggle.
type LikeAction string

const (
	ActionLiked   LikeAction = "LIKED"
	ActionUnliked LikeAction = "UNLIKED"
)

// likeToggleAttempts bounds the optimistic-lock retry loop. A revision
// mismatch means another caller patched the startup between our read and
// write; the retry re-reads and recomputes the toggle.
const likeToggleAttempts = 3

type dataStore interface {
	ListStartups(ctx context.Context, search string) ([]store.Startup, error)
	GetStartup(ctx context.Context, startupID string) (store.Startup, error)
	StartupExists(ctx context.Context, startupID string) (bool, error)
	GetStartupViews(ctx context.Context, startupID string) (int, error)
	IncrementViews(ctx context.Context, startupID string) error
	GetLikeState(ctx context.Context, startupID string) (store.LikeState, error)
	InitLikes(ctx context.Context, startupID string) error
	AddLike(ctx context.Context, startupID, authorID, rev string) error
	RemoveLike(ctx context.Context, startupID, authorID, rev string) error
	CreateStartup(ctx context.Context, item store.Startup, authorID string) (map[string]any, error)
	CreateComment(ctx context.Context, startupID, authorID, text string, createdAt time.Time) (map[string]any, error)
	ListComments(ctx context.Context, startupID string) ([]store.Comment, error)
	AuthorByID(ctx context.Context, authorID string) (store.Author, error)
	AuthorByExternalID(ctx context.Context, externalID string) (store.Author, error)
	AuthorByEmail(ctx context.Context, email string) (store.Author, error)
	CreateAuthor(ctx context.Context, author store.Author) (store.Author, error)
	StartupsByAuthor(ctx context.Context, authorID string) ([]store.Startup, error)
	PlaylistBySlug(ctx context.Context, slug string) (store.Playlist, error)
	SearchStartups(ctx context.Context, term string) ([]store.Startup, error)
	CanWrite() bool
	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions session.Store
	search   *search.Service
	passwd   *authpw.Service
	now      func() time.Time
}

func New(cfg config.Config, dataStore *store.ContentStore, sessions session.Store, searchService *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		search:   searchService,
		passwd:   authpw.NewService(dataStore),
		now:      time.Now,
	}
}

// Bootstrap warms the search index from the content store.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}

// --- Sessions ---

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, store.Author, error) {
	author, err := s.passwd.SignUp(ctx, req)
	if errors.Is(err, authpw.ErrEmailTaken) {
		return Session{}, store.Author{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered")
	}
	if err != nil {
		return Session{}, store.Author{}, domainError(http.StatusBadRequest, "SIGNUP_FAILED", err.Error())
	}
	sess, err := s.issueSession(ctx, author)
	if err != nil {
		return Session{}, store.Author{}, err
	}
	return sess, author, nil
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, store.Author, error) {
	author, err := s.passwd.SignIn(ctx, req)
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return Session{}, store.Author{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	}
	if err != nil {
		return Session{}, store.Author{}, storeError("sign in", err)
	}
	sess, err := s.issueSession(ctx, author)
	if err != nil {
		return Session{}, store.Author{}, err
	}
	return sess, author, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	authorID, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid")
	}
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, storeError("revoke refresh token", err)
	}
	author, err := s.store.AuthorByID(ctx, authorID)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid")
	}
	return s.issueSession(ctx, author)
}

func (s *Service) issueSession(ctx context.Context, author store.Author) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      author.ID,
		Name:     author.Name,
		Username: author.Username,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, domainError(http.StatusInternalServerError, "SERVER_ERROR", "Failed to issue token")
	}

	refresh := util.NewToken("rft")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), author.ID, refreshExpires); err != nil {
		return Session{}, storeError("save refresh token", err)
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		AuthorID:     author.ID,
		Name:         author.Name,
		Username:     author.Username,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AuthorID:  claims.Sub,
		Name:      claims.Name,
		Username:  claims.Username,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- Actions ---

// CreatePitch persists a new startup document for the signed-in author and
// returns the created fields for the success envelope.
func (s *Service) CreatePitch(ctx context.Context, caller *Session, input PitchInput) (map[string]any, error) {
	if caller == nil {
		return nil, errNotSignedIn()
	}

	item := store.Startup{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Image:       input.Link,
		Pitch:       input.Pitch,
		Slug:        store.Slug{Current: slugger.FromTitle(input.Title)},
	}

	created, err := s.store.CreateStartup(ctx, item, caller.AuthorID)
	if err != nil {
		return nil, storeError("create startup", err)
	}

	if s.search != nil {
		record := search.Record(item)
		if id, ok := created["_id"].(string); ok {
			record.ID = id
		}
		record.AuthorName = caller.Name
		s.search.IndexStartup(record)
	}
	return created, nil
}

// LikeStartup toggles the (startup, author) like state. The read returns the
// document revision and both patches commit conditionally on it, so a
// concurrent toggle forces a re-read instead of drifting the counter away
// from the likedBy membership.
func (s *Service) LikeStartup(ctx context.Context, caller *Session, startupID string) (LikeAction, error) {
	if strings.TrimSpace(startupID) == "" {
		return "", errInvalidStartupID()
	}
	if caller == nil {
		return "", errNotSignedIn()
	}
	if !s.store.CanWrite() {
		return "", errWriteTokenMissing()
	}

	exists, err := s.store.StartupExists(ctx, startupID)
	if err != nil {
		return "", storeError("Failed to update like status", err)
	}
	if !exists {
		return "", errStartupNotFound()
	}

	for attempt := 0; attempt < likeToggleAttempts; attempt++ {
		state, err := s.store.GetLikeState(ctx, startupID)
		if errors.Is(err, store.ErrNotFound) {
			return "", errStartupNotFound()
		}
		if err != nil {
			return "", storeError("Failed to update like status", err)
		}

		if state.Likes == nil {
			// Self-heal a missing or malformed counter, then re-read so the
			// revision guard covers the repair.
			if err := s.store.InitLikes(ctx, startupID); err != nil {
				return "", storeError("Failed to update like status", err)
			}
			state, err = s.store.GetLikeState(ctx, startupID)
			if err != nil {
				return "", storeError("Failed to update like status", err)
			}
			if state.Likes == nil {
				zero := 0
				state.Likes = &zero
			}
		}

		if state.Liked(caller.AuthorID) {
			err = s.store.RemoveLike(ctx, startupID, caller.AuthorID, state.Rev)
			if errors.Is(err, content.ErrRevisionMismatch) {
				continue
			}
			if err != nil {
				return "", storeError("Failed to unlike", err)
			}
			return ActionUnliked, nil
		}

		err = s.store.AddLike(ctx, startupID, caller.AuthorID, state.Rev)
		if errors.Is(err, content.ErrRevisionMismatch) {
			continue
		}
		if err != nil {
			return "", storeError("Failed to like", err)
		}
		return ActionLiked, nil
	}

	return "", domainError(http.StatusConflict, "CONFLICT", "Failed to update like status: too many concurrent updates")
}

// CreateComment persists a comment referencing the startup and the caller,
// timestamped with the server clock.
func (s *Service) CreateComment(ctx context.Context, caller *Session, startupID, text string) (map[string]any, error) {
	if caller == nil {
		return nil, errNotSignedIn()
	}

	created, err := s.store.CreateComment(ctx, startupID, caller.AuthorID, text, s.now())
	if err != nil {
		if errors.Is(err, content.ErrNoWriteToken) {
			return nil, errWriteTokenMissing()
		}
		return nil, domainError(http.StatusBadGateway, "STORE_ERROR", "Failed to create comment")
	}
	return created, nil
}

// --- Reads ---

func (s *Service) ListStartups(ctx context.Context, searchTerm string) ([]store.Startup, error) {
	items, err := s.store.ListStartups(ctx, searchTerm)
	if err != nil {
		return nil, storeError("list startups", err)
	}
	return items, nil
}

func (s *Service) GetStartup(ctx context.Context, startupID string) (store.Startup, error) {
	item, err := s.store.GetStartup(ctx, startupID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Startup{}, errStartupNotFound()
	}
	if err != nil {
		return store.Startup{}, storeError("get startup", err)
	}
	return item, nil
}

func (s *Service) GetViews(ctx context.Context, startupID string) (int, error) {
	views, err := s.store.GetStartupViews(ctx, startupID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, errStartupNotFound()
	}
	if err != nil {
		return 0, storeError("get views", err)
	}
	return views, nil
}

// RecordView bumps the view counter and returns the new total.
func (s *Service) RecordView(ctx context.Context, startupID string) (int, error) {
	exists, err := s.store.StartupExists(ctx, startupID)
	if err != nil {
		return 0, storeError("record view", err)
	}
	if !exists {
		return 0, errStartupNotFound()
	}
	if err := s.store.IncrementViews(ctx, startupID); err != nil {
		return 0, storeError("record view", err)
	}
	return s.GetViews(ctx, startupID)
}

func (s *Service) ListComments(ctx context.Context, startupID string) ([]store.Comment, error) {
	items, err := s.store.ListComments(ctx, startupID)
	if err != nil {
		return nil, storeError("list comments", err)
	}
	return items, nil
}

// GetAuthor resolves by content-store id first, then by the external
// identity id the document carries.
func (s *Service) GetAuthor(ctx context.Context, authorID string) (store.Author, error) {
	author, err := s.store.AuthorByID(ctx, authorID)
	if errors.Is(err, store.ErrNotFound) {
		author, err = s.store.AuthorByExternalID(ctx, authorID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return store.Author{}, domainError(http.StatusNotFound, "NOT_FOUND", "Author not found")
	}
	if err != nil {
		return store.Author{}, storeError("get author", err)
	}
	return author, nil
}

func (s *Service) StartupsByAuthor(ctx context.Context, authorID string) ([]store.Startup, error) {
	items, err := s.store.StartupsByAuthor(ctx, authorID)
	if err != nil {
		return nil, storeError("list startups by author", err)
	}
	return items, nil
}

func (s *Service) GetPlaylist(ctx context.Context, slug string) (store.Playlist, error) {
	item, err := s.store.PlaylistBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return store.Playlist{}, domainError(http.StatusNotFound, "NOT_FOUND", "Playlist not found")
	}
	if err != nil {
		return store.Playlist{}, storeError("get playlist", err)
	}
	return item, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	return s.search.Search(ctx, q)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}
