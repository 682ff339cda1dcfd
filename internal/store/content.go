package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pitchbay/api/internal/content"
)

// ContentStore implements the application's data operations on top of the
// hosted document store.
type ContentStore struct {
	client *content.Client
}

func NewContentStore(client *content.Client) *ContentStore {
	return &ContentStore{client: client}
}

// CanWrite reports whether the underlying client holds a write credential.
func (s *ContentStore) CanWrite() bool {
	return s.client.HasWriteToken()
}

func (s *ContentStore) fetchInto(ctx context.Context, query string, params map[string]any, target any) (bool, error) {
	raw, err := s.client.Fetch(ctx, query, params)
	if err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return false, fmt.Errorf("decode query result: %w", err)
	}
	return true, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func reference(id string) map[string]any {
	return map[string]any{"_type": "reference", "_ref": id}
}

func (s *ContentStore) ListStartups(ctx context.Context, search string) ([]Startup, error) {
	// The query references $search unconditionally, so an absent term is
	// bound as null rather than left out.
	params := map[string]any{"search": nil}
	if search != "" {
		params["search"] = search
	}
	var items []Startup
	if _, err := s.fetchInto(ctx, startupsQuery, params, &items); err != nil {
		return nil, fmt.Errorf("list startups: %w", err)
	}
	if items == nil {
		items = []Startup{}
	}
	return items, nil
}

func (s *ContentStore) GetStartup(ctx context.Context, startupID string) (Startup, error) {
	var item Startup
	found, err := s.fetchInto(ctx, startupByIDQuery, map[string]any{"id": startupID}, &item)
	if err != nil {
		return Startup{}, fmt.Errorf("get startup: %w", err)
	}
	if !found {
		return Startup{}, ErrNotFound
	}
	return item, nil
}

func (s *ContentStore) StartupExists(ctx context.Context, startupID string) (bool, error) {
	var id string
	found, err := s.fetchInto(ctx, startupExistsQuery, map[string]any{"id": startupID}, &id)
	if err != nil {
		return false, fmt.Errorf("check startup: %w", err)
	}
	return found && id != "", nil
}

func (s *ContentStore) GetStartupViews(ctx context.Context, startupID string) (int, error) {
	var item struct {
		Views int `json:"views"`
	}
	found, err := s.fetchInto(ctx, startupViewsQuery, map[string]any{"id": startupID}, &item)
	if err != nil {
		return 0, fmt.Errorf("get views: %w", err)
	}
	if !found {
		return 0, ErrNotFound
	}
	return item.Views, nil
}

func (s *ContentStore) IncrementViews(ctx context.Context, startupID string) error {
	err := s.client.Patch(startupID).
		SetIfMissing(map[string]any{"views": 0}).
		Inc("views", 1).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// GetLikeState reads the like slice of a startup. Likes stays nil when the
// stored field is absent or not a number, which callers repair via InitLikes.
func (s *ContentStore) GetLikeState(ctx context.Context, startupID string) (LikeState, error) {
	var item struct {
		Likes   json.RawMessage `json:"likes"`
		LikedBy []string        `json:"likedBy"`
		Rev     string          `json:"_rev"`
	}
	found, err := s.fetchInto(ctx, likeStateQuery, map[string]any{"id": startupID}, &item)
	if err != nil {
		return LikeState{}, fmt.Errorf("get like state: %w", err)
	}
	if !found {
		return LikeState{}, ErrNotFound
	}

	state := LikeState{LikedBy: item.LikedBy, Rev: item.Rev}
	if !isNull(item.Likes) {
		var likes int
		if err := json.Unmarshal(item.Likes, &likes); err == nil {
			state.Likes = &likes
		}
	}
	return state, nil
}

// InitLikes repairs a startup whose likes field is missing or malformed.
func (s *ContentStore) InitLikes(ctx context.Context, startupID string) error {
	err := s.client.Patch(startupID).
		Set(map[string]any{"likes": 0}).
		Commit(ctx)
	if err != nil {
		return fmt.Errorf("init likes: %w", err)
	}
	return nil
}

// AddLike appends the author to likedBy and bumps the counter in one patch,
// conditional on the revision read alongside the like state.
func (s *ContentStore) AddLike(ctx context.Context, startupID, authorID, rev string) error {
	return s.client.Patch(startupID).
		SetIfMissing(map[string]any{"likes": 0}).
		Inc("likes", 1).
		SetIfMissing(map[string]any{"likedBy": []any{}}).
		Append("likedBy", []any{reference(authorID)}).
		IfRevisionID(rev).
		Commit(ctx)
}

// RemoveLike drops the author's reference from likedBy and decrements the
// counter, conditional on the revision read alongside the like state.
func (s *ContentStore) RemoveLike(ctx context.Context, startupID, authorID, rev string) error {
	return s.client.Patch(startupID).
		Dec("likes", 1).
		SetIfMissing(map[string]any{"likedBy": []any{}}).
		Unset(fmt.Sprintf(`likedBy[_ref == %q]`, authorID)).
		IfRevisionID(rev).
		Commit(ctx)
}

// CreateStartup persists a new pitch document with zeroed counters.
func (s *ContentStore) CreateStartup(ctx context.Context, item Startup, authorID string) (map[string]any, error) {
	doc := map[string]any{
		"_type":       "startup",
		"title":       item.Title,
		"description": item.Description,
		"category":    item.Category,
		"image":       item.Image,
		"pitch":       item.Pitch,
		"slug": map[string]any{
			"_type":   "slug",
			"current": item.Slug.Current,
		},
		"author":  reference(authorID),
		"views":   0,
		"likes":   0,
		"likedBy": []any{},
	}
	created, err := s.client.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	return created.Fields, nil
}

func (s *ContentStore) CreateComment(ctx context.Context, startupID, authorID, text string, createdAt time.Time) (map[string]any, error) {
	doc := map[string]any{
		"_type":     "comment",
		"text":      text,
		"author":    reference(authorID),
		"startup":   reference(startupID),
		"createdAt": createdAt.UTC().Format(time.RFC3339),
	}
	created, err := s.client.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	return created.Fields, nil
}

func (s *ContentStore) ListComments(ctx context.Context, startupID string) ([]Comment, error) {
	var items []Comment
	if _, err := s.fetchInto(ctx, commentsByStartupQuery, map[string]any{"startupId": startupID}, &items); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if items == nil {
		items = []Comment{}
	}
	return items, nil
}

func (s *ContentStore) AuthorByID(ctx context.Context, authorID string) (Author, error) {
	var item Author
	found, err := s.fetchInto(ctx, authorByIDQuery, map[string]any{"id": authorID}, &item)
	if err != nil {
		return Author{}, fmt.Errorf("get author: %w", err)
	}
	if !found {
		return Author{}, ErrNotFound
	}
	return item, nil
}

func (s *ContentStore) AuthorByExternalID(ctx context.Context, externalID string) (Author, error) {
	var item Author
	found, err := s.fetchInto(ctx, authorByExternalIDQuery, map[string]any{"id": externalID}, &item)
	if err != nil {
		return Author{}, fmt.Errorf("get author by external id: %w", err)
	}
	if !found {
		return Author{}, ErrNotFound
	}
	return item, nil
}

func (s *ContentStore) AuthorByEmail(ctx context.Context, email string) (Author, error) {
	var item Author
	found, err := s.fetchInto(ctx, authorByEmailQuery, map[string]any{"email": email}, &item)
	if err != nil {
		return Author{}, fmt.Errorf("get author by email: %w", err)
	}
	if !found {
		return Author{}, ErrNotFound
	}
	return item, nil
}

func (s *ContentStore) CreateAuthor(ctx context.Context, author Author) (Author, error) {
	doc := map[string]any{
		"_type":        "author",
		"id":           author.ExternalID,
		"name":         author.Name,
		"username":     author.Username,
		"email":        author.Email,
		"image":        author.Image,
		"bio":          author.Bio,
		"passwordHash": author.PasswordHash,
	}
	created, err := s.client.Create(ctx, doc)
	if err != nil {
		return Author{}, fmt.Errorf("create author: %w", err)
	}
	author.ID = created.ID
	return author, nil
}

func (s *ContentStore) StartupsByAuthor(ctx context.Context, authorID string) ([]Startup, error) {
	var items []Startup
	if _, err := s.fetchInto(ctx, startupsByAuthorQuery, map[string]any{"id": authorID}, &items); err != nil {
		return nil, fmt.Errorf("list startups by author: %w", err)
	}
	if items == nil {
		items = []Startup{}
	}
	return items, nil
}

func (s *ContentStore) PlaylistBySlug(ctx context.Context, slug string) (Playlist, error) {
	var item Playlist
	found, err := s.fetchInto(ctx, playlistBySlugQuery, map[string]any{"slug": slug}, &item)
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist: %w", err)
	}
	if !found {
		return Playlist{}, ErrNotFound
	}
	return item, nil
}

// SearchStartups is the search fallback: a plain listing query with the
// match filter applied by the store itself.
func (s *ContentStore) SearchStartups(ctx context.Context, term string) ([]Startup, error) {
	return s.ListStartups(ctx, term)
}

// Ping verifies the content store answers queries.
func (s *ContentStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
