package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("store: not found")

// Slug is the URL-safe identifier object stored on startup and playlist
// documents.
type Slug struct {
	Type    string `json:"_type,omitempty"`
	Current string `json:"current"`
}

// Author is an identity document. ExternalID carries the id assigned by an
// external identity provider; ID is the content-store document id.
// PasswordHash is only projected by the auth queries.
type Author struct {
	ID           string `json:"_id"`
	ExternalID   string `json:"id,omitempty"`
	Name         string `json:"name"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	Image        string `json:"image,omitempty"`
	Bio          string `json:"bio,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Startup is a pitch document. LikedBy holds author document ids, projected
// flat from the stored reference array. Rev is the document revision used
// for conditional patches.
type Startup struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Image       string    `json:"image,omitempty"`
	Pitch       string    `json:"pitch,omitempty"`
	Slug        Slug      `json:"slug"`
	Author      *Author   `json:"author,omitempty"`
	Views       int       `json:"views"`
	Likes       int       `json:"likes"`
	LikedBy     []string  `json:"likedBy,omitempty"`
	CreatedAt   time.Time `json:"_createdAt,omitzero"`
	Rev         string    `json:"_rev,omitempty"`
}

// Comment references exactly one startup and one author; CreatedAt is set
// once at creation and never changes.
type Comment struct {
	ID        string    `json:"_id"`
	Text      string    `json:"text"`
	Author    *Author   `json:"author,omitempty"`
	StartupID string    `json:"startupId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikeState is the slice of a startup needed to toggle a like. Likes is nil
// when the field is absent or non-numeric in the stored document; Rev guards
// the follow-up patch against concurrent writers.
type LikeState struct {
	Likes   *int
	LikedBy []string
	Rev     string
}

// Liked reports whether authorID is already present in LikedBy.
func (s LikeState) Liked(authorID string) bool {
	for _, ref := range s.LikedBy {
		if ref == authorID {
			return true
		}
	}
	return false
}

// Playlist is a curated, named collection of startups.
type Playlist struct {
	ID       string    `json:"_id"`
	Title    string    `json:"title"`
	Slug     Slug      `json:"slug"`
	Startups []Startup `json:"select"`
}
