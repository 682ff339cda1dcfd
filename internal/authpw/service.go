// Package authpw provides email/password authentication for authors.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pitchbay/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AuthorStore is the slice of the data store auth needs.
type AuthorStore interface {
	AuthorByEmail(ctx context.Context, email string) (store.Author, error)
	CreateAuthor(ctx context.Context, author store.Author) (store.Author, error)
}

type Service struct {
	store AuthorStore
}

func NewService(store AuthorStore) *Service {
	return &Service{store: store}
}

type SignUpRequest struct {
	Email    string
	Password string
	Name     string
	Username string
}

// SignUp creates a new author document keyed by email.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.Author, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" {
		return store.Author{}, errors.New("email, password, and name are required")
	}
	if len(req.Password) < 8 {
		return store.Author{}, errors.New("password must be at least 8 characters")
	}

	if _, err := s.store.AuthorByEmail(ctx, email); err == nil {
		return store.Author{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Author{}, fmt.Errorf("lookup author: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.Author{}, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	author, err := s.store.CreateAuthor(ctx, store.Author{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return store.Author{}, err
	}
	author.PasswordHash = ""
	return author, nil
}

type SignInRequest struct {
	Email    string
	Password string
}

// SignIn verifies credentials against the stored hash.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.Author, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	author, err := s.store.AuthorByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.Author{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.Author{}, fmt.Errorf("lookup author: %w", err)
	}
	if author.PasswordHash == "" {
		return store.Author{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(author.PasswordHash), []byte(req.Password)) != nil {
		return store.Author{}, ErrInvalidCredentials
	}
	author.PasswordHash = ""
	return author, nil
}
