package authpw

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pitchbay/api/internal/store"
)

type fakeAuthors struct {
	byEmail map[string]store.Author
	created []store.Author
}

func newFakeAuthors() *fakeAuthors {
	return &fakeAuthors{byEmail: map[string]store.Author{}}
}

func (f *fakeAuthors) AuthorByEmail(_ context.Context, email string) (store.Author, error) {
	author, ok := f.byEmail[email]
	if !ok {
		return store.Author{}, store.ErrNotFound
	}
	return author, nil
}

func (f *fakeAuthors) CreateAuthor(_ context.Context, author store.Author) (store.Author, error) {
	author.ID = "au_1"
	f.byEmail[author.Email] = author
	f.created = append(f.created, author)
	return author, nil
}

func TestSignUpCreatesAuthor(t *testing.T) {
	authors := newFakeAuthors()
	service := NewService(authors)

	author, err := service.SignUp(context.Background(), SignUpRequest{
		Email:    "  Jane@Example.COM ",
		Password: "hunter22hunter",
		Name:     "Jane Doe",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if author.ID != "au_1" {
		t.Errorf("ID = %q", author.ID)
	}
	if author.PasswordHash != "" {
		t.Error("returned author should not carry the hash")
	}
	if len(authors.created) != 1 {
		t.Fatalf("created = %v", authors.created)
	}

	stored := authors.created[0]
	if stored.Email != "jane@example.com" {
		t.Errorf("email should be normalized, got %q", stored.Email)
	}
	if stored.Username != "jane" {
		t.Errorf("username should default to the email local part, got %q", stored.Username)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22hunter")) != nil {
		t.Error("stored hash does not match the password")
	}
}

func TestSignUpValidation(t *testing.T) {
	service := NewService(newFakeAuthors())

	cases := []SignUpRequest{
		{Email: "", Password: "hunter22hunter", Name: "Jane"},
		{Email: "jane@example.com", Password: "", Name: "Jane"},
		{Email: "jane@example.com", Password: "hunter22hunter", Name: ""},
		{Email: "jane@example.com", Password: "short", Name: "Jane"},
	}
	for _, req := range cases {
		if _, err := service.SignUp(context.Background(), req); err == nil {
			t.Errorf("SignUp(%+v) should fail", req)
		}
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	authors := newFakeAuthors()
	service := NewService(authors)

	req := SignUpRequest{Email: "jane@example.com", Password: "hunter22hunter", Name: "Jane"}
	if _, err := service.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}
	if _, err := service.SignUp(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	authors := newFakeAuthors()
	service := NewService(authors)

	if _, err := service.SignUp(context.Background(), SignUpRequest{
		Email: "jane@example.com", Password: "hunter22hunter", Name: "Jane",
	}); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	author, err := service.SignIn(context.Background(), SignInRequest{
		Email: "JANE@example.com", Password: "hunter22hunter",
	})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if author.ID != "au_1" || author.PasswordHash != "" {
		t.Errorf("author = %+v", author)
	}

	if _, err := service.SignIn(context.Background(), SignInRequest{
		Email: "jane@example.com", Password: "wrong-password",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := service.SignIn(context.Background(), SignInRequest{
		Email: "nobody@example.com", Password: "hunter22hunter",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
