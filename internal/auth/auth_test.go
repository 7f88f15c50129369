package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"einkauf/internal/core"
)

func TestTokenRoundtrip(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long!", time.Hour)

	token, err := m.Generate(core.User{ID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	session, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if session.UserID != "u1" || session.Email != "a@example.com" {
		t.Errorf("session = %+v", session)
	}
}

func TestTokenRejection(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long!", time.Hour)
	other := NewJWTManager("a-different-secret-entirely-here!!!", time.Hour)

	token, err := m.Generate(core.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong secret: got %v", err)
	}
	if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v", err)
	}

	expired := NewJWTManager("test-secret-at-least-32-bytes-long!", -time.Minute)
	token, err = expired.Generate(core.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}
}

type memUserStorage struct {
	byEmail map[string]core.User
}

func (s *memUserStorage) CreateUser(_ context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = "u" + u.Email
	}
	if s.byEmail == nil {
		s.byEmail = make(map[string]core.User)
	}
	key := strings.ToLower(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return core.User{}, core.ErrDuplicateName
	}
	s.byEmail[key] = u
	return u, nil
}

func (s *memUserStorage) UserByEmail(_ context.Context, email string) (core.User, error) {
	u, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(&memUserStorage{})

	if _, err := a.Register(ctx, "a@example.com", "A", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password: got %v", err)
	}

	user, err := a.Register(ctx, "a@example.com", "A", "long-enough-password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash == "long-enough-password" {
		t.Error("password stored in the clear")
	}

	if _, err := a.Register(ctx, "A@Example.com", "A", "long-enough-password"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email: got %v", err)
	}

	got, err := a.Authenticate(ctx, "a@example.com", "long-enough-password")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated wrong user: %+v", got)
	}

	if _, err := a.Authenticate(ctx, "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v", err)
	}
}
