package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
)

func newAuthFixture(t *testing.T) (*AuthService, repository.SessionRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemoryStore()
	salt, hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := store.Users().Create(context.Background(), &domain.User{Email: "olive@example.com", Name: "Olive", Salt: salt, Hash: hash}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	sessions := repository.NewRedisSessionRepository(client, "test")
	svc := NewAuthService(config.SessionConfig{Secret: "secret", TTLMinutes: 30}, AuthDependencies{
		UserRepo:    store.Users(),
		SessionRepo: sessions,
	})
	return svc, sessions
}

func TestLoginOpensSession(t *testing.T) {
	svc, sessions := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.Login(ctx, "Olive@Example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.Name != "Olive" || result.User.Hash != "" || result.User.Salt != "" {
		t.Fatalf("expected sanitized user, got %+v", result.User)
	}

	sessionID, err := svc.TokenManager().Parse(result.Cookie)
	if err != nil {
		t.Fatalf("parse cookie: %v", err)
	}
	session, err := sessions.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.UserID != result.User.ID {
		t.Fatalf("session bound to %d, want %d", session.UserID, result.User.ID)
	}

	if err := svc.Logout(ctx, sessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := sessions.Get(ctx, sessionID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"olive@example.com", "wrong"},
		{"nobody@example.com", "hunter2"},
		{"", ""},
	} {
		_, err := svc.Login(ctx, tc.email, tc.password)
		expectStatus(t, err, http.StatusUnauthorized)
	}
}

func TestLoginUnknownEmailStillDerivesKey(t *testing.T) {
	svc, _ := newAuthFixture(t)
	var salts []string
	svc.verify = func(password, salt, hash string) bool {
		salts = append(salts, salt)
		return auth.VerifyPassword(password, salt, hash)
	}

	_, err := svc.Login(context.Background(), "nobody@example.com", "hunter2")
	expectStatus(t, err, http.StatusUnauthorized)
	if len(salts) != 1 || salts[0] != decoySalt {
		t.Fatalf("expected one verification against the decoy credential, got %v", salts)
	}

	_, err = svc.Login(context.Background(), "olive@example.com", "wrong")
	expectStatus(t, err, http.StatusUnauthorized)
	if len(salts) != 2 || salts[1] == decoySalt {
		t.Fatalf("expected known user verified against own salt, got %v", salts)
	}
}

func TestDecoyCredentialIsWellFormed(t *testing.T) {
	if !auth.VerifyPassword("correct horse", decoySalt, decoyHash) {
		t.Fatalf("decoy hash must be a real scrypt digest")
	}
}
