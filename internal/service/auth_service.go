package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util"
)

// Unknown emails are checked against this credential so both failure paths
// pay for one key derivation.
const (
	decoySalt = "5f2b7c9a1d3e4f60"
	decoyHash = "4748918e5bcf5bed2dbf9c367a235f99"
)

// AuthService coordinates login and logout.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenMgr *auth.SessionTokenManager
	ttl      time.Duration
	verify   func(password, salt, hash string) bool
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
}

// LoginResult is a freshly established session.
type LoginResult struct {
	User      domain.User
	Cookie    string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.SessionConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:    deps.UserRepo,
		sessions: deps.SessionRepo,
		tokenMgr: auth.NewSessionTokenManager(cfg.Secret),
		ttl:      cfg.TTL(),
		verify:   auth.VerifyPassword,
	}
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.verify(password, decoySalt, decoyHash)
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, apperrors.MapError(err)
	}
	if !s.verify(password, user.Salt, user.Hash) {
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	session, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	cookie, err := s.tokenMgr.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &LoginResult{User: user.Sanitized(), Cookie: cookie, ExpiresAt: session.ExpiresAt}, nil
}

// Logout drops the session. Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return apperrors.MapError(s.sessions.Delete(ctx, sessionID))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.SessionTokenManager {
	return s.tokenMgr
}
