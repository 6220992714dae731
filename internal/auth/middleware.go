package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/repository"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller for one request.
type Principal struct {
	SessionID string
	User      domain.User
}

// SessionMiddleware resolves the session cookie into a Principal. Requests
// without a usable cookie continue anonymously; RequireAuthenticated decides
// whether that is acceptable. Store failures are logged and also treated as
// anonymous, so public routes keep working while Redis is unavailable.
type SessionMiddleware struct {
	tokens     *SessionTokenManager
	sessions   repository.SessionRepository
	users      repository.UserRepository
	cookieName string
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware. A nil logger discards output.
func NewSessionMiddleware(tokens *SessionTokenManager, sessions repository.SessionRepository, users repository.UserRepository, cookieName string, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{tokens: tokens, sessions: sessions, users: users, cookieName: cookieName, logger: logger}
}

// Handle loads the principal when the cookie names a live session.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return c.Next()
	}

	sessionID, err := m.tokens.Parse(raw)
	if err != nil {
		return c.Next()
	}

	ctx := c.UserContext()
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("session lookup failed, continuing anonymously", zap.Error(err))
		}
		return c.Next()
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("session user lookup failed, continuing anonymously",
				zap.Int64("user_id", session.UserID), zap.Error(err))
		}
		return c.Next()
	}

	c.Locals(principalKey, &Principal{SessionID: session.ID, User: user.Sanitized()})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}
