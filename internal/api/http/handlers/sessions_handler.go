package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-desk/internal/api/dto"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/pkg/netutil"
	apperrors "github.com/spec-kit/ticket-desk/pkg/util"
)

// LoginLimiter throttles login attempts per client key.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// CookieSettings controls the session cookie attributes.
type CookieSettings struct {
	Name   string
	Secure bool
}

// SessionsHandler exposes login, current-user and logout endpoints.
type SessionsHandler struct {
	auth    *service.AuthService
	limiter LoginLimiter
	proxies *netutil.TrustedProxies
	cookie  CookieSettings
}

// NewSessionsHandler constructs handler. A nil limiter disables throttling.
// Forwarding headers count toward the limiter key only from trusted proxies.
func NewSessionsHandler(authService *service.AuthService, limiter LoginLimiter, proxies *netutil.TrustedProxies, cookie CookieSettings) *SessionsHandler {
	return &SessionsHandler{auth: authService, limiter: limiter, proxies: proxies, cookie: cookie}
}

// Login handles POST /sessions.
func (h *SessionsHandler) Login(c *fiber.Ctx) error {
	if h.limiter != nil && !h.limiter.Allow(c.UserContext(), "login:"+netutil.ClientIP(c, h.proxies)) {
		return apperrors.NewTooManyRequests("too many login attempts, try again later")
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewUnauthorized("invalid email or password")
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Cookie,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": userResponse(result.User)})
}

// Current handles GET /sessions/current.
func (h *SessionsHandler) Current(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": userResponse(principal.User)})
}

// Logout handles DELETE /sessions/current. It succeeds without a session.
func (h *SessionsHandler) Logout(c *fiber.Ctx) error {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		if err := h.auth.Logout(c.UserContext(), principal.SessionID); err != nil {
			return err
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"data": fiber.Map{}})
}

func userResponse(user domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	}
}
