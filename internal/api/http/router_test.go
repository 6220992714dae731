package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/domain"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/ratelimit"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/pkg/netutil"
)

const testPassword = "p4ssword"

type testServer struct {
	app    *fiber.App
	tokens *auth.SessionTokenManager
}

func newTestServer(t *testing.T, loginLimit int) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	return newTestServerWithRedis(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}), loginLimit)
}

func newTestServerWithRedis(t *testing.T, client *redis.Client, loginLimit int) *testServer {
	t.Helper()
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, u := range []domain.User{
		{Email: "admin@example.com", Name: "Ada", IsAdmin: true},
		{Email: "olive@example.com", Name: "Olive"},
		{Email: "sam@example.com", Name: "Sam"},
	} {
		salt, hash, err := auth.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		u.Salt, u.Hash = salt, hash
		if err := store.Users().Create(ctx, &u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	sessionCfg := config.SessionConfig{Secret: "test-secret", TTLMinutes: 60, CookieName: "tdsid", KeyPrefix: "test"}
	sessions := repository.NewRedisSessionRepository(client, sessionCfg.KeyPrefix)
	authService := service.NewAuthService(sessionCfg, service.AuthDependencies{
		UserRepo:    store.Users(),
		SessionRepo: sessions,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets(),
		TextBlockRepo: store.TextBlocks(),
		Dispatcher:    events.NewInMemoryDispatcher(),
	})
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test:ratelimit", loginLimit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	// app.Test connects from 0.0.0.0; trusting it lets tests supply X-Forwarded-For.
	proxies, err := netutil.ParseTrustedProxies("0.0.0.0/0")
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second, "http://localhost:5173")
	RegisterRoutes(app, RouteConfig{
		Prefix:            "/api",
		Health:            handlers.NewHealthHandler("ticket-desk", "test", &persistence.Postgres{}, &persistence.Redis{Client: client}, metrics),
		Tickets:           handlers.NewTicketsHandler(ticketService),
		Sessions:          handlers.NewSessionsHandler(authService, limiter, proxies, handlers.CookieSettings{Name: "tdsid"}),
		SessionMiddleware: auth.NewSessionMiddleware(authService.TokenManager(), sessions, store.Users(), "tdsid", zap.NewNop()),
	})
	return &testServer{app: app, tokens: authService.TokenManager()}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, cookie string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "tdsid", Value: cookie})
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s %s body %q: %v", method, path, raw, err)
		}
	}
	return resp, env
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	resp, _ := s.do(t, http.MethodPost, "/api/sessions", "", map[string]string{"email": email, "password": testPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", email, resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "tdsid" {
			if !c.HttpOnly {
				t.Fatalf("session cookie must be HttpOnly")
			}
			return c.Value
		}
	}
	t.Fatalf("login %s: no session cookie", email)
	return ""
}

func (s *testServer) createTicket(t *testing.T, cookie string) int64 {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/tickets", cookie, map[string]string{
		"title":       "Laptop fan",
		"category":    "maintenance",
		"description": "Loud noise",
		"state":       "closed",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create ticket: expected 201, got %d", resp.StatusCode)
	}
	var ticket struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(env.Data, &ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket.State != "open" {
		t.Fatalf("created ticket must be open, got %s", ticket.State)
	}
	return ticket.ID
}

func ticketPath(id int64, suffix string) string {
	return "/api/tickets/" + strconv.FormatInt(id, 10) + suffix
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, 10)

	resp, _ := s.do(t, http.MethodGet, "/api/sessions/current", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", resp.StatusCode)
	}

	cookie := s.login(t, "olive@example.com")
	resp, env := s.do(t, http.MethodGet, "/api/sessions/current", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", resp.StatusCode)
	}
	var user map[string]any
	if err := json.Unmarshal(env.Data, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user["name"] != "Olive" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["hash"]; leaked {
		t.Fatalf("credential material leaked: %v", user)
	}

	resp, _ = s.do(t, http.MethodDelete, "/api/sessions/current", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodGet, "/api/sessions/current", cookie, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestLoginFailuresAndRateLimit(t *testing.T) {
	s := newTestServer(t, 2)

	resp, env := s.do(t, http.MethodPost, "/api/sessions", "", map[string]string{"email": "olive@example.com", "password": "nope"})
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %+v", resp.StatusCode, env.Error)
	}
	s.do(t, http.MethodPost, "/api/sessions", "", map[string]string{"email": "olive@example.com", "password": "nope"})

	resp, env = s.do(t, http.MethodPost, "/api/sessions", "", map[string]string{"email": "olive@example.com", "password": testPassword})
	if resp.StatusCode != http.StatusTooManyRequests || env.Error.Code != "RATE_LIMITED" {
		t.Fatalf("expected 429 RATE_LIMITED, got %d", resp.StatusCode)
	}
}

func TestTicketListIsPublic(t *testing.T) {
	s := newTestServer(t, 10)
	owner := s.login(t, "olive@example.com")
	s.createTicket(t, owner)

	resp, env := s.do(t, http.MethodGet, "/api/tickets", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list []map[string]any
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0]["owner_name"] != "Olive" {
		t.Fatalf("unexpected list: %v", list)
	}
}

func TestTicketAccessRules(t *testing.T) {
	s := newTestServer(t, 10)
	owner := s.login(t, "olive@example.com")
	stranger := s.login(t, "sam@example.com")
	admin := s.login(t, "admin@example.com")
	id := s.createTicket(t, owner)

	cases := []struct {
		name   string
		method string
		path   string
		cookie string
		body   any
		status int
	}{
		{"anonymous read", http.MethodGet, ticketPath(id, ""), "", nil, http.StatusUnauthorized},
		{"anonymous create", http.MethodPost, "/api/tickets", "", map[string]string{"title": "x"}, http.StatusUnauthorized},
		{"stranger read", http.MethodGet, ticketPath(id, ""), stranger, nil, http.StatusForbidden},
		{"stranger thread", http.MethodGet, ticketPath(id, "/textblocks"), stranger, nil, http.StatusForbidden},
		{"stranger reply", http.MethodPost, ticketPath(id, "/textblocks"), stranger, map[string]string{"content": "hi"}, http.StatusForbidden},
		{"stranger close", http.MethodPut, ticketPath(id, ""), stranger, map[string]string{"state": "closed"}, http.StatusForbidden},
		{"owner category", http.MethodPut, ticketPath(id, ""), owner, map[string]string{"category": "payment"}, http.StatusForbidden},
		{"bad state", http.MethodPut, ticketPath(id, ""), admin, map[string]string{"state": "archived"}, http.StatusBadRequest},
		{"empty update", http.MethodPut, ticketPath(id, ""), admin, map[string]string{}, http.StatusBadRequest},
		{"bad category on create", http.MethodPost, "/api/tickets", owner, map[string]string{"title": "t", "category": "misc", "description": "d"}, http.StatusBadRequest},
		{"unknown ticket", http.MethodGet, ticketPath(999, ""), admin, nil, http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/api/tickets/abc", admin, nil, http.StatusNotFound},
		{"owner read", http.MethodGet, ticketPath(id, ""), owner, nil, http.StatusOK},
		{"admin read", http.MethodGet, ticketPath(id, ""), admin, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := s.do(t, tc.method, tc.path, tc.cookie, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestCloseReopenAndReplies(t *testing.T) {
	s := newTestServer(t, 10)
	owner := s.login(t, "olive@example.com")
	admin := s.login(t, "admin@example.com")
	id := s.createTicket(t, owner)

	resp, _ := s.do(t, http.MethodPost, ticketPath(id, "/textblocks"), admin, map[string]string{"content": "On it"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin reply: expected 201, got %d", resp.StatusCode)
	}

	resp, env := s.do(t, http.MethodPut, ticketPath(id, ""), owner, map[string]string{"state": "closed"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner close: expected 200, got %d", resp.StatusCode)
	}
	var ticket map[string]any
	if err := json.Unmarshal(env.Data, &ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	if ticket["state"] != "closed" {
		t.Fatalf("expected closed, got %v", ticket["state"])
	}

	resp, _ = s.do(t, http.MethodPost, ticketPath(id, "/textblocks"), owner, map[string]string{"content": "again"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("reply on closed ticket: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPut, ticketPath(id, ""), owner, map[string]string{"state": "open"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner reopen: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPut, ticketPath(id, ""), admin, map[string]string{"state": "Open", "category": "Payment"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin reopen: expected 200, got %d", resp.StatusCode)
	}

	resp, env = s.do(t, http.MethodGet, ticketPath(id, "/textblocks"), owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list replies: expected 200, got %d", resp.StatusCode)
	}
	var blocks []struct {
		Content    string `json:"content"`
		AuthorName string `json:"author_name"`
	}
	if err := json.Unmarshal(env.Data, &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	if len(blocks) != 2 || blocks[0].Content != "Loud noise" || blocks[1].AuthorName != "Ada" {
		t.Fatalf("unexpected thread: %+v", blocks)
	}
}

func TestProbesAndUnknownRoutes(t *testing.T) {
	s := newTestServer(t, 10)

	resp, _ := s.do(t, http.MethodGet, "/health/ready", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", resp.StatusCode)
	}
	resp, env := s.do(t, http.MethodGet, "/api/nope", "", nil)
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("unknown route: expected 404 NOT_FOUND, got %d", resp.StatusCode)
	}
	if resp.Header.Get(observability.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	resp, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.StatusCode)
	}
}

func TestRedisOutageKeepsPublicRoutesAvailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := newTestServerWithRedis(t, client, 10)
	cookie, err := s.tokens.Sign("stale-session", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign session: %v", err)
	}

	resp, _ := s.do(t, http.MethodGet, "/api/tickets", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list with cookie: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodDelete, "/api/sessions/current", cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	resp, env := s.do(t, http.MethodGet, "/api/sessions/current", cookie, nil)
	if resp.StatusCode != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("current session: expected 401, got %d", resp.StatusCode)
	}
	resp, _ = s.do(t, http.MethodPost, "/api/tickets", cookie, map[string]string{
		"title": "t", "category": "maintenance", "description": "d",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("create: expected 401, got %d", resp.StatusCode)
	}
}

func (s *testServer) loginFrom(t *testing.T, forwardedFor, password string) int {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"email": "olive@example.com", "password": password})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("login from %s: %v", forwardedFor, err)
	}
	return resp.StatusCode
}

func TestLoginRateLimitIsPerForwardedClient(t *testing.T) {
	s := newTestServer(t, 1)

	if got := s.loginFrom(t, "203.0.113.5", "nope"); got != http.StatusUnauthorized {
		t.Fatalf("first client: expected 401, got %d", got)
	}
	if got := s.loginFrom(t, "203.0.113.6", "nope"); got != http.StatusUnauthorized {
		t.Fatalf("second client must have its own bucket, got %d", got)
	}
	if got := s.loginFrom(t, "203.0.113.5", testPassword); got != http.StatusTooManyRequests {
		t.Fatalf("first client again: expected 429, got %d", got)
	}
}
