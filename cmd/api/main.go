package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-desk/internal/api/http"
	"github.com/spec-kit/ticket-desk/internal/api/http/handlers"
	"github.com/spec-kit/ticket-desk/internal/auth"
	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/ratelimit"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/seed"
	"github.com/spec-kit/ticket-desk/internal/service"
	"github.com/spec-kit/ticket-desk/internal/worker"
	"github.com/spec-kit/ticket-desk/pkg/netutil"
)

type repositories struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	textBlocks repository.TextBlockRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := buildRepositories(ctx, cfg, pg, logger)
	sessionRepo := repository.NewRedisSessionRepository(redis.Client, cfg.Session.KeyPrefix)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), logger)

	authService := service.NewAuthService(cfg.Session, service.AuthDependencies{
		UserRepo:    repos.users,
		SessionRepo: sessionRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    repos.tickets,
		TextBlockRepo: repos.textBlocks,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	sessionMiddleware := auth.NewSessionMiddleware(authService.TokenManager(), sessionRepo, repos.users, cfg.Session.CookieName, logger)

	var limiter handlers.LoginLimiter
	if window := cfg.RateLimit.LoginWindow(); window > 0 {
		fixed, err := ratelimit.NewFixedWindowLimiter(redis.Client, cfg.Session.KeyPrefix+":ratelimit", cfg.RateLimit.LoginLimit, window)
		if err != nil {
			logger.Fatal("failed to build login limiter", zap.Error(err))
		}
		limiter = fixed
	}

	proxies, err := netutil.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		logger.Fatal("invalid HTTP_TRUSTED_PROXIES", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.CORS.AllowOrigins)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Prefix:  cfg.App.APIPrefix,
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Sessions: handlers.NewSessionsHandler(authService, limiter, proxies, handlers.CookieSettings{
			Name:   cfg.Session.CookieName,
			Secure: cfg.App.IsProduction(),
		}),
		SessionMiddleware: sessionMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// buildRepositories picks Postgres when a pool is configured and the
// in-memory store otherwise. The in-memory store is seeded from APP_SEED_FILE.
func buildRepositories(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) repositories {
	if !pg.Enabled() {
		logger.Warn("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		repos := repositories{users: store.Users(), tickets: store.Tickets(), textBlocks: store.TextBlocks()}
		if cfg.App.SeedFile != "" {
			fixture, err := seed.Load(cfg.App.SeedFile)
			if err != nil {
				logger.Fatal("failed to load seed fixture", zap.Error(err))
			}
			if _, err := seed.Apply(ctx, fixture, seed.Repositories{
				Users:      repos.users,
				Tickets:    repos.tickets,
				TextBlocks: repos.textBlocks,
			}, true, logger); err != nil {
				logger.Fatal("failed to seed in-memory store", zap.Error(err))
			}
		}
		return repos
	}
	pool := pg.PoolHandle()
	return repositories{
		users:      repository.NewUserRepository(pool),
		tickets:    repository.NewTicketRepository(pool),
		textBlocks: repository.NewTextBlockRepository(pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
