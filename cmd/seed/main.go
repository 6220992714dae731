// Seed loads accounts and sample tickets from a YAML fixture into Postgres.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/config"
	"github.com/spec-kit/ticket-desk/internal/observability"
	"github.com/spec-kit/ticket-desk/internal/persistence"
	"github.com/spec-kit/ticket-desk/internal/repository"
	"github.com/spec-kit/ticket-desk/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		filePath  string
		usersOnly bool
		migrate   bool
	)
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "seed/users.yaml", "path to the YAML fixture")
	flagSet.BoolVar(&usersOnly, "users-only", false, "seed accounts only, skip sample tickets")
	flagSet.BoolVar(&migrate, "migrate", true, "run SQL migrations before seeding")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required; the in-memory store is seeded at startup via APP_SEED_FILE")
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	fixture, err := seed.Load(filePath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if migrate {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool := pg.PoolHandle()
	result, err := seed.Apply(ctx, fixture, seed.Repositories{
		Users:      repository.NewUserRepository(pool),
		Tickets:    repository.NewTicketRepository(pool),
		TextBlocks: repository.NewTextBlockRepository(pool),
	}, !usersOnly, logger)
	if err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Int("users_created", result.UsersCreated),
		zap.Int("users_existing", result.UsersExisting),
		zap.Int("tickets_created", result.TicketsCreated))
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `seed loads users and sample tickets from a YAML fixture into Postgres.

Usage:
  seed [flags]

Passwords in the fixture are hashed before they are stored. Users that
already exist are left untouched; tickets are appended on every run.

Flags:
`)
	flagSet.PrintDefaults()
}
