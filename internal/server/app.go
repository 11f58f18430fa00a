// Package server initializes and runs the authentication server: it loads
// the signing key pair, connects storage backends, seeds the bootstrap user,
// and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/medpoint/authsvc/internal/logging"
	"github.com/medpoint/authsvc/internal/server/config"
	"github.com/medpoint/authsvc/internal/server/denylist"
	"github.com/medpoint/authsvc/internal/server/httpapi"
	"github.com/medpoint/authsvc/internal/server/keys"
	"github.com/medpoint/authsvc/internal/server/repositories/repomanager"
	"github.com/medpoint/authsvc/internal/server/services"
	"github.com/medpoint/authsvc/internal/server/token"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pair, err := keys.Load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	var dl denylist.Denylist
	if cfg.RedisAddr != "" {
		rdl := denylist.NewRedisDenylist(cfg.RedisAddr, cfg.RedisPassword)
		if err := rdl.Ping(ctx); err != nil {
			return nil, fmt.Errorf("denylist backend unreachable: %w", err)
		}
		dl = rdl
	} else {
		logger.Warn(ctx, "no denylist backend configured: refresh tokens cannot be revoked before expiry")
		dl = denylist.Noop{}
	}

	if !cfg.CookieSecure {
		logger.Warn(ctx, "refresh cookie Secure flag is disabled: acceptable only behind HTTPS-terminating deployments for local development")
	}

	authService := services.NewAuthService(db, rm, token.NewCodec(pair), dl, cfg)

	if cfg.SeedUsername != "" {
		if err := authService.SeedUser(ctx, cfg.SeedUsername, cfg.SeedEmail, cfg.SeedPassword); err != nil {
			return nil, fmt.Errorf("seeding bootstrap user: %w", err)
		}
	}

	httpServer := httpapi.NewServer(logger, authService, cfg)

	return &App{config: cfg, logger: logger, db: db, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err.Error())
	}
}
