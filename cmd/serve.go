package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytfetch/internal/auth"
	"github.com/desertthunder/ytfetch/internal/repositories"
	"github.com/desertthunder/ytfetch/internal/server"
	"github.com/desertthunder/ytfetch/internal/services"
	"github.com/desertthunder/ytfetch/internal/shared"
	"github.com/desertthunder/ytfetch/internal/staging"
	"github.com/desertthunder/ytfetch/internal/tasks"
	"github.com/desertthunder/ytfetch/internal/web"
)

// defaultSessionSecret is the placeholder shipped in the example config.
const defaultSessionSecret = "change-me"

// components is the wired core shared by serve and fetch.
type components struct {
	db           *sql.DB
	storage      *staging.Storage
	downloads    *repositories.DownloadRepository
	users        *repositories.UserRepository
	accounts     *auth.Accounts
	materializer *tasks.Materializer
	gate         *tasks.Gate
}

func (c *components) Close() error {
	return c.db.Close()
}

// wire opens the database and storage and builds the core services. extractor may be nil to
// use yt-dlp as configured.
func (r *Runner) wire(ctx context.Context, config *shared.Config, extractor services.Extractor) (*components, error) {
	db, err := r.openDatabase(ctx, config)
	if err != nil {
		return nil, err
	}

	storage, err := staging.NewStorage(config.Storage.Dir)
	if err != nil {
		db.Close()
		return nil, err
	}

	if extractor == nil {
		extractor = services.NewYTDLPService(config.Extractor.YTDLPPath, config.Extractor.FFmpegPath, r.logger)
	}

	downloads := repositories.NewDownloadRepository(db)
	users := repositories.NewUserRepository(db)

	return &components{
		db:           db,
		storage:      storage,
		downloads:    downloads,
		users:        users,
		accounts:     auth.NewAccounts(users, r.logger),
		materializer: tasks.NewMaterializer(storage, extractor, downloads, config.Extractor.Timeout, r.logger),
		gate:         tasks.NewGate(storage, downloads, r.logger),
	}, nil
}

// Serve runs the web application until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Server.SessionSecret == defaultSessionSecret {
		r.logger.Warn("session secret is the example placeholder; set server.session_secret or YTFETCH_SESSION_SECRET")
	}

	addr := config.Server.Addr()
	if override := cmd.String("addr"); override != "" {
		addr = override
	}

	c, err := r.wire(ctx, config, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	app, err := web.New(web.Deps{
		Downloader: c.materializer,
		Gate:       c.gate,
		History:    c.downloads,
		Accounts:   c.accounts,
		Sessions:   server.NewSessions(config.Server.SessionSecret, config.Server.SessionTTL, config.Server.CookieSecure, r.logger),
		Limiter:    server.NewIPRateLimiter(config.Auth.RateLimit, config.Auth.RateBurst),
		Logger:     r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build web app: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("serving",
		"addr", addr,
		"storage", c.storage.Dir(),
		"database", config.Database.Path,
		"timeout", config.Extractor.Timeout,
	)
	return server.Run(ctx, addr, app.Handler(), r.logger)
}
