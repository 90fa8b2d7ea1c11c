// Package app wires the application's services together from the provided
// config and database handles, so cmd/server and cmd/cli share one
// construction path.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"dynatable/internal/auth"
	"dynatable/internal/backup"
	"dynatable/internal/catalog"
	"dynatable/internal/config"
	"dynatable/internal/engine"
	"dynatable/internal/hook"
	"dynatable/internal/policy"
	"dynatable/internal/storage"
)

// Deps holds the external dependencies main() must provide: config, the
// database pool pair, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// ServeEvent is passed to OnServe handlers right before the HTTP server
// starts accepting connections.
type ServeEvent struct {
	Addr string
}

// TerminateEvent is passed to OnTerminate handlers during graceful
// shutdown.
type TerminateEvent struct {
	Reason string
}

// App is the fully wired application.
type App struct {
	Catalog  *catalog.Reader
	Policies *policy.Store
	Engine   *engine.Engine
	Auth     *auth.Service
	Store    storage.FileStore
	Backup   *backup.Service

	OnServe     *hook.Hook[ServeEvent]
	OnTerminate *hook.Hook[TerminateEvent]
}

// New wires all services from the provided deps and applies the policy
// seed file when one is configured.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := catalog.NewReader(deps.ReadDB)
	pol := policy.NewStore(deps.WriteDB)
	eng := engine.New(deps.ReadDB, deps.WriteDB, cat, pol, logger.With("component", "engine"))

	users := auth.NewUserRepo(deps.WriteDB)
	authSvc := auth.NewService(users, []byte(cfg.JWTSecret),
		cfg.TokenIssuer, cfg.TokenAudience, cfg.AccessTTL, cfg.RefreshTTL)

	store, err := newFileStore(cfg)
	if err != nil {
		return nil, err
	}
	backupSvc := backup.NewService(cfg.DBPath, store, logger.With("component", "backup"))

	a := &App{
		Catalog:     cat,
		Policies:    pol,
		Engine:      eng,
		Auth:        authSvc,
		Store:       store,
		Backup:      backupSvc,
		OnServe:     hook.New[ServeEvent](logger),
		OnTerminate: hook.New[TerminateEvent](logger),
	}

	if cfg.PolicyFile != "" {
		if err := applyPolicySeed(ctx, pol, cfg.PolicyFile, logger); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// newFileStore picks the S3 store when fully configured, the local
// directory store otherwise.
func newFileStore(cfg *config.Config) (storage.FileStore, error) {
	if cfg.HasS3Config() {
		return storage.NewS3Store(storage.S3Options{
			KeyID:    *cfg.S3KeyID,
			Secret:   *cfg.S3Secret,
			Endpoint: *cfg.S3Endpoint,
			Region:   *cfg.S3Region,
			Bucket:   *cfg.S3Bucket,
		}), nil
	}
	return storage.NewLocalStore(cfg.StorageDir)
}
