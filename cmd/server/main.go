package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"dynatable/internal/api"
	"dynatable/internal/app"
	"dynatable/internal/config"
	internaldb "dynatable/internal/db"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// writeDB: single-connection pool for serialized writes (WAL +
	// txlock=immediate). readDB: concurrent read pool.
	writeDB, readDB, err := internaldb.OpenPair(cfg.DBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	a, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if cfg.BackupSchedule != "" {
		scheduler, err := a.Backup.Schedule(ctx, cfg.BackupSchedule)
		if err != nil {
			return err
		}
		defer scheduler.Stop()
		logger.Info("backups scheduled", "spec", cfg.BackupSchedule)
	}

	handler := api.NewHandler(a.Engine, a.Auth, logger.With("component", "api"))
	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: handler.Router(api.RouterConfig{
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:       cfg.RateLimitRPS,
			RateLimitBurst:     cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.OnServe.Trigger(&app.ServeEvent{Addr: cfg.ListenAddr})
		logger.Info("listening", "addr", cfg.ListenAddr)
		logger.Info("try it", "cmd", "curl http://"+curlHostForListenAddr(cfg.ListenAddr)+"/healthz")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.OnTerminate.Trigger(&app.TerminateEvent{Reason: "shutdown signal"})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// curlHostForListenAddr turns a listen address into something curl can
// dial: wildcard and empty hosts become localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	case "::1":
		host = "[::1]"
	default:
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return host + ":" + port
}
