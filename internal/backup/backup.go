// Package backup copies the SQLite database into the file store on a cron
// schedule.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"dynatable/internal/hook"
	"dynatable/internal/storage"
)

// Event is passed to OnBackup handlers after a successful backup.
type Event struct {
	Name string // stored file name
	Size int64  // bytes written
}

// Service snapshots the database file into a FileStore namespace.
type Service struct {
	dbPath   string
	store    storage.FileStore
	logger   *slog.Logger
	OnBackup *hook.Hook[Event]
}

// NewService creates a backup service for the database at dbPath.
func NewService(dbPath string, store storage.FileStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dbPath:   dbPath,
		store:    store,
		logger:   logger,
		OnBackup: hook.New[Event](logger),
	}
}

// Run performs one backup: the database file is read and uploaded under
// the "backups" namespace with a timestamped name. WAL mode keeps the main
// file consistent for readers, so a plain file read is a usable snapshot.
func (s *Service) Run(ctx context.Context) error {
	data, err := os.ReadFile(s.dbPath)
	if err != nil {
		return fmt.Errorf("read database %s: %w", s.dbPath, err)
	}

	name := fmt.Sprintf("%s-%s.sqlite",
		time.Now().UTC().Format("20060102T150405"),
		filepath.Base(s.dbPath))
	if err := s.store.Upload(ctx, "backups", name, data); err != nil {
		return fmt.Errorf("upload backup %s: %w", name, err)
	}

	s.logger.Info("backup complete", "name", name, "bytes", len(data))
	s.OnBackup.Trigger(&Event{Name: name, Size: int64(len(data))})
	return nil
}

// Schedule registers the backup on a cron spec (e.g. "0 3 * * *") and
// returns the started scheduler. Callers stop it on shutdown.
func (s *Service) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := s.Run(ctx); err != nil {
			s.logger.Error("scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
