package app

import (
	"context"
	"fmt"
	"log/slog"

	"dynatable/internal/policy"
)

// applyPolicySeed loads the declarative policy file and creates any
// policies not already present. Runs on every boot; matching by name keeps
// it idempotent.
func applyPolicySeed(ctx context.Context, store *policy.Store, path string, logger *slog.Logger) error {
	f, err := policy.LoadSeedFile(path)
	if err != nil {
		return fmt.Errorf("policy seed: %w", err)
	}
	created, err := f.Apply(ctx, store)
	if err != nil {
		return fmt.Errorf("policy seed: %w", err)
	}
	if created > 0 {
		logger.Info("policy seed applied", "file", path, "created", created)
	}
	return nil
}
