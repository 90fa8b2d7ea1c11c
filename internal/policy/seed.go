package policy

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dynatable/internal/domain"
)

// SeedFile is the declarative policy file applied at startup. Policies are
// matched by name; existing ones are left untouched, so the file is safe
// to apply on every boot.
type SeedFile struct {
	Policies []SeedPolicy `yaml:"policies"`
}

// SeedPolicy is one policy declaration in the seed file.
type SeedPolicy struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Table       string  `yaml:"table"`
	Operation   string  `yaml:"operation"`
	Kind        string  `yaml:"kind,omitempty"` // permissive (default) or restrictive
	Using       *string `yaml:"using,omitempty"`
	Check       *string `yaml:"check,omitempty"`
	Disabled    bool    `yaml:"disabled,omitempty"`
}

// LoadSeedFile parses a YAML policy file.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return &f, nil
}

// Apply creates every policy from the file that does not already exist.
// Returns the number of policies created.
func (f *SeedFile) Apply(ctx context.Context, store *Store) (int, error) {
	created := 0
	for _, sp := range f.Policies {
		p, err := sp.toDomain()
		if err != nil {
			return created, err
		}

		if _, err := store.GetByName(ctx, p.Name); err == nil {
			continue // already present
		} else {
			var notFound *domain.NotFoundError
			if !errors.As(err, &notFound) {
				return created, err
			}
		}

		if _, err := store.Create(ctx, p); err != nil {
			return created, fmt.Errorf("apply policy %q: %w", p.Name, err)
		}
		created++
	}
	return created, nil
}

func (sp *SeedPolicy) toDomain() (*domain.Policy, error) {
	if sp.Name == "" || sp.Table == "" {
		return nil, domain.ErrValidation("policy declaration needs both name and table")
	}

	kind := domain.KindPermissive
	switch sp.Kind {
	case "", "permissive", "PERMISSIVE":
	case "restrictive", "RESTRICTIVE":
		kind = domain.KindRestrictive
	default:
		return nil, domain.ErrValidation("policy %q: unknown kind %q", sp.Name, sp.Kind)
	}

	p := &domain.Policy{
		Name:      sp.Name,
		IsEnabled: !sp.Disabled,
		TableName: sp.Table,
		Operation: domain.Operation(sp.Operation),
		Kind:      kind,
		UsingExpr: sp.Using,
		CheckExpr: sp.Check,
	}
	if sp.Description != "" {
		p.Description = &sp.Description
	}
	if !p.Operation.Valid() {
		return nil, domain.ErrValidation("policy %q: invalid operation %q", sp.Name, sp.Operation)
	}
	return p, nil
}
