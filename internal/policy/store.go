// Package policy reads the _policies registry and merges policy
// expressions into SQL predicates.
package policy

import (
	"context"
	"database/sql"
	"strings"

	"dynatable/internal/domain"
)

// Store reads policies from the _policies registry table. The engine never
// mutates policies; they are created by administrative statements and
// disabled rather than deleted when retired.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over the given connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const policyColumns = `id, name, description, is_enabled, table_name, operation, policy_type, using_expr, check_expr`

// PoliciesFor returns the enabled policies for a table and operation,
// matching the operation literally or via the "all" wildcard, ordered by
// id. Passing domain.OpAll returns every enabled policy on the table.
func (s *Store) PoliciesFor(ctx context.Context, table string, op domain.Operation) ([]domain.Policy, error) {
	query := `SELECT ` + policyColumns + `
		FROM _policies
		WHERE table_name = ? AND is_enabled = 1`
	args := []interface{}{table}
	if op != domain.OpAll {
		query += ` AND operation IN (?, 'all')`
		args = append(args, string(op))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.ErrCatalog(err, "load policies for %q", table)
	}
	defer rows.Close()

	var policies []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, domain.ErrCatalog(err, "scan policy for %q", table)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrCatalog(err, "load policies for %q", table)
	}
	return policies, nil
}

// HasAny reports whether the table has at least one enabled policy defined
// for any operation. The distinction drives the default-allow /
// default-deny split in the merge rule.
func (s *Store) HasAny(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM _policies WHERE table_name = ? AND is_enabled = 1`, table).Scan(&n)
	if err != nil {
		return false, domain.ErrCatalog(err, "count policies for %q", table)
	}
	return n > 0, nil
}

// Create inserts a new policy. At least one of UsingExpr/CheckExpr must be
// present; the registry's CHECK constraint enforces the same invariant.
func (s *Store) Create(ctx context.Context, p *domain.Policy) (*domain.Policy, error) {
	if p.UsingExpr == nil && p.CheckExpr == nil {
		return nil, domain.ErrValidation("policy %q: at least one of using_expr/check_expr is required", p.Name)
	}
	if !p.Operation.Valid() {
		return nil, domain.ErrValidation("policy %q: invalid operation %q", p.Name, p.Operation)
	}

	enabled := 0
	if p.IsEnabled {
		enabled = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO _policies (name, description, is_enabled, table_name, operation, policy_type, using_expr, check_expr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, enabled, p.TableName, string(p.Operation), string(p.Kind), p.UsingExpr, p.CheckExpr)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, domain.ErrConflict("policy %q already exists", p.Name)
		}
		return nil, domain.ErrCatalog(err, "create policy %q", p.Name)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, domain.ErrCatalog(err, "create policy %q", p.Name)
	}
	created := *p
	created.ID = id
	return &created, nil
}

// SetEnabled flips a policy's enable flag. Retired policies are disabled,
// never hard-removed.
func (s *Store) SetEnabled(ctx context.Context, name string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE _policies SET is_enabled = ? WHERE name = ?`, v, name)
	if err != nil {
		return domain.ErrCatalog(err, "update policy %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrCatalog(err, "update policy %q", name)
	}
	if n == 0 {
		return domain.ErrNotFound("policy %q not found", name)
	}
	return nil
}

// GetByName returns one policy regardless of its enable flag.
func (s *Store) GetByName(ctx context.Context, name string) (*domain.Policy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM _policies WHERE name = ?`, name)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("policy %q not found", name)
	}
	if err != nil {
		return nil, domain.ErrCatalog(err, "get policy %q", name)
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (domain.Policy, error) {
	var (
		p       domain.Policy
		enabled int
		op      string
		kind    string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &enabled, &p.TableName, &op, &kind, &p.UsingExpr, &p.CheckExpr)
	if err != nil {
		return domain.Policy{}, err
	}
	p.IsEnabled = enabled != 0
	p.Operation = domain.Operation(op)
	p.Kind = domain.PolicyKind(kind)
	return p, nil
}
