// Package engine executes policy-gated CRUD against arbitrary tables.
//
// Per call it borrows the table descriptor from the catalog reader and the
// applicable policies from the policy store, builds one parameterized
// statement, and executes it. Writes that combine row selection, value
// validation, and mutation run inside a single transaction so a failed
// check predicate leaves no partial effect.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"dynatable/internal/catalog"
	"dynatable/internal/domain"
	"dynatable/internal/policy"
	"dynatable/internal/qb"
)

// Engine is the dynamic table access engine. Stateless between calls; the
// catalog and policy store it reads from are shared across concurrent
// requests without engine-held locks.
type Engine struct {
	readDB   *sql.DB
	writeDB  *sql.DB
	catalog  *catalog.Reader
	policies *policy.Store
	logger   *slog.Logger
}

// New creates an Engine. Reads go through readDB; writeDB carries the
// transactional write path. The catalog reader and policy store should be
// backed by the read pool as well.
func New(readDB, writeDB *sql.DB, cat *catalog.Reader, pol *policy.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{readDB: readDB, writeDB: writeDB, catalog: cat, policies: pol, logger: logger}
}

// Describe returns the canonical descriptor of a table.
func (e *Engine) Describe(ctx context.Context, table string) (*domain.TableDescriptor, error) {
	return e.catalog.Describe(ctx, table)
}

// ListTables returns the user tables visible in the catalog.
func (e *Engine) ListTables(ctx context.Context) ([]string, error) {
	return e.catalog.ListTables(ctx)
}

// predicate loads and merges the policies applicable to one operation.
func (e *Engine) predicate(ctx context.Context, table string, op domain.Operation) (policy.Predicate, error) {
	hasAny, err := e.policies.HasAny(ctx, table)
	if err != nil {
		return policy.Predicate{}, err
	}
	if !hasAny {
		return policy.Predicate{}, nil
	}
	pols, err := e.policies.PoliciesFor(ctx, table, op)
	if err != nil {
		return policy.Predicate{}, err
	}
	return policy.Merge(pols, op, true), nil
}

// prepare resolves the descriptor and merged predicate for one call and
// verifies that every supplied column exists on the table.
func (e *Engine) prepare(ctx context.Context, table string, op domain.Operation, columnSets ...map[string]domain.Param) (*domain.TableDescriptor, policy.Predicate, error) {
	td, err := e.catalog.Describe(ctx, table)
	if err != nil {
		return nil, policy.Predicate{}, err
	}
	for _, set := range columnSets {
		for name := range set {
			if td.Column(name) == nil {
				return nil, policy.Predicate{}, domain.ErrValidation("unknown column %q on table %q", name, table)
			}
		}
	}
	pred, err := e.predicate(ctx, table, op)
	if err != nil {
		return nil, policy.Predicate{}, err
	}
	return td, pred, nil
}

// List returns rows visible under the merged select predicate, each as a
// self-describing JSON document. Policy denial shows up as an empty result
// set, indistinguishable from a table with no matching rows.
func (e *Engine) List(ctx context.Context, table string, filters map[string]interface{}, limit, offset int) ([]json.RawMessage, error) {
	mapped := domain.MapFields(filters)
	td, pred, err := e.prepare(ctx, table, domain.OpSelect, mapped)
	if err != nil {
		return nil, err
	}

	stmt, err := qb.Select(td, pred, mapped, limit, offset)
	if err != nil {
		return nil, err
	}

	rows, err := e.readDB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	records := []json.RawMessage{}
	for rows.Next() {
		var rec string
		if err := rows.Scan(&rec); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		records = append(records, json.RawMessage(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return records, nil
}

// Get returns a single row matching the filters, or NotFound. A row hidden
// by policy is reported the same way as a missing one.
func (e *Engine) Get(ctx context.Context, table string, filters map[string]interface{}) (json.RawMessage, error) {
	records, err := e.List(ctx, table, filters, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrNotFound("record not found in %q", table)
	}
	return records[0], nil
}

// Create inserts one row and returns it as a JSON document. When a check
// predicate applies, it is validated inside the same transaction and a
// violation rolls the insert back, so the failed write is never
// observable.
func (e *Engine) Create(ctx context.Context, table string, fields map[string]interface{}) (json.RawMessage, error) {
	mapped := domain.MapFields(fields)
	td, pred, err := e.prepare(ctx, table, domain.OpInsert, mapped)
	if err != nil {
		return nil, err
	}

	stmt, err := qb.Insert(td, mapped)
	if err != nil {
		return nil, err
	}

	tx, err := e.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		record string
		rid    int64
	)
	if err := tx.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&record, &rid); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}

	if pred.Check != "" {
		if err := e.runCheckGuard(ctx, tx, td, pred.Check, []int64{rid}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	return json.RawMessage(record), nil
}

// Update mutates the rows visible under the merged using-predicate that
// match the filters, then validates the resulting values against the check
// predicate. Returns the number of rows updated; rows hidden by policy are
// silently out of reach.
func (e *Engine) Update(ctx context.Context, table string, fields, filters map[string]interface{}) (int64, error) {
	mappedFields := domain.MapFields(fields)
	mappedFilters := domain.MapFields(filters)
	td, pred, err := e.prepare(ctx, table, domain.OpUpdate, mappedFields, mappedFilters)
	if err != nil {
		return 0, err
	}

	stmt, err := qb.Update(td, mappedFields, pred, mappedFilters)
	if err != nil {
		return 0, err
	}

	tx, err := e.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	var rids []int64
	for rows.Next() {
		var rid int64
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan updated rowid: %w", err)
		}
		rids = append(rids, rid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	rows.Close()

	if pred.Check != "" && len(rids) > 0 {
		if err := e.runCheckGuard(ctx, tx, td, pred.Check, rids); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return int64(len(rids)), nil
}

// Delete removes the rows visible under the merged using-predicate that
// match the filters and returns the number removed.
func (e *Engine) Delete(ctx context.Context, table string, filters map[string]interface{}) (int64, error) {
	mapped := domain.MapFields(filters)
	td, pred, err := e.prepare(ctx, table, domain.OpDelete, mapped)
	if err != nil {
		return 0, err
	}

	stmt, err := qb.Delete(td, pred, mapped)
	if err != nil {
		return 0, err
	}

	res, err := e.writeDB.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return n, nil
}

// runCheckGuard counts written rows violating the check predicate; any
// violation fails the call, which rolls the transaction back. The caller
// sees a rejected write with no policy detail.
func (e *Engine) runCheckGuard(ctx context.Context, tx *sql.Tx, td *domain.TableDescriptor, checkExpr string, rids []int64) error {
	guard, err := qb.CheckGuard(td, checkExpr, rids)
	if err != nil {
		return err
	}
	var violations int64
	if err := tx.QueryRowContext(ctx, guard.SQL, guard.Args...).Scan(&violations); err != nil {
		return fmt.Errorf("check guard on %s: %w", td.Name, err)
	}
	if violations > 0 {
		e.logger.Debug("write rejected by check predicate", "table", td.Name, "rows", violations)
		return domain.ErrValidation("write rejected")
	}
	return nil
}
