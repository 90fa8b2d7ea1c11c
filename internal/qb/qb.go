// Package qb builds parameterized SQL statements for arbitrary tables,
// with row-level policy predicates merged into the generated WHERE clauses.
//
// Values are always bound as positional parameters. Identifiers cannot be
// bound, so every table and column name passes a shape check before it is
// interpolated; anything that is not a simple alphanumeric/underscore
// token is rejected.
package qb

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dynatable/internal/domain"
	"dynatable/internal/policy"
)

var (
	// ErrInvalidColumnSet is returned when a supplied table or column name
	// is not a valid identifier shape.
	ErrInvalidColumnSet = errors.New("invalid column set")
	// ErrEmptyWriteSet is returned when an insert or update carries no
	// columns.
	ErrEmptyWriteSet = errors.New("empty write set")
)

var identShape = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is a bare identifier the builder will
// interpolate.
func ValidIdent(name string) bool {
	return identShape.MatchString(name)
}

func checkIdent(name string) error {
	if !ValidIdent(name) {
		return fmt.Errorf("identifier %q: %w", name, ErrInvalidColumnSet)
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

// Statement is one parameterized statement: SQL text plus the values bound
// to its positional placeholders. Statements are independent objects; the
// builder shares no state across calls.
type Statement struct {
	SQL  string
	Args []interface{}
}

// target renders the qualified table name after validating both parts.
func target(td *domain.TableDescriptor) (string, error) {
	if err := checkIdent(td.Name); err != nil {
		return "", err
	}
	schema := td.Schema
	if schema == "" {
		schema = "main"
	}
	if err := checkIdent(schema); err != nil {
		return "", err
	}
	return quote(schema) + "." + quote(td.Name), nil
}

// recordProjection renders a json_object(...) projecting every column of
// the table, so results come back as one self-describing JSON document
// regardless of table shape. Column names come from the catalog, but
// quoted DDL can put arbitrary bytes in them, so they pass the same shape
// check as caller-supplied identifiers.
func recordProjection(td *domain.TableDescriptor) (string, error) {
	parts := make([]string, 0, len(td.Columns)*2)
	for _, c := range td.Columns {
		if err := checkIdent(c.Name); err != nil {
			return "", err
		}
		parts = append(parts, "'"+c.Name+"'", quote(c.Name))
	}
	return "json_object(" + strings.Join(parts, ", ") + ")", nil
}

// sortedColumns validates and orders the write-set column names. Map
// iteration is unordered; sorting keeps generated SQL deterministic.
func sortedColumns(fields map[string]domain.Param) ([]string, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyWriteSet
	}
	cols := make([]string, 0, len(fields))
	for name := range fields {
		if err := checkIdent(name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols, nil
}

// Insert builds an INSERT for the given write set. The statement returns
// the inserted row as a JSON document plus its rowid, which the caller
// feeds into CheckGuard when a check predicate applies.
func Insert(td *domain.TableDescriptor, fields map[string]domain.Param) (Statement, error) {
	tbl, err := target(td)
	if err != nil {
		return Statement{}, err
	}
	cols, err := sortedColumns(fields)
	if err != nil {
		return Statement{}, err
	}

	projection, err := recordProjection(td)
	if err != nil {
		return Statement{}, err
	}

	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		marks[i] = "?"
		args[i] = fields[c].Bind()
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s AS record, rowid AS rid",
		tbl, strings.Join(quoted, ", "), strings.Join(marks, ", "), projection)
	return Statement{SQL: sql, Args: args}, nil
}

// Select builds a SELECT projecting the whole row as a JSON document. The
// merged using-predicate is appended when non-trivial, then any equality
// filters, then LIMIT/OFFSET when limit > 0.
func Select(td *domain.TableDescriptor, pred policy.Predicate, filters map[string]domain.Param, limit, offset int) (Statement, error) {
	tbl, err := target(td)
	if err != nil {
		return Statement{}, err
	}

	projection, err := recordProjection(td)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	var args []interface{}
	fmt.Fprintf(&b, "SELECT %s AS record FROM %s", projection, tbl)

	where, whereArgs, err := whereClause(pred.Using, filters)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(where)
	args = append(args, whereArgs...)

	if limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	}

	return Statement{SQL: b.String(), Args: args}, nil
}

// Update builds an UPDATE restricted by the merged using-predicate and the
// given filters. It returns the affected rowids so the caller can run the
// check validation pass on the resulting row values.
func Update(td *domain.TableDescriptor, fields map[string]domain.Param, pred policy.Predicate, filters map[string]domain.Param) (Statement, error) {
	tbl, err := target(td)
	if err != nil {
		return Statement{}, err
	}
	cols, err := sortedColumns(fields)
	if err != nil {
		return Statement{}, err
	}

	sets := make([]string, len(cols))
	args := make([]interface{}, 0, len(cols)+len(filters))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
		args = append(args, fields[c].Bind())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", tbl, strings.Join(sets, ", "))

	where, whereArgs, err := whereClause(pred.Using, filters)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(where)
	args = append(args, whereArgs...)

	b.WriteString(" RETURNING rowid AS rid")
	return Statement{SQL: b.String(), Args: args}, nil
}

// Delete builds a DELETE restricted by the merged using-predicate and the
// given filters.
func Delete(td *domain.TableDescriptor, pred policy.Predicate, filters map[string]domain.Param) (Statement, error) {
	tbl, err := target(td)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", tbl)

	where, args, err := whereClause(pred.Using, filters)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(where)

	return Statement{SQL: b.String(), Args: args}, nil
}

// CheckGuard builds the statement-level guard for a write: it counts rows
// among the just-written rowids that violate the merged check predicate.
// A non-zero count means the enclosing transaction must roll back, so the
// failed write is never observable.
func CheckGuard(td *domain.TableDescriptor, checkExpr string, rowIDs []int64) (Statement, error) {
	tbl, err := target(td)
	if err != nil {
		return Statement{}, err
	}
	if checkExpr == "" || len(rowIDs) == 0 {
		return Statement{}, fmt.Errorf("check guard requires a predicate and at least one rowid")
	}

	marks := make([]string, len(rowIDs))
	args := make([]interface{}, len(rowIDs))
	for i, id := range rowIDs {
		marks[i] = "?"
		args[i] = id
	}

	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE rowid IN (%s) AND NOT (%s)",
		tbl, strings.Join(marks, ", "), checkExpr)
	return Statement{SQL: sql, Args: args}, nil
}

// whereClause renders " WHERE ..." from the policy predicate plus equality
// filters, or "" when both are empty. Filter column names are validated;
// filter values are bound, never interpolated.
func whereClause(predicate string, filters map[string]domain.Param) (string, []interface{}, error) {
	var terms []string
	var args []interface{}

	if predicate != "" {
		terms = append(terms, predicate)
	}

	if len(filters) > 0 {
		cols := make([]string, 0, len(filters))
		for name := range filters {
			if err := checkIdent(name); err != nil {
				return "", nil, err
			}
			cols = append(cols, name)
		}
		sort.Strings(cols)
		for _, c := range cols {
			p := filters[c]
			if p.Kind == domain.ParamNull {
				terms = append(terms, quote(c)+" IS NULL")
				continue
			}
			terms = append(terms, quote(c)+" = ?")
			args = append(args, p.Bind())
		}
	}

	if len(terms) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(terms, " AND "), args, nil
}
