// Package catalog reads SQLite catalog metadata and normalizes it into
// canonical table descriptors.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dynatable/internal/domain"
)

// Reader answers Describe calls against a SQLite database. It is safe for
// concurrent use; consistency with concurrent DDL is whatever the
// underlying connection's read guarantee provides.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader over the given connection pool.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// describeQuery assembles the whole table description server-side into one
// JSON document: the sqlite_master row, the enabled policies from the
// _policies registry, and the columns joined with foreign-key metadata and
// index membership. One round trip per Describe call.
//
// A column matches a foreign key when the edge's source column equals the
// column name; at most one edge per column is representable (composite
// foreign keys collapse onto their first matching column).
const describeQuery = `
SELECT
  json_object(
        'name', m.name,
        'schema', 'main',
        'sql', m.sql,
        'policies', (
            SELECT json_group_array(
                json_object(
                    'id', p.id,
                    'name', p.name,
                    'description', p.description,
                    'is_enabled', p.is_enabled,
                    'table_name', p.table_name,
                    'operation', p.operation,
                    'policy_type', p.policy_type,
                    'using_expr', p.using_expr,
                    'check_expr', p.check_expr
                )
            )
            FROM _policies p
            WHERE p.table_name = m.name AND p.is_enabled = 1
        ),
        'columns', (
            SELECT json_group_array(
                json_object(
                    'position', txi.cid,
                    'name', txi.name,
                    'declared_type', txi.type,
                    'is_not_null', txi."notnull",
                    'default_value', txi.dflt_value,
                    'is_primary_key', CASE WHEN txi.pk > 0 THEN 1 ELSE 0 END,
                    'primary_key_order', txi.pk,
                    'generation_kind', txi.hidden,
                    'references_table', fkl."table",
                    'references_column', fkl."to",
                    'fk_on_update', fkl.on_update,
                    'fk_on_delete', fkl.on_delete,
                    'index_membership', (
                        SELECT group_concat(il.name)
                        FROM pragma_index_list(m.name) AS il
                        JOIN pragma_index_info(il.name) AS ii ON ii.name = txi.name
                    )
                )
            )
            FROM pragma_table_xinfo(m.name) AS txi
            LEFT JOIN pragma_foreign_key_list(m.name) AS fkl ON fkl."from" = txi.name
        )
    ) AS table_details
FROM
    sqlite_master AS m
WHERE
    m.type = 'table' AND m.name = ?`

// tableDoc mirrors the JSON document produced by describeQuery.
type tableDoc struct {
	Name     string      `json:"name"`
	Schema   string      `json:"schema"`
	SQL      *string     `json:"sql"`
	Policies []policyDoc `json:"policies"`
	Columns  []columnDoc `json:"columns"`
}

type policyDoc struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsEnabled   int     `json:"is_enabled"`
	TableName   string  `json:"table_name"`
	Operation   string  `json:"operation"`
	PolicyType  string  `json:"policy_type"`
	UsingExpr   *string `json:"using_expr"`
	CheckExpr   *string `json:"check_expr"`
}

type columnDoc struct {
	Position         int     `json:"position"`
	Name             string  `json:"name"`
	DeclaredType     string  `json:"declared_type"`
	IsNotNull        int     `json:"is_not_null"`
	DefaultValue     *string `json:"default_value"`
	IsPrimaryKey     int     `json:"is_primary_key"`
	PrimaryKeyOrder  int     `json:"primary_key_order"`
	GenerationKind   int     `json:"generation_kind"`
	ReferencesTable  *string `json:"references_table"`
	ReferencesColumn *string `json:"references_column"`
	FKOnUpdate       *string `json:"fk_on_update"`
	FKOnDelete       *string `json:"fk_on_delete"`
	IndexMembership  *string `json:"index_membership"`
}

// Describe returns the canonical descriptor of the named table, including
// its enabled policies. Returns *domain.NotFoundError when the table does
// not exist and *domain.CatalogError when the metadata query fails or the
// document cannot be decoded.
func (r *Reader) Describe(ctx context.Context, table string) (*domain.TableDescriptor, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, describeQuery, table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table %q not found in catalog", table)
	}
	if err != nil {
		return nil, domain.ErrCatalog(err, "describe %q", table)
	}

	var doc tableDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.ErrCatalog(err, "decode table document for %q", table)
	}

	return descriptorFromDoc(&doc), nil
}

// ListTables returns the names of all user tables, excluding SQLite
// internals and the engine's own registry tables.
func (r *Reader) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table'
		   AND name NOT LIKE 'sqlite_%'
		   AND name NOT LIKE '\_%' ESCAPE '\'
		   AND name != 'goose_db_version'
		 ORDER BY name`)
	if err != nil {
		return nil, domain.ErrCatalog(err, "list tables")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrCatalog(err, "scan table name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrCatalog(err, "list tables")
	}
	return names, nil
}

func descriptorFromDoc(doc *tableDoc) *domain.TableDescriptor {
	td := &domain.TableDescriptor{
		Name:     doc.Name,
		Schema:   doc.Schema,
		Columns:  make([]domain.ColumnDescriptor, 0, len(doc.Columns)),
		Policies: make([]domain.Policy, 0, len(doc.Policies)),
	}
	if doc.SQL != nil {
		td.OriginSQL = *doc.SQL
	}

	for _, c := range doc.Columns {
		col := domain.ColumnDescriptor{
			Position:     c.Position,
			Name:         c.Name,
			DeclaredType: c.DeclaredType,
			IsNotNull:    c.IsNotNull != 0,
			DefaultValue: c.DefaultValue,
			IsPrimaryKey: c.IsPrimaryKey != 0,
			Generation:   domain.GenerationKind(c.GenerationKind),
		}
		if col.IsPrimaryKey {
			col.PrimaryKeyOrder = c.PrimaryKeyOrder
		}
		if c.ReferencesTable != nil {
			fk := &domain.ForeignKey{ReferencesTable: *c.ReferencesTable}
			if c.ReferencesColumn != nil {
				fk.ReferencesColumn = *c.ReferencesColumn
			}
			if c.FKOnUpdate != nil {
				fk.OnUpdate = *c.FKOnUpdate
			}
			if c.FKOnDelete != nil {
				fk.OnDelete = *c.FKOnDelete
			}
			col.ForeignKey = fk
		}
		if c.IndexMembership != nil {
			col.IndexMembership = *c.IndexMembership
		}
		td.Columns = append(td.Columns, col)
	}

	for _, p := range doc.Policies {
		td.Policies = append(td.Policies, domain.Policy{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			IsEnabled:   p.IsEnabled != 0,
			TableName:   p.TableName,
			Operation:   domain.Operation(p.Operation),
			Kind:        domain.PolicyKind(p.PolicyType),
			UsingExpr:   p.UsingExpr,
			CheckExpr:   p.CheckExpr,
		})
	}

	return td
}
