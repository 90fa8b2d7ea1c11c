package domain

// GenerationKind describes how a column's value is produced.
// SQLite reports this via the "hidden" field of pragma_table_xinfo.
type GenerationKind int

const (
	GenerationNormal  GenerationKind = 0
	GenerationVirtual GenerationKind = 1
	GenerationStored  GenerationKind = 2
)

// ForeignKey describes the single outgoing foreign-key edge of a column.
// Composite (multi-column) foreign keys are not representable in this
// model: a column carries at most one edge.
type ForeignKey struct {
	ReferencesTable  string `json:"references_table"`
	ReferencesColumn string `json:"references_column"`
	OnUpdate         string `json:"on_update"`
	OnDelete         string `json:"on_delete"`
}

// ColumnDescriptor is the canonical shape of one table column.
type ColumnDescriptor struct {
	Position        int            `json:"position"`
	Name            string         `json:"name"`
	DeclaredType    string         `json:"declared_type"`
	IsNotNull       bool           `json:"is_not_null"`
	DefaultValue    *string        `json:"default_value,omitempty"`
	IsPrimaryKey    bool           `json:"is_primary_key"`
	PrimaryKeyOrder int            `json:"primary_key_order,omitempty"`
	Generation      GenerationKind `json:"generation_kind"`
	ForeignKey      *ForeignKey    `json:"foreign_key,omitempty"`
	// IndexMembership holds the comma-joined names of indexes the column
	// participates in, as reported by pragma_index_list/pragma_index_info.
	IndexMembership string `json:"index_membership,omitempty"`
}

// TableDescriptor is the canonical, backend-agnostic shape of one table,
// including its enabled policies. Columns are ordered by their
// catalog-assigned position and names are unique within the table.
type TableDescriptor struct {
	Name      string             `json:"name"`
	Schema    string             `json:"schema"`
	OriginSQL string             `json:"origin_sql,omitempty"`
	Columns   []ColumnDescriptor `json:"columns"`
	Policies  []Policy           `json:"policies"`
}

// Column returns the descriptor of the named column, or nil.
func (t *TableDescriptor) Column(name string) *ColumnDescriptor {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKey returns the primary-key columns in key order.
func (t *TableDescriptor) PrimaryKey() []ColumnDescriptor {
	var pk []ColumnDescriptor
	for order := 1; ; order++ {
		found := false
		for _, c := range t.Columns {
			if c.IsPrimaryKey && c.PrimaryKeyOrder == order {
				pk = append(pk, c)
				found = true
				break
			}
		}
		if !found {
			return pk
		}
	}
}

// ColumnNames returns the column names in position order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
