package domain

// Operation is the statement kind a policy applies to.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpAll    Operation = "all"
)

// Valid reports whether the operation is one of the recognized kinds.
func (o Operation) Valid() bool {
	switch o {
	case OpSelect, OpInsert, OpUpdate, OpDelete, OpAll:
		return true
	}
	return false
}

// PolicyKind distinguishes how policies combine: permissive policies are
// OR-combined to grant access, restrictive policies are AND-combined to
// narrow it.
type PolicyKind string

const (
	KindPermissive  PolicyKind = "PERMISSIVE"
	KindRestrictive PolicyKind = "RESTRICTIVE"
)

// Policy is one declarative row-level access rule for a table/operation
// pair. UsingExpr filters which existing rows are visible or affected
// (select, update, delete); CheckExpr constrains the values of rows being
// written (insert, update). At least one of the two is always present.
//
// The expressions are opaque boolean SQL fragments authored by an
// administrator; the engine never parses them, it only composes them.
type Policy struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	IsEnabled   bool       `json:"is_enabled"`
	TableName   string     `json:"table_name"`
	Operation   Operation  `json:"operation"`
	Kind        PolicyKind `json:"kind"`
	UsingExpr   *string    `json:"using_expr,omitempty"`
	CheckExpr   *string    `json:"check_expr,omitempty"`
}

// AppliesTo reports whether the policy matches the operation, either
// literally or via the "all" wildcard.
func (p *Policy) AppliesTo(op Operation) bool {
	return p.Operation == op || p.Operation == OpAll
}

// Using returns the using expression, or "" when absent.
func (p *Policy) Using() string {
	if p.UsingExpr == nil {
		return ""
	}
	return *p.UsingExpr
}

// Check returns the check expression, or "" when absent.
func (p *Policy) Check() string {
	if p.CheckExpr == nil {
		return ""
	}
	return *p.CheckExpr
}
