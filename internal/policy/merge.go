package policy

import (
	"strings"

	"dynatable/internal/domain"
)

// DenyAll is the predicate emitted when a table has policies defined but
// none grants the requested operation. It evaluates to false for every row.
const DenyAll = "(1 = 0)"

// Predicate is the outcome of merging the applicable policies of one
// table/operation pair. Empty Using/Check strings mean "no restriction".
type Predicate struct {
	// Using filters which existing rows are visible or affected
	// (select, update, delete).
	Using string
	// Check constrains the values of rows being written (insert, update),
	// evaluated against the proposed row.
	Check string
}

// Merge combines policies into a Predicate for the given operation.
//
// All matching permissive policies are OR-combined; restrictive policies
// are AND-combined with the permissive disjunction:
//
//	(p1 OR p2) AND r1 AND r2
//
// tableHasPolicies distinguishes the two defaults: a table with zero
// enabled policies is unrestricted (empty predicate), while a table with
// policies but no applicable permissive one is default-deny.
//
// For the check side, a policy without a check expression falls back to
// its using expression, so a FOR ALL policy written with only USING also
// constrains the rows it lets through on writes.
func Merge(policies []domain.Policy, op domain.Operation, tableHasPolicies bool) Predicate {
	if !tableHasPolicies {
		return Predicate{}
	}

	var pred Predicate
	switch op {
	case domain.OpSelect, domain.OpDelete:
		pred.Using = mergeExprs(policies, op, (*domain.Policy).Using)
	case domain.OpInsert:
		pred.Check = mergeExprs(policies, op, effectiveCheck)
	case domain.OpUpdate:
		pred.Using = mergeExprs(policies, op, (*domain.Policy).Using)
		pred.Check = mergeExprs(policies, op, effectiveCheck)
	}
	return pred
}

func effectiveCheck(p *domain.Policy) string {
	if expr := p.Check(); expr != "" {
		return expr
	}
	return p.Using()
}

// mergeExprs builds one side of the predicate from the expression selected
// by pick. Policies whose selected expression is absent contribute nothing.
func mergeExprs(policies []domain.Policy, op domain.Operation, pick func(*domain.Policy) string) string {
	var permissive, restrictive []string
	for i := range policies {
		p := &policies[i]
		if !p.AppliesTo(op) {
			continue
		}
		expr := pick(p)
		if expr == "" {
			continue
		}
		expr = "(" + expr + ")"
		if p.Kind == domain.KindRestrictive {
			restrictive = append(restrictive, expr)
		} else {
			permissive = append(permissive, expr)
		}
	}

	// No permissive grant on a policied table: nothing is visible or
	// writable, regardless of restrictive terms.
	if len(permissive) == 0 {
		return DenyAll
	}

	granted := permissive[0]
	if len(permissive) > 1 {
		granted = "(" + strings.Join(permissive, " OR ") + ")"
	}
	if len(restrictive) == 0 {
		return granted
	}
	return granted + " AND " + strings.Join(restrictive, " AND ")
}
