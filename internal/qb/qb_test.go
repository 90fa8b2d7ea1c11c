package qb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynatable/internal/domain"
	"dynatable/internal/policy"
)

func testTable() *domain.TableDescriptor {
	return &domain.TableDescriptor{
		Name:   "items",
		Schema: "main",
		Columns: []domain.ColumnDescriptor{
			{Position: 0, Name: "id"},
			{Position: 1, Name: "name"},
			{Position: 2, Name: "qty"},
		},
	}
}

func TestValidIdent(t *testing.T) {
	t.Parallel()

	valid := []string{"a", "users", "_private", "Col_9", "A1"}
	for _, v := range valid {
		assert.True(t, ValidIdent(v), v)
	}

	invalid := []string{
		"",
		"1abc",
		"a b",
		"a-b",
		"a.b",
		`a"b`,
		"a;drop table users",
		"a'",
		"tab\tname",
		"名前",
	}
	for _, v := range invalid {
		assert.False(t, ValidIdent(v), v)
	}
}

func TestInsertStatementShape(t *testing.T) {
	t.Parallel()

	stmt, err := Insert(testTable(), map[string]domain.Param{
		"name": {Kind: domain.ParamString, Str: "widget"},
		"qty":  {Kind: domain.ParamInt64, Int: 3},
	})
	require.NoError(t, err)

	// Columns are sorted, so SQL and args are deterministic.
	assert.Equal(t,
		`INSERT INTO "main"."items" ("name", "qty") VALUES (?, ?) RETURNING json_object('id', "id", 'name', "name", 'qty', "qty") AS record, rowid AS rid`,
		stmt.SQL)
	assert.Equal(t, []interface{}{"widget", int64(3)}, stmt.Args)
}

func TestInsertRejectsEmptyWriteSet(t *testing.T) {
	t.Parallel()

	_, err := Insert(testTable(), map[string]domain.Param{})
	assert.ErrorIs(t, err, ErrEmptyWriteSet)
}

func TestInsertRejectsBadColumnName(t *testing.T) {
	t.Parallel()

	_, err := Insert(testTable(), map[string]domain.Param{
		`name"; DROP TABLE items; --`: {Kind: domain.ParamString, Str: "x"},
	})
	assert.ErrorIs(t, err, ErrInvalidColumnSet)
}

func TestProjectionRejectsBadCatalogColumnName(t *testing.T) {
	t.Parallel()

	// Quoted DDL can put arbitrary bytes in a catalog column name; the
	// projection must refuse to interpolate it.
	td := testTable()
	td.Columns = append(td.Columns, domain.ColumnDescriptor{Position: 3, Name: "a'b"})

	_, err := Select(td, policy.Predicate{}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidColumnSet)

	_, err = Insert(td, map[string]domain.Param{
		"name": {Kind: domain.ParamString, Str: "x"},
	})
	assert.ErrorIs(t, err, ErrInvalidColumnSet)
}

func TestTargetRejectsBadTableName(t *testing.T) {
	t.Parallel()

	td := testTable()
	td.Name = "items; DROP TABLE users"
	_, err := Select(td, policy.Predicate{}, nil, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidColumnSet)
}

func TestSelectWithoutPredicateOrFilters(t *testing.T) {
	t.Parallel()

	stmt, err := Select(testTable(), policy.Predicate{}, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT json_object('id', "id", 'name', "name", 'qty', "qty") AS record FROM "main"."items"`,
		stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestSelectMergesPredicateAndFilters(t *testing.T) {
	t.Parallel()

	stmt, err := Select(testTable(),
		policy.Predicate{Using: "(qty > 0)"},
		map[string]domain.Param{
			"name": {Kind: domain.ParamString, Str: "widget"},
			"id":   {Kind: domain.ParamInt64, Int: 1},
		}, 10, 20)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT json_object('id', "id", 'name', "name", 'qty', "qty") AS record FROM "main"."items" WHERE (qty > 0) AND "id" = ? AND "name" = ? LIMIT ? OFFSET ?`,
		stmt.SQL)
	assert.Equal(t, []interface{}{int64(1), "widget", 10, 20}, stmt.Args)
}

func TestSelectNullFilterUsesIsNull(t *testing.T) {
	t.Parallel()

	stmt, err := Select(testTable(), policy.Predicate{},
		map[string]domain.Param{"name": {Kind: domain.ParamNull}}, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `"name" IS NULL`)
	assert.Empty(t, stmt.Args)
}

func TestSelectRejectsBadFilterColumn(t *testing.T) {
	t.Parallel()

	_, err := Select(testTable(), policy.Predicate{},
		map[string]domain.Param{"name = 'x' OR 1=1": {Kind: domain.ParamString}}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidColumnSet)
}

func TestUpdateStatementShape(t *testing.T) {
	t.Parallel()

	stmt, err := Update(testTable(),
		map[string]domain.Param{"qty": {Kind: domain.ParamInt64, Int: 9}},
		policy.Predicate{Using: "(qty >= 0)"},
		map[string]domain.Param{"id": {Kind: domain.ParamInt64, Int: 4}})
	require.NoError(t, err)

	assert.Equal(t,
		`UPDATE "main"."items" SET "qty" = ? WHERE (qty >= 0) AND "id" = ? RETURNING rowid AS rid`,
		stmt.SQL)
	assert.Equal(t, []interface{}{int64(9), int64(4)}, stmt.Args)
}

func TestDeleteStatementShape(t *testing.T) {
	t.Parallel()

	stmt, err := Delete(testTable(),
		policy.Predicate{Using: "(1 = 0)"},
		map[string]domain.Param{"id": {Kind: domain.ParamInt64, Int: 4}})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "main"."items" WHERE (1 = 0) AND "id" = ?`, stmt.SQL)
}

func TestCheckGuardShape(t *testing.T) {
	t.Parallel()

	stmt, err := CheckGuard(testTable(), "(qty >= 0)", []int64{5, 6})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT COUNT(*) FROM "main"."items" WHERE rowid IN (?, ?) AND NOT ((qty >= 0))`,
		stmt.SQL)
	assert.Equal(t, []interface{}{int64(5), int64(6)}, stmt.Args)
}

func TestCheckGuardRequiresInputs(t *testing.T) {
	t.Parallel()

	_, err := CheckGuard(testTable(), "", []int64{1})
	assert.Error(t, err)
	_, err = CheckGuard(testTable(), "(qty >= 0)", nil)
	assert.Error(t, err)
}

func TestEmptySchemaDefaultsToMain(t *testing.T) {
	t.Parallel()

	td := testTable()
	td.Schema = ""
	stmt, err := Select(td, policy.Predicate{}, nil, 0, 0)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `FROM "main"."items"`)
}
