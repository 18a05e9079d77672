// Copyright (C) 2023 GrapeBaBa
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package sqlite

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/backend"
	"github.com/GrapeBaBa/ibis/expr"
	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

func eventsTable(t *testing.T) *expr.Table {
	t.Helper()
	sch, err := schema.ParsePairs([][2]string{
		{"id", "!int64"},
		{"kind", "string"},
		{"at", "timestamp"},
		{"value", "float64"},
	})
	require.NoError(t, err)
	tbl, err := expr.NewTable("events", sch)
	require.NoError(t, err)
	return tbl
}

func compileSQL(t *testing.T, tbl *expr.Table) (string, []any) {
	t.Helper()
	compiled, err := Compile(tbl.Op())
	require.NoError(t, err)
	return compiled.Text, compiled.Args
}

func assertGolden(t *testing.T, name, sql string) {
	t.Helper()
	g := goldie.New(t)
	g.Assert(t, name, []byte(sql))
}

func TestCompileFilter(t *testing.T) {
	tbl := eventsTable(t)
	id, err := tbl.Num("id")
	require.NoError(t, err)
	out, err := tbl.Filter(id.Gt(expr.Int(0)))
	require.NoError(t, err)

	sql, args := compileSQL(t, out)
	assertGolden(t, "filter", sql)
	assert.Equal(t, []any{int64(0)}, args)
}

func TestCompileProjection(t *testing.T) {
	tbl := eventsTable(t)
	value, err := tbl.Num("value")
	require.NoError(t, err)
	out, err := tbl.Select("kind", value.Mul(expr.Float(2)).As("v2"))
	require.NoError(t, err)

	sql, args := compileSQL(t, out)
	assertGolden(t, "projection", sql)
	assert.Equal(t, []any{2.0}, args)
}

func TestCompileAggregation(t *testing.T) {
	tbl := eventsTable(t)
	value, err := tbl.Num("value")
	require.NoError(t, err)
	total, err := value.Sum()
	require.NoError(t, err)
	out, err := tbl.GroupBy("kind").Aggregate(map[string]expr.Value{
		"total": total,
	})
	require.NoError(t, err)

	sql, args := compileSQL(t, out)
	assertGolden(t, "aggregation", sql)
	assert.Empty(t, args)
}

func battingPair(t *testing.T) (*expr.Table, *expr.Table) {
	t.Helper()
	ls, err := schema.ParsePairs([][2]string{
		{"playerID", "string"},
		{"yearID", "int64"},
		{"lgID", "string"},
	})
	require.NoError(t, err)
	rs, err := schema.ParsePairs([][2]string{
		{"playerID", "string"},
		{"awardID", "string"},
		{"lgID", "string"},
	})
	require.NoError(t, err)
	left, err := expr.NewTable("batting", ls)
	require.NoError(t, err)
	right, err := expr.NewTable("awards", rs)
	require.NoError(t, err)
	return left, right
}

func TestCompileInnerJoin(t *testing.T) {
	left, right := battingPair(t)
	lp, err := left.Str("playerID")
	require.NoError(t, err)
	rp, err := right.Str("playerID")
	require.NoError(t, err)
	out, err := left.InnerJoin(right, []expr.Bool{lp.Eq(rp)})
	require.NoError(t, err)

	sql, args := compileSQL(t, out)
	assertGolden(t, "inner_join", sql)
	assert.Empty(t, args)
}

func TestCompileSemiJoin(t *testing.T) {
	left, right := battingPair(t)
	lp, err := left.Str("playerID")
	require.NoError(t, err)
	rp, err := right.Str("playerID")
	require.NoError(t, err)
	out, err := left.SemiJoin(right, []expr.Bool{lp.Eq(rp)})
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assertGolden(t, "semi_join", sql)
}

func TestCompileUnionAll(t *testing.T) {
	a := eventsTable(t)
	b := eventsTable(t)
	out, err := a.Union(b, false)
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assertGolden(t, "union_all", sql)
}

func TestCompileWindow(t *testing.T) {
	tbl := eventsTable(t)
	kind, err := tbl.Str("kind")
	require.NoError(t, err)
	at, err := tbl.Time("at")
	require.NoError(t, err)
	value, err := tbl.Num("value")
	require.NoError(t, err)
	total, err := value.Sum()
	require.NoError(t, err)

	running, err := expr.Window().
		PartitionBy(kind).
		OrderBy(expr.Asc(at)).
		Rows(ops.Unbounded(), ops.CurrentRow()).
		Over(total)
	require.NoError(t, err)

	out, err := tbl.Select("id", running.(expr.Num).As("running"))
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assertGolden(t, "window", sql)
}

func TestCompileBareReductionSelect(t *testing.T) {
	tbl := eventsTable(t)
	value, err := tbl.Num("value")
	require.NoError(t, err)
	total, err := value.Sum()
	require.NoError(t, err)
	out, err := tbl.Select("kind", total.As("total"))
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assertGolden(t, "bare_reduction", sql)
}

func TestCompileLimitOffset(t *testing.T) {
	tbl := eventsTable(t)
	out, err := tbl.Limit(10, 5)
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assertGolden(t, "limit_offset", sql)
}

func TestCompileParameterSentinel(t *testing.T) {
	tbl := eventsTable(t)
	id, err := tbl.Num("id")
	require.NoError(t, err)
	pv, p, err := expr.Param(types.Int64Type())
	require.NoError(t, err)
	out, err := tbl.Filter(id.Gt(pv.(expr.Num)))
	require.NoError(t, err)

	_, args := compileSQL(t, out)
	require.Len(t, args, 1)
	assert.Same(t, p, args[0])
}

func TestCompileTrueDivision(t *testing.T) {
	tbl := eventsTable(t)
	id, err := tbl.Num("id")
	require.NoError(t, err)
	out, err := tbl.Select(id.Div(expr.Int(3)).As("third"))
	require.NoError(t, err)

	sql, _ := compileSQL(t, out)
	assert.Contains(t, sql, "CAST(\"t0\".\"id\" AS REAL) / ?")
}

func TestCompileTemporalShift(t *testing.T) {
	tbl := eventsTable(t)
	at, err := tbl.Time("at")
	require.NoError(t, err)
	day, err := expr.Span(1, types.UnitDay)
	require.NoError(t, err)

	next, err := at.Add(day)
	require.NoError(t, err)
	out, err := tbl.Select(next.As("next"))
	require.NoError(t, err)
	sql, args := compileSQL(t, out)
	assert.Contains(t, sql, "DATETIME(\"t0\".\"at\", ?)")
	assert.Equal(t, []any{"+1 days"}, args)
}

func TestCompileNotDefined(t *testing.T) {
	tbl := eventsTable(t)
	value, err := tbl.Num("value")
	require.NoError(t, err)

	spread, err := value.Std()
	require.NoError(t, err)
	out, err := tbl.GroupBy("kind").Aggregate(map[string]expr.Value{
		"spread": spread,
	})
	require.NoError(t, err)

	_, err = Compile(out.Op())
	require.Error(t, err)
	assert.True(t, backend.IsOperationNotDefined(err))
}

func TestCompileGeoNotDefined(t *testing.T) {
	sch, err := schema.ParsePairs([][2]string{{"loc", "point"}})
	require.NoError(t, err)
	tbl, err := expr.NewTable("places", sch)
	require.NoError(t, err)
	loc, err := tbl.Geo("loc")
	require.NoError(t, err)

	out, err := tbl.Select(loc.X().As("x"))
	require.NoError(t, err)
	_, err = Compile(out.Op())
	require.Error(t, err)
	assert.True(t, backend.IsOperationNotDefined(err))
}
