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

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

func demoTable(t *testing.T) *Table {
	t.Helper()
	sch, err := schema.ParsePairs([][2]string{
		{"a", "!int64"},
		{"b", "float64"},
		{"s", "string"},
		{"ts", "timestamp"},
		{"flag", "boolean"},
	})
	require.NoError(t, err)
	tbl, err := NewTable("demo", sch)
	require.NoError(t, err)
	return tbl
}

func TestColumnTypedAccess(t *testing.T) {
	tbl := demoTable(t)

	a, err := tbl.Num("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Name())
	assert.False(t, a.DataType().Nullable())

	_, err = tbl.Num("s")
	require.Error(t, err)
	_, err = tbl.Str("a")
	require.Error(t, err)
	_, err = tbl.Num("missing")
	require.Error(t, err)
}

func TestSelectByNameAndExpression(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	out, err := tbl.Select("s", a.Add(Int(1)).As("a1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "a1"}, out.Schema().Names())
}

func TestSelectBareReductionBroadcasts(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	total, err := a.Sum()
	require.NoError(t, err)
	out, err := tbl.Select("a", total.As("total"))
	require.NoError(t, err)
	sel := out.Op().(*ops.Selection)
	_, ok := sel.Bindings[1].Expr.(*ops.WindowFunction)
	assert.True(t, ok)
}

func TestMutateReplaceAndAppend(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)
	b, err := tbl.Num("b")
	require.NoError(t, err)

	out, err := tbl.Mutate(map[string]Value{
		"qux": a.Add(b),
		"baz": Int(5),
	})
	require.NoError(t, err)
	// existing columns keep their place, new ones append sorted
	assert.Equal(t, []string{"a", "b", "s", "ts", "flag", "baz", "qux"}, out.Schema().Names())

	d, ok := out.Schema().Field("baz")
	require.True(t, ok)
	assert.Equal(t, types.Int8, d.Kind())
	d, ok = out.Schema().Field("qux")
	require.True(t, ok)
	assert.Equal(t, types.Float64, d.Kind())

	// replacing keeps the column in place
	out, err = tbl.Mutate(map[string]Value{"a": a.Mul(Int(2))})
	require.NoError(t, err)
	assert.Equal(t, tbl.Schema().Names(), out.Schema().Names())
}

func TestFilterFlattensConjunctions(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)
	flag, err := tbl.Bool("flag")
	require.NoError(t, err)

	out, err := tbl.Filter(a.Gt(Int(0)).And(a.Lt(Int(100))), flag)
	require.NoError(t, err)
	sel := out.Op().(*ops.Selection)
	assert.Len(t, sel.Predicates, 3)
	assert.False(t, sel.Blocks())
}

func TestSortAndLimit(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	out, err := tbl.Sort(Desc(a))
	require.NoError(t, err)
	sel := out.Op().(*ops.Selection)
	require.Len(t, sel.Keys, 1)
	assert.True(t, sel.Keys[0].Descending)

	out, err = out.Limit(10, 5)
	require.NoError(t, err)
	lim := out.Op().(*ops.Limit)
	assert.Equal(t, int64(10), lim.Count)
	assert.Equal(t, int64(5), lim.Offset)
}

func TestDropMissingColumn(t *testing.T) {
	tbl := demoTable(t)

	out, err := tbl.Drop("ts", "flag")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "s"}, out.Schema().Names())

	_, err = tbl.Drop("nope")
	require.Error(t, err)
	var se *ops.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestGroupByAggregate(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	total, err := a.Sum()
	require.NoError(t, err)
	avg, err := a.Mean()
	require.NoError(t, err)

	out, err := tbl.GroupBy("s").Aggregate(map[string]Value{
		"total": total,
		"avg":   avg,
	})
	require.NoError(t, err)
	// keys first, then metrics in sorted name order
	assert.Equal(t, []string{"s", "avg", "total"}, out.Schema().Names())

	d, ok := out.Schema().Field("avg")
	require.True(t, ok)
	assert.Equal(t, types.Float64, d.Kind())
}

func TestGroupByHaving(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	cnt, err := a.Count()
	require.NoError(t, err)
	total, err := a.Sum()
	require.NoError(t, err)

	out, err := tbl.GroupBy("s").
		Having(cnt.Gt(Int(10))).
		Aggregate(map[string]Value{"total": total})
	require.NoError(t, err)
	agg := out.Op().(*ops.Aggregation)
	assert.Len(t, agg.Having, 1)

	// having must aggregate
	_, err = tbl.GroupBy("s").
		Having(a.Gt(Int(10))).
		Aggregate(map[string]Value{"total": total})
	require.Error(t, err)
}

func TestWholeTableAggregate(t *testing.T) {
	tbl := demoTable(t)
	out, err := tbl.Aggregate(map[string]Value{"n": tbl.Count()})
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, out.Schema().Names())
}

func battingTables(t *testing.T) (*Table, *Table) {
	t.Helper()
	ls, err := schema.ParsePairs([][2]string{
		{"playerID", "string"},
		{"yearID", "int64"},
		{"lgID", "string"},
	})
	require.NoError(t, err)
	rs, err := schema.ParsePairs([][2]string{
		{"playerID", "string"},
		{"awardID", "!string"},
		{"lgID", "string"},
	})
	require.NoError(t, err)
	left, err := NewTable("batting", ls)
	require.NoError(t, err)
	right, err := NewTable("awards", rs)
	require.NoError(t, err)
	return left, right
}

func TestJoinCollapsesKeys(t *testing.T) {
	left, right := battingTables(t)
	lp, err := left.Str("playerID")
	require.NoError(t, err)
	rp, err := right.Str("playerID")
	require.NoError(t, err)

	out, err := left.InnerJoin(right, []Bool{lp.Eq(rp)})
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"playerID", "yearID", "lgID_x", "awardID", "lgID_y"},
		out.Schema().Names())

	out, err = left.InnerJoin(right, []Bool{lp.Eq(rp)}, WithSuffixes("_l", "_r"))
	require.NoError(t, err)
	assert.Contains(t, out.Schema().Names(), "lgID_l")
}

func TestSemiJoinSchema(t *testing.T) {
	left, right := battingTables(t)
	lp, err := left.Str("playerID")
	require.NoError(t, err)
	rp, err := right.Str("playerID")
	require.NoError(t, err)

	out, err := left.SemiJoin(right, []Bool{lp.Eq(rp)})
	require.NoError(t, err)
	assert.True(t, out.Schema().Equals(left.Schema()))
}

func TestSelfJoinThroughView(t *testing.T) {
	tbl := demoTable(t)
	view, err := tbl.View()
	require.NoError(t, err)

	a1, err := tbl.Num("a")
	require.NoError(t, err)
	a2, err := view.Num("a")
	require.NoError(t, err)

	out, err := tbl.InnerJoin(view, []Bool{a1.Eq(a2)})
	require.NoError(t, err)
	// the equality is a key: "a" collapses, everything else suffixes
	assert.Contains(t, out.Schema().Names(), "a")
	assert.Contains(t, out.Schema().Names(), "b_x")
	assert.Contains(t, out.Schema().Names(), "b_y")
}

func TestRelabel(t *testing.T) {
	tbl := demoTable(t)

	out, err := tbl.Relabel(map[string]string{"a": "id", "s": "label"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "b", "label", "ts", "flag"}, out.Schema().Names())

	d, ok := out.Schema().Field("id")
	require.True(t, ok)
	assert.False(t, d.Nullable())

	_, err = tbl.Relabel(map[string]string{"nope": "x"})
	require.Error(t, err)
	var se *ops.SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestAnyLeftJoinWidensRight(t *testing.T) {
	left, right := battingTables(t)
	lp, err := left.Str("playerID")
	require.NoError(t, err)
	rp, err := right.Str("playerID")
	require.NoError(t, err)

	out, err := left.AnyLeftJoin(right, []Bool{lp.Eq(rp)})
	require.NoError(t, err)
	// right columns come along, nullable for unmatched left rows
	d, ok := out.Schema().Field("awardID")
	require.True(t, ok)
	assert.True(t, d.Nullable())

	out, err = left.AnyInnerJoin(right, []Bool{lp.Eq(rp)})
	require.NoError(t, err)
	d, ok = out.Schema().Field("awardID")
	require.True(t, ok)
	assert.False(t, d.Nullable())
}

func TestSetOps(t *testing.T) {
	tbl := demoTable(t)
	other := demoTable(t)

	u, err := tbl.Union(other, false)
	require.NoError(t, err)
	assert.False(t, u.Op().(*ops.SetOp).Distinct)

	_, err = tbl.Intersect(other)
	require.NoError(t, err)

	small, err := tbl.Select("a")
	require.NoError(t, err)
	_, err = tbl.Union(small, false)
	require.Error(t, err)
}

func TestDistinctIdempotentSchema(t *testing.T) {
	tbl := demoTable(t)
	once, err := tbl.Distinct()
	require.NoError(t, err)
	twice, err := once.Distinct()
	require.NoError(t, err)
	assert.True(t, once.Schema().Equals(twice.Schema()))
}

func TestUnboundParam(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	pv, p, err := Param(types.Int64Type())
	require.NoError(t, err)
	require.NotNil(t, p)

	threshold, ok := pv.(Num)
	require.True(t, ok)
	_, err = tbl.Filter(a.Gt(threshold))
	require.NoError(t, err)
}
