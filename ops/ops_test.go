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

package ops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

func testTable(t *testing.T, name string, pairs ...[2]string) *UnboundTable {
	t.Helper()
	if len(pairs) == 0 {
		pairs = [][2]string{
			{"a", "!int64"},
			{"b", "float64"},
			{"s", "string"},
			{"ts", "timestamp"},
			{"flag", "boolean"},
		}
	}
	sch, err := schema.ParsePairs(pairs)
	require.NoError(t, err)
	tbl, err := NewUnboundTable(name, sch)
	require.NoError(t, err)
	return tbl
}

func col(t *testing.T, rel Relation, name string) *Column {
	t.Helper()
	c, err := NewColumn(rel, name)
	require.NoError(t, err)
	return c
}

func lit(t *testing.T, v any) *Literal {
	t.Helper()
	l, err := NewLiteral(v)
	require.NoError(t, err)
	return l
}

func TestLiteralCanonicalization(t *testing.T) {
	l := lit(t, 5)
	assert.Equal(t, types.Int8, l.DataType().Kind())
	assert.Equal(t, int64(5), l.Value())

	// same value through a different native width is the same node
	l8 := lit(t, int8(5))
	assert.True(t, l.Equals(l8))

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	lt := lit(t, ts)
	assert.Equal(t, time.UTC, lt.Value().(time.Time).Location())

	iv := lit(t, 90*time.Second)
	require.True(t, iv.DataType().IsInterval())
	assert.Equal(t, int64(90_000_000_000), iv.Value())
}

func TestNullLiteralNeedsNullableType(t *testing.T) {
	_, err := NewTypedLiteral(nil, types.Int64Type().AsNonNullable())
	require.Error(t, err)

	n := NullLiteral(types.Int64Type().AsNonNullable())
	assert.True(t, n.IsNull())
	assert.True(t, n.DataType().Nullable())
}

func TestCastToSameTypeIsIdentity(t *testing.T) {
	tbl := testTable(t, "t")
	c := col(t, tbl, "a")
	out, err := NewCast(c, c.DataType())
	require.NoError(t, err)
	assert.Same(t, Value(c), out)
}

func TestCastKeepsNullability(t *testing.T) {
	tbl := testTable(t, "t")
	c := col(t, tbl, "a") // !int64
	out, err := NewCast(c, types.Float64Type())
	require.NoError(t, err)
	assert.False(t, out.DataType().Nullable())
	assert.Equal(t, types.Float64, out.DataType().Kind())
}

func TestCastRejectsImpossible(t *testing.T) {
	tbl := testTable(t, "t")
	_, err := NewCast(col(t, tbl, "flag"), types.TimestampType())
	require.Error(t, err)
	var te *types.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestMissingColumnListsAvailable(t *testing.T) {
	tbl := testTable(t, "t")
	_, err := NewColumn(tbl, "nope")
	require.Error(t, err)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"nope"}, se.Missing)
	assert.Contains(t, se.Available, "a")
	assert.Contains(t, err.Error(), "available")
}

func TestComparisonRequiresCommonSupertype(t *testing.T) {
	tbl := testTable(t, "t")
	_, err := NewComparison(Equals, col(t, tbl, "s"), col(t, tbl, "a"))
	require.Error(t, err)

	cmp, err := NewComparison(Less, col(t, tbl, "a"), lit(t, 10))
	require.NoError(t, err)
	assert.Equal(t, types.Boolean, cmp.DataType().Kind())
	assert.Equal(t, ShapeColumn, cmp.Shape())
}

func TestArithmeticTyping(t *testing.T) {
	tbl := testTable(t, "t")
	a, b := col(t, tbl, "a"), col(t, tbl, "b")

	sum, err := NewArithmetic(Add, a, b)
	require.NoError(t, err)
	assert.Equal(t, types.Float64, sum.DataType().Kind())
	assert.True(t, sum.DataType().Nullable()) // b is nullable

	div, err := NewArithmetic(Divide, a, lit(t, 2))
	require.NoError(t, err)
	assert.Equal(t, types.Float64, div.DataType().Kind())

	diff, err := NewArithmetic(Subtract, col(t, tbl, "ts"), col(t, tbl, "ts"))
	require.NoError(t, err)
	require.True(t, diff.DataType().IsInterval())
	assert.Equal(t, types.UnitSecond, diff.DataType().IntervalUnit())

	_, err = NewArithmetic(Add, col(t, tbl, "s"), a)
	require.Error(t, err)
}

func TestTimeOfDayArithmetic(t *testing.T) {
	clock := testTable(t, "shifts", [2]string{"at", "time"})
	at := col(t, clock, "at")

	hour, err := types.IntervalType(types.UnitHour)
	require.NoError(t, err)
	span, err := NewTypedLiteral(int64(2), hour)
	require.NoError(t, err)

	shifted, err := NewArithmetic(Add, at, span)
	require.NoError(t, err)
	assert.Equal(t, types.Time, shifted.DataType().Kind())

	gap, err := NewArithmetic(Subtract, at, col(t, clock, "at"))
	require.NoError(t, err)
	require.True(t, gap.DataType().IsInterval())
	assert.Equal(t, types.UnitSecond, gap.DataType().IntervalUnit())

	// calendar units have no fixed length within a day
	day, err := types.IntervalType(types.UnitDay)
	require.NoError(t, err)
	dspan, err := NewTypedLiteral(int64(1), day)
	require.NoError(t, err)
	_, err = NewArithmetic(Add, at, dspan)
	require.Error(t, err)
}

func TestSearchedCaseNullDefault(t *testing.T) {
	tbl := testTable(t, "t")
	cond, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)

	one, err := NewTypedLiteral(1, types.Int64Type().AsNonNullable())
	require.NoError(t, err)

	// no default: the output can be null even though the result is not
	c, err := NewSearchedCase([]Value{cond}, []Value{one}, nil)
	require.NoError(t, err)
	assert.True(t, c.DataType().Nullable())

	// with a non-null default the output stays non-null
	zero, err := NewTypedLiteral(0, types.Int64Type().AsNonNullable())
	require.NoError(t, err)
	c, err = NewSearchedCase([]Value{cond}, []Value{one}, zero)
	require.NoError(t, err)
	assert.False(t, c.DataType().Nullable())
}

func TestSimpleCaseValidation(t *testing.T) {
	tbl := testTable(t, "t")
	s := col(t, tbl, "s")

	_, err := NewSimpleCase(s, nil, nil, nil)
	require.Error(t, err)

	_, err = NewSimpleCase(s, []Value{lit(t, "x")}, []Value{lit(t, 1), lit(t, 2)}, nil)
	require.Error(t, err)

	// case values must be comparable with the base
	_, err = NewSimpleCase(s, []Value{lit(t, 1)}, []Value{lit(t, 1)}, nil)
	require.Error(t, err)
}

func TestReductionTyping(t *testing.T) {
	tbl := testTable(t, "t")
	a := col(t, tbl, "a")

	sum, err := NewReduction(Sum, a, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Int64, sum.DataType().Kind())

	mean, err := NewReduction(Mean, a, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Float64, mean.DataType().Kind())

	cnt, err := NewReduction(Count, a, nil)
	require.NoError(t, err)
	assert.False(t, cnt.DataType().Nullable())

	_, err = NewReduction(Sum, col(t, tbl, "s"), nil)
	require.Error(t, err)

	_, err = NewReduction(Any, col(t, tbl, "a"), nil)
	require.Error(t, err)
}

func TestWindowFrameValidation(t *testing.T) {
	_, err := NewWindowFrame(Rows, Offset(1), Offset(-1))
	require.Error(t, err)

	f, err := NewWindowFrame(Rows, Unbounded(), CurrentRow())
	require.NoError(t, err)
	assert.True(t, f.Lower.Offset == nil)
}

func TestAnalyticValidation(t *testing.T) {
	tbl := testTable(t, "t")
	a := col(t, tbl, "a")

	_, err := NewAnalytic(RowNumber, a, nil)
	require.Error(t, err)

	_, err = NewAnalytic(NTile, nil, nil)
	require.Error(t, err)

	lag, err := NewAnalytic(Lag, a, lit(t, 1))
	require.NoError(t, err)
	assert.True(t, lag.DataType().Nullable())
	assert.Equal(t, ShapeColumn, lag.Shape())
}

func TestSelectionRequiresNames(t *testing.T) {
	tbl := testTable(t, "t")
	sum, err := NewArithmetic(Add, col(t, tbl, "a"), lit(t, 1))
	require.NoError(t, err)

	_, err = NewSelection(tbl, []Binding{Identity(sum)}, nil, nil)
	require.Error(t, err)
	var ie *IdentityError
	assert.ErrorAs(t, err, &ie)

	sel, err := NewSelection(tbl, []Binding{Bind(sum, "a1")}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, sel.Schema().Names())
	assert.True(t, sel.Blocks())
}

func TestFilterIsTransparent(t *testing.T) {
	tbl := testTable(t, "t")
	pred, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	filtered, err := NewSelection(tbl, nil, []Value{pred}, nil)
	require.NoError(t, err)
	assert.False(t, filtered.Blocks())
	assert.True(t, filtered.Schema().Equals(tbl.Schema()))

	// columns of the base table remain resolvable through the filter
	pred2, err := NewComparison(Less, col(t, tbl, "a"), lit(t, 100))
	require.NoError(t, err)
	_, err = NewSelection(filtered, nil, []Value{pred2}, nil)
	require.NoError(t, err)
}

func TestSelectionRejectsForeignColumns(t *testing.T) {
	tbl := testTable(t, "t")
	other := testTable(t, "u")
	pred, err := NewComparison(Greater, col(t, other, "a"), lit(t, 0))
	require.NoError(t, err)
	_, err = NewSelection(tbl, nil, []Value{pred}, nil)
	require.Error(t, err)
	var se *SchemaError
	assert.ErrorAs(t, err, &se)
}

func TestAggregationValidation(t *testing.T) {
	tbl := testTable(t, "t")
	sum, err := NewReduction(Sum, col(t, tbl, "a"), nil)
	require.NoError(t, err)

	agg, err := NewAggregation(tbl,
		[]Binding{Bind(sum, "total")},
		[]Binding{Identity(col(t, tbl, "s"))},
		nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "total"}, agg.Schema().Names())
	assert.True(t, agg.Blocks())

	// a plain column does not aggregate
	_, err = NewAggregation(tbl, []Binding{Bind(col(t, tbl, "a"), "x")}, nil, nil)
	require.Error(t, err)
}

func joinTables(t *testing.T) (*UnboundTable, *UnboundTable) {
	left := testTable(t, "batting",
		[2]string{"playerID", "string"},
		[2]string{"yearID", "int64"},
		[2]string{"lgID", "string"},
		[2]string{"G", "int64"},
	)
	right := testTable(t, "awards",
		[2]string{"playerID", "string"},
		[2]string{"awardID", "string"},
		[2]string{"lgID", "string"},
	)
	return left, right
}

func TestAggregateOverJoin(t *testing.T) {
	left, right := joinTables(t)
	on, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)

	j, err := NewJoin(InnerJoin, left, right, []Value{on}, "", "")
	require.NoError(t, err)
	j2, err := NewJoin(InnerJoin, left, right, []Value{on}, "", "")
	require.NoError(t, err)
	assert.True(t, j.Equals(j2))

	games, err := NewReduction(Sum, col(t, j, "G"), nil)
	require.NoError(t, err)
	agg, err := NewAggregation(j,
		[]Binding{Bind(games, "total")},
		[]Binding{Identity(col(t, j, "playerID"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"playerID", "total"}, agg.Schema().Names())
}

func TestJoinKeyCollapseAndSuffixes(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)

	j, err := NewJoin(InnerJoin, left, right, []Value{key}, "", "")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"playerID", "yearID", "lgID_x", "G", "awardID", "lgID_y"},
		j.Schema().Names())
	assert.Equal(t, []string{"playerID"}, j.Keys)
}

func TestJoinCustomSuffixes(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)

	j, err := NewJoin(InnerJoin, left, right, []Value{key}, "_left", "_right")
	require.NoError(t, err)
	assert.Contains(t, j.Schema().Names(), "lgID_left")
	assert.Contains(t, j.Schema().Names(), "lgID_right")
}

func TestSemiJoinKeepsLeftSchema(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)

	j, err := NewJoin(LeftSemiJoin, left, right, []Value{key}, "", "")
	require.NoError(t, err)
	assert.True(t, j.Schema().Equals(left.Schema()))
}

func TestOuterJoinWidensNullability(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)

	j, err := NewJoin(LeftJoin, left, right, []Value{key}, "", "")
	require.NoError(t, err)
	d, ok := j.Schema().Field("awardID")
	require.True(t, ok)
	assert.True(t, d.Nullable())
}

func TestCrossJoinRejectsPredicates(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)
	_, err = NewJoin(CrossJoin, left, right, []Value{key}, "", "")
	require.Error(t, err)
}

func TestSetOpCompatibility(t *testing.T) {
	a := testTable(t, "a", [2]string{"x", "int64"}, [2]string{"y", "string"})
	b := testTable(t, "b", [2]string{"y", "string"}, [2]string{"x", "int64"})
	c := testTable(t, "c", [2]string{"x", "int64"})

	u, err := NewSetOp(Union, a, b, true)
	require.NoError(t, err)
	assert.True(t, u.Schema().Equals(a.Schema()))

	_, err = NewSetOp(Union, a, c, true)
	require.Error(t, err)

	// intersect and difference are always distinct
	i, err := NewSetOp(Intersect, a, b, false)
	require.NoError(t, err)
	assert.True(t, i.Distinct)
}

func TestLimitValidation(t *testing.T) {
	tbl := testTable(t, "t")
	_, err := NewLimit(tbl, -1, 0)
	require.Error(t, err)
	_, err = NewLimit(tbl, 10, -1)
	require.Error(t, err)

	l, err := NewLimit(tbl, 10, 5)
	require.NoError(t, err)
	assert.False(t, l.Blocks())
}

func TestSelfReferencesAreDistinct(t *testing.T) {
	tbl := testTable(t, "t")
	v1, err := NewSelfReference(tbl)
	require.NoError(t, err)
	v2, err := NewSelfReference(tbl)
	require.NoError(t, err)
	assert.False(t, v1.Equals(v2))
	assert.True(t, v1.Equals(v1))
}

func TestScalarParameterNaming(t *testing.T) {
	p1, err := NewScalarParameter(types.Int64Type())
	require.NoError(t, err)
	p2, err := NewScalarParameter(types.Int64Type())
	require.NoError(t, err)
	assert.NotEqual(t, p1.DefaultName(), p2.DefaultName())
	assert.False(t, p1.Equals(p2))
}

func TestBindingNames(t *testing.T) {
	tbl := testTable(t, "t")
	assert.Equal(t, "a", Identity(col(t, tbl, "a")).Result())

	sum, err := NewReduction(Sum, col(t, tbl, "a"), nil)
	require.NoError(t, err)
	assert.Equal(t, "sum", Identity(sum).Result())

	cs, err := NewCountStar(tbl)
	require.NoError(t, err)
	assert.Equal(t, "count", Identity(cs).Result())

	add, err := NewArithmetic(Add, col(t, tbl, "a"), lit(t, 1))
	require.NoError(t, err)
	assert.Equal(t, "", Identity(add).Result())
	assert.Equal(t, "a1", Bind(add, "a1").Result())
}
