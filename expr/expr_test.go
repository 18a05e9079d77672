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

func TestArithmeticPromotion(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)
	b, err := tbl.Num("b")
	require.NoError(t, err)

	assert.Equal(t, types.Float64, a.Add(b).DataType().Kind())
	assert.Equal(t, types.Float64, a.Div(Int(2)).DataType().Kind())
	assert.Equal(t, types.Int64, a.Add(Int(1)).DataType().Kind())
}

func TestNamePropagation(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	assert.Equal(t, "a", a.Name())
	assert.Equal(t, "renamed", a.As("renamed").Name())
	// a derived expression has no name until renamed
	assert.Equal(t, "", a.Add(Int(1)).Name())

	total, err := a.Sum()
	require.NoError(t, err)
	assert.Equal(t, "sum", total.Name())
}

func TestStringOps(t *testing.T) {
	tbl := demoTable(t)
	s, err := tbl.Str("s")
	require.NoError(t, err)

	assert.Equal(t, types.String, s.Lower().DataType().Kind())
	assert.Equal(t, types.Int32, s.Length().DataType().Kind())
	assert.Equal(t, types.Boolean, s.Contains(Text("x")).DataType().Kind())

	_, err = s.Like("%abc%")
	require.NoError(t, err)
}

func TestTimeOps(t *testing.T) {
	tbl := demoTable(t)
	ts, err := tbl.Time("ts")
	require.NoError(t, err)

	assert.Equal(t, types.Int32, ts.Year().DataType().Kind())

	day, err := Span(1, types.UnitDay)
	require.NoError(t, err)
	shifted, err := ts.Add(day)
	require.NoError(t, err)
	assert.Equal(t, types.Timestamp, shifted.DataType().Kind())

	diff, err := ts.Diff(shifted)
	require.NoError(t, err)
	assert.True(t, diff.DataType().IsInterval())
}

func TestTimeOfDayShift(t *testing.T) {
	sch, err := schema.ParsePairs([][2]string{{"at", "time"}})
	require.NoError(t, err)
	tbl, err := NewTable("shifts", sch)
	require.NoError(t, err)
	at, err := tbl.Time("at")
	require.NoError(t, err)

	hours, err := Span(2, types.UnitHour)
	require.NoError(t, err)
	shifted, err := at.Add(hours)
	require.NoError(t, err)
	assert.Equal(t, types.Time, shifted.DataType().Kind())

	gap, err := at.Diff(shifted)
	require.NoError(t, err)
	assert.Equal(t, types.UnitSecond, gap.DataType().IntervalUnit())

	// calendar units have no fixed length within a day
	day, err := Span(1, types.UnitDay)
	require.NoError(t, err)
	_, err = at.Add(day)
	require.Error(t, err)
}

func TestScalarReductionRejected(t *testing.T) {
	_, err := Int(5).Sum()
	require.Error(t, err)
	var ve *ops.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = Text("x").Max()
	require.Error(t, err)
}

func TestIntervalUnitMismatch(t *testing.T) {
	day, err := Span(1, types.UnitDay)
	require.NoError(t, err)
	sec, err := Span(30, types.UnitSecond)
	require.NoError(t, err)

	_, err = day.Add(sec)
	require.Error(t, err)

	doubled, err := day.Mul(Int(2))
	require.NoError(t, err)
	assert.True(t, doubled.DataType().IsInterval())
}

func TestSearchedCaseBuilder(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	v, err := Case().
		When(a.Lt(Int(0)), Text("neg")).
		When(a.Gt(Int(0)), Text("pos")).
		Else(Text("zero")).
		End()
	require.NoError(t, err)
	assert.Equal(t, types.String, v.DataType().Kind())
	// string literals are nullable, so the result is too
	assert.True(t, v.DataType().Nullable())

	// no default: nullable result
	v, err = Case().When(a.Lt(Int(0)), Text("neg")).End()
	require.NoError(t, err)
	assert.True(t, v.DataType().Nullable())

	_, err = Case().End()
	require.Error(t, err)
}

func TestSimpleCaseBuilder(t *testing.T) {
	tbl := demoTable(t)
	s, err := tbl.Str("s")
	require.NoError(t, err)

	v, err := CaseOf(s).
		When(Text("a"), Int(1)).
		When(Text("b"), Int(2)).
		Else(Int(0)).
		End()
	require.NoError(t, err)
	assert.True(t, v.DataType().IsInteger())

	// case values must be comparable with the base
	_, err = CaseOf(s).When(Int(1), Int(1)).End()
	require.Error(t, err)
}

func TestCoalesceAndIfElse(t *testing.T) {
	tbl := demoTable(t)
	b, err := tbl.Num("b")
	require.NoError(t, err)

	v, err := Coalesce(b, Float(0))
	require.NoError(t, err)
	assert.Equal(t, types.Float64, v.DataType().Kind())

	flag, err := tbl.Bool("flag")
	require.NoError(t, err)
	v, err = IfElse(flag, Int(1), Int(0))
	require.NoError(t, err)
	assert.True(t, v.DataType().IsInteger())
}

func TestWindowBuilder(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)
	s, err := tbl.Str("s")
	require.NoError(t, err)
	ts, err := tbl.Time("ts")
	require.NoError(t, err)
	total, err := a.Sum()
	require.NoError(t, err)

	v, err := Window().
		PartitionBy(s).
		OrderBy(Asc(ts)).
		Rows(ops.Unbounded(), ops.CurrentRow()).
		Over(total)
	require.NoError(t, err)

	w, ok := v.Op().(*ops.WindowFunction)
	require.True(t, ok)
	assert.Len(t, w.Spec.PartitionBy, 1)
	require.NotNil(t, w.Spec.Frame)
	assert.Equal(t, ops.Rows, w.Spec.Frame.Kind)

	// a plain column cannot be windowed
	_, err = Window().Over(a)
	require.Error(t, err)
}

func TestAnalyticFunctions(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)
	ts, err := tbl.Time("ts")
	require.NoError(t, err)

	rn, err := Window().OrderBy(Asc(ts)).Over(RowNumber())
	require.NoError(t, err)
	assert.Equal(t, types.Int64, rn.DataType().Kind())
	assert.False(t, rn.DataType().Nullable())

	prev, err := Lag(a, Int(1))
	require.NoError(t, err)
	assert.True(t, prev.DataType().Nullable())

	_, err = NTile(Num{})
	require.Error(t, err)
}

func TestCastWrapper(t *testing.T) {
	tbl := demoTable(t)
	a, err := tbl.Num("a")
	require.NoError(t, err)

	v, err := Cast(a, types.StringType())
	require.NoError(t, err)
	_, ok := v.(Str)
	assert.True(t, ok)

	flag, err := tbl.Bool("flag")
	require.NoError(t, err)
	_, err = Cast(flag, types.TimestampType())
	require.Error(t, err)
}
