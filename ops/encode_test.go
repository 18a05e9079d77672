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
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/types"
)

func roundTrip(t *testing.T, n Node) Node {
	t.Helper()
	buf, err := Encode(n)
	require.NoError(t, err)
	back, err := Decode(buf)
	require.NoError(t, err)
	require.True(t, n.Equals(back), "decoded node differs:\n in: %#v\nout: %#v", n, back)
	return back
}

func TestLiteralRoundTrip(t *testing.T) {
	dec, err := types.DecimalType(9, 2)
	require.NoError(t, err)
	rat, err := NewTypedLiteral(big.NewRat(315, 100), dec)
	require.NoError(t, err)

	u64, err := NewTypedLiteral(uint64(math.MaxUint64), types.UInt64Type())
	require.NoError(t, err)

	cases := []Node{
		lit(t, int64(math.MaxInt64)),
		lit(t, int64(math.MinInt64)),
		u64,
		rat,
		lit(t, 2.5),
		lit(t, "hello"),
		lit(t, true),
		lit(t, time.Date(2024, 6, 1, 8, 30, 0, 123456789, time.UTC)),
		lit(t, 90*time.Second),
		NullLiteral(types.Int64Type()),
	}
	for _, n := range cases {
		roundTrip(t, n)
	}
}

func TestExpressionRoundTrip(t *testing.T) {
	tbl := testTable(t, "t")
	a := col(t, tbl, "a")

	add, err := NewArithmetic(Add, a, lit(t, 1))
	require.NoError(t, err)
	cmp, err := NewComparison(Greater, add, col(t, tbl, "b"))
	require.NoError(t, err)
	both, err := NewLogical(And, cmp, col(t, tbl, "flag"))
	require.NoError(t, err)
	roundTrip(t, both)

	cond, err := NewComparison(Greater, a, lit(t, 0))
	require.NoError(t, err)
	c, err := NewSearchedCase([]Value{cond}, []Value{lit(t, "pos")}, lit(t, "neg"))
	require.NoError(t, err)
	roundTrip(t, c)
}

func TestRelationRoundTrip(t *testing.T) {
	left, right := joinTables(t)
	key, err := NewComparison(Equals, col(t, left, "playerID"), col(t, right, "playerID"))
	require.NoError(t, err)
	j, err := NewJoin(InnerJoin, left, right, []Value{key}, "", "")
	require.NoError(t, err)

	sum, err := NewReduction(Sum, col(t, j, "G"), nil)
	require.NoError(t, err)
	agg, err := NewAggregation(j,
		[]Binding{Bind(sum, "games")},
		[]Binding{Identity(col(t, j, "playerID"))},
		nil)
	require.NoError(t, err)
	lim, err := NewLimit(agg, 10, 0)
	require.NoError(t, err)

	back := roundTrip(t, lim).(Relation)
	assert.True(t, back.Schema().Equals(lim.Schema()))
}

func TestWindowRoundTrip(t *testing.T) {
	tbl := testTable(t, "t")
	sum, err := NewReduction(Sum, col(t, tbl, "a"), nil)
	require.NoError(t, err)
	frame, err := NewWindowFrame(Rows, Unbounded(), CurrentRow())
	require.NoError(t, err)
	spec, err := NewWindow(
		[]Value{col(t, tbl, "s")},
		[]SortKey{{Expr: col(t, tbl, "ts")}},
		frame)
	require.NoError(t, err)
	w, err := NewWindowFunction(sum, spec)
	require.NoError(t, err)
	roundTrip(t, w)
}

func TestCompressedRoundTrip(t *testing.T) {
	tbl := testTable(t, "t")
	pred, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	sel, err := NewSelection(tbl, nil, []Value{pred}, nil)
	require.NoError(t, err)

	buf, err := EncodeCompressed(sel)
	require.NoError(t, err)
	back, err := DecodeCompressed(buf)
	require.NoError(t, err)
	assert.True(t, sel.Equals(back))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{"type": "no-such-node"}`))
	require.Error(t, err)
	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeValueRejectsRelation(t *testing.T) {
	tbl := testTable(t, "t")
	buf, err := Encode(tbl)
	require.NoError(t, err)
	_, err = DecodeValue(buf)
	require.Error(t, err)
	_, err = DecodeRelation(buf)
	require.NoError(t, err)
}

func TestHashMatchesEquality(t *testing.T) {
	tbl := testTable(t, "t")
	p1, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	p2, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	p3, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 1))
	require.NoError(t, err)

	h1, err := Hash(p1)
	require.NoError(t, err)
	h2, err := Hash(p2)
	require.NoError(t, err)
	h3, err := Hash(p3)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestLiteralProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("int literals survive the round trip", prop.ForAll(
		func(v int64) bool {
			l, err := NewTypedLiteral(v, types.Int64Type())
			if err != nil {
				return false
			}
			buf, err := Encode(l)
			if err != nil {
				return false
			}
			back, err := Decode(buf)
			return err == nil && l.Equals(back)
		},
		gen.Int64(),
	))

	properties.Property("string literals survive the round trip", prop.ForAll(
		func(s string) bool {
			l, err := NewLiteral(s)
			if err != nil {
				return false
			}
			buf, err := Encode(l)
			if err != nil {
				return false
			}
			back, err := Decode(buf)
			return err == nil && l.Equals(back)
		},
		gen.AnyString(),
	))

	properties.Property("equal literals hash equal", prop.ForAll(
		func(v int64) bool {
			a, err := NewTypedLiteral(v, types.Int64Type())
			if err != nil {
				return false
			}
			b, err := NewTypedLiteral(v, types.Int64Type())
			if err != nil {
				return false
			}
			ha, err := Hash(a)
			if err != nil {
				return false
			}
			hb, err := Hash(b)
			return err == nil && ha == hb
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
