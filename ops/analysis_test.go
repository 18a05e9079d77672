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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenPredicate(t *testing.T) {
	tbl := testTable(t, "t")
	p1, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	p2, err := NewComparison(Less, col(t, tbl, "a"), lit(t, 100))
	require.NoError(t, err)
	p3 := col(t, tbl, "flag")

	and12, err := NewLogical(And, p1, p2)
	require.NoError(t, err)
	all, err := NewLogical(And, and12, p3)
	require.NoError(t, err)

	parts := FlattenPredicate(all)
	require.Len(t, parts, 3)
	assert.True(t, parts[0].Equals(p1))
	assert.True(t, parts[1].Equals(p2))
	assert.True(t, parts[2].Equals(p3))

	// OR is opaque to flattening
	or, err := NewLogical(Or, p1, p2)
	require.NoError(t, err)
	assert.Len(t, FlattenPredicate(or), 1)

	back := ConjoinPredicates(parts)
	assert.True(t, back.Equals(all))
}

func TestWalkVisitsEverything(t *testing.T) {
	tbl := testTable(t, "t")
	sum, err := NewArithmetic(Add, col(t, tbl, "a"), lit(t, 1))
	require.NoError(t, err)

	rec := &recorder{}
	Walk(rec, sum)
	assert.Equal(t, []string{"arith", "col", "table", "lit"}, rec.kinds)
}

type recorder struct {
	kinds []string
}

func (r *recorder) Visit(n Node) Visitor {
	switch n.(type) {
	case nil:
		return nil
	case *Arithmetic:
		r.kinds = append(r.kinds, "arith")
	case *Column:
		r.kinds = append(r.kinds, "col")
	case *Literal:
		r.kinds = append(r.kinds, "lit")
	case *UnboundTable:
		r.kinds = append(r.kinds, "table")
	}
	return r
}

func TestSubstituteRelation(t *testing.T) {
	tbl := testTable(t, "t")
	view, err := NewSelfReference(tbl)
	require.NoError(t, err)

	pred, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)

	out := Substitute(pred, tbl, view).(*Comparison)
	c := out.Left.(*Column)
	assert.True(t, c.Rel.Equals(view))

	// the original is untouched
	assert.True(t, pred.Left.(*Column).Rel.Equals(tbl))
}

func TestRootTablesThroughFilters(t *testing.T) {
	tbl := testTable(t, "t")
	pred, err := NewComparison(Greater, col(t, tbl, "a"), lit(t, 0))
	require.NoError(t, err)
	filtered, err := NewSelection(tbl, nil, []Value{pred}, nil)
	require.NoError(t, err)
	limited, err := NewLimit(filtered, 10, 0)
	require.NoError(t, err)

	roots := RootTables(limited)
	assert.Contains(t, roots, Relation(limited))
	assert.Contains(t, roots, Relation(filtered))
	assert.Contains(t, roots, Relation(tbl))

	// a projection blocks root resolution
	sel, err := NewSelection(tbl, []Binding{Identity(col(t, tbl, "a"))}, nil, nil)
	require.NoError(t, err)
	roots = RootTables(sel)
	assert.Contains(t, roots, Relation(sel))
	assert.NotContains(t, roots, Relation(tbl))
}

func TestWindowizeWrapsBareReductions(t *testing.T) {
	tbl := testTable(t, "t")
	sum, err := NewReduction(Sum, col(t, tbl, "a"), nil)
	require.NoError(t, err)

	// sum(a) / 2 in a projection becomes a window function
	half, err := NewArithmetic(Divide, sum, lit(t, 2))
	require.NoError(t, err)

	out := Windowize(half).(*Arithmetic)
	w, ok := out.Left.(*WindowFunction)
	require.True(t, ok)
	assert.True(t, w.Func.Equals(sum))

	// an explicit window spec is left alone
	again := Windowize(out)
	assert.True(t, again.Equals(out))
}

func TestWindowizeLeavesPlainColumns(t *testing.T) {
	tbl := testTable(t, "t")
	c := col(t, tbl, "a")
	assert.True(t, c.Equals(Windowize(c)))
}
