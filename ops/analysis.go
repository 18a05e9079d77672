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

// FlattenPredicate splits a predicate into its top-level conjuncts:
// nested ANDs are flattened, everything else passes through as a
// single element.
func FlattenPredicate(p Value) []Value {
	if l, ok := p.(*Logical); ok && l.Op == And {
		return append(FlattenPredicate(l.Left), FlattenPredicate(l.Right)...)
	}
	return []Value{p}
}

// ConjoinPredicates folds predicates back into a single AND tree;
// nil for an empty slice. The inputs must already be validated
// booleans.
func ConjoinPredicates(ps []Value) Value {
	if len(ps) == 0 {
		return nil
	}
	out := ps[0]
	for _, p := range ps[1:] {
		out = &Logical{Op: And, Left: out, Right: p}
	}
	return out
}

type substituter struct {
	from, to Node
}

func (s *substituter) Rewrite(n Node) Node {
	if n.Equals(s.from) {
		return s.to
	}
	return n
}

func (s *substituter) Walk(n Node) Rewriter {
	if n.Equals(s.from) {
		return nil
	}
	return s
}

// Substitute replaces every node equal to from with to, returning a
// new graph. The original is left untouched.
func Substitute(n Node, from, to Node) Node {
	return Rewrite(&substituter{from: from, to: to}, n)
}

// RootTables returns the relations an expression over rel may
// reference columns of: rel itself plus its ancestors up to (and
// including) the nearest blocking relation on each path. A bare
// filter or limit is transparent; projections, aggregations, joins
// and self-references are boundaries.
func RootTables(rel Relation) []Relation {
	var roots []Relation
	var visit func(Relation)
	visit = func(r Relation) {
		roots = append(roots, r)
		if r.Blocks() {
			return
		}
		for _, p := range r.parents() {
			visit(p)
		}
	}
	visit(rel)
	return roots
}

func rootedIn(rel, root Relation) bool {
	for _, r := range RootTables(root) {
		if rel.Equals(r) {
			return true
		}
	}
	return false
}

// rootChecker walks value-level structure only: it inspects each
// column's source relation without descending into relation subtrees.
type rootChecker struct {
	roots []Relation
	err   error
}

func (c *rootChecker) Visit(n Node) Visitor {
	if n == nil || c.err != nil {
		return nil
	}
	switch n := n.(type) {
	case *Column:
		for _, r := range c.roots {
			if n.Rel.Equals(r) {
				return nil
			}
		}
		c.err = &SchemaError{
			Msg:     "column is not derived from the source relation",
			Missing: []string{n.Name},
		}
		return nil
	case Relation:
		return nil
	}
	return c
}

// validateRoots checks that every column referenced by the given
// expressions resolves to source (or a transparent ancestor of it).
func validateRoots(source Relation, exprs ...Value) error {
	c := &rootChecker{roots: RootTables(source)}
	for _, e := range exprs {
		Walk(c, e)
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

// windowizer wraps bare reductions in whole-relation window
// functions so they broadcast over rows instead of collapsing the
// relation.
type windowizer struct{}

func (windowizer) Rewrite(n Node) Node {
	switch n.(type) {
	case *Reduction, *CountStar:
		return &WindowFunction{Func: n.(Value), Spec: &Window{}}
	}
	return n
}

func (w windowizer) Walk(n Node) Rewriter {
	switch n.(type) {
	case *WindowFunction, Relation:
		// already windowed, or a source boundary
		return nil
	}
	return w
}

// Windowize rewrites every bare reduction inside v into a window
// function over the whole relation. Reductions already inside a
// window function are untouched. This runs on projection expressions,
// where a reduction means "broadcast the aggregate back over rows"
// rather than "collapse to one row".
func Windowize(v Value) Value {
	return Rewrite(windowizer{}, v).(Value)
}

// WindowizeBindings applies Windowize to every projected expression.
func WindowizeBindings(bs []Binding) []Binding {
	out := make([]Binding, len(bs))
	for i, b := range bs {
		out[i] = b
		if ContainsReduction(b.Expr) {
			out[i].Expr = Windowize(b.Expr)
		}
	}
	return out
}
