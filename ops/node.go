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

// Package ops implements the operation graph: immutable,
// structurally-equal nodes describing values and relations. Nodes
// are built through validated constructors and never mutated; every
// derived operation produces a new node. The package also carries
// the traversal machinery (Walk, Rewrite), the rewrite rules used to
// normalize trees before compilation, and a serialization round-trip.
package ops

import (
	"sync/atomic"

	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

// Node is an operation-graph node.
type Node interface {
	// Equals returns whether this node is structurally
	// equivalent to another node.
	Equals(Node) bool

	walk(Visitor)
}

// Shape distinguishes scalar results from columnar results. An
// operation with at least one columnar operand is columnar
// (broadcasting).
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeColumn
)

func (s Shape) String() string {
	if s == ShapeColumn {
		return "column"
	}
	return "scalar"
}

// Value is a Node that produces a typed value.
type Value interface {
	Node
	// DataType returns the output type of the node.
	DataType() types.DataType
	// Shape returns whether the node is scalar or columnar.
	Shape() Shape
}

// Relation is a Node that produces a table.
type Relation interface {
	Node
	// Schema returns the output schema. It is computed and
	// validated when the node is constructed.
	Schema() *schema.Schema
	// Blocks returns whether the node is an opaque boundary for
	// table-reference resolution (aggregations, projections and
	// explicit self-references are; filters and limits are not).
	Blocks() bool

	parents() []Relation
}

// Visitor is an interface that must be satisfied by the argument to
// Walk.
//
// A Visitor's Visit method is invoked for each node encountered by
// Walk. If the result visitor w is not nil, Walk visits each of the
// children of node with the visitor w, followed by a call of
// w.Visit(nil).
//
// (see also: ast.Visitor)
type Visitor interface {
	Visit(Node) Visitor
}

// Walk traverses a graph in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor
// w for each of the non-nil children of node, followed by a call of
// w.Visit(nil).
//
// (see also: ast.Walk)
func Walk(v Visitor, n Node) {
	w := v.Visit(n)
	if w != nil {
		n.walk(w)
		w.Visit(nil)
	}
}

// Rewriter accepts a Node and returns a new node (or just its
// argument).
type Rewriter interface {
	// Rewrite is applied to nodes in depth-first order, and each
	// node is re-written to use the returned value.
	Rewrite(Node) Node

	// Walk is called during node traversal and the returned
	// Rewriter is used for all the children of Node. If the
	// returned rewriter is nil, then traversal does not proceed
	// past Node.
	Walk(Node) Rewriter
}

type nonleaf interface {
	rewrite(r Rewriter) Node
}

// Rewrite recursively applies a Rewriter in depth-first order.
// Nodes are never mutated: a rewritten interior node is a copy.
func Rewrite(r Rewriter, n Node) Node {
	if n == nil {
		return nil
	}
	nl, ok := n.(nonleaf)
	if ok {
		rc := r.Walk(n)
		if rc != nil {
			n = nl.rewrite(rc)
		}
	}
	return r.Rewrite(n)
}

func rewriteValue(r Rewriter, v Value) Value {
	return Rewrite(r, v).(Value)
}

// Equal returns whether a and b are equivalent. a or b may be nil.
func Equal(a, b Node) bool {
	if a == nil {
		return b == nil
	}
	return b != nil && a.Equals(b)
}

func equalValues(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

func shapeOf(args ...Value) Shape {
	for _, a := range args {
		if a != nil && a.Shape() == ShapeColumn {
			return ShapeColumn
		}
	}
	return ShapeScalar
}

// uniqueCounter generates unique default names for unbound
// parameters and self-references. Process-wide; the only guarantee
// across threads is uniqueness.
var uniqueCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&uniqueCounter, 1)
}

// bumpID advances the counter past an identifier observed during
// decoding so that freshly built nodes cannot collide with it.
func bumpID(n uint64) {
	for {
		cur := atomic.LoadUint64(&uniqueCounter)
		if n <= cur || atomic.CompareAndSwapUint64(&uniqueCounter, cur, n) {
			return
		}
	}
}
