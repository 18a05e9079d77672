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

import "github.com/GrapeBaBa/ibis/types"

// CompareOp is one of the comparison operations.
type CompareOp int

const (
	Equals CompareOp = iota
	NotEquals
	Less
	LessEqual
	Greater
	GreaterEqual
	maxCompareOp
)

func (op CompareOp) String() string {
	switch op {
	case Equals:
		return "=="
	case NotEquals:
		return "!="
	case Less:
		return "<"
	case LessEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterEqual:
		return ">="
	default:
		return "invalid"
	}
}

// Comparison compares two values of mutually comparable types.
type Comparison struct {
	Op          CompareOp
	Left, Right Value
}

// NewComparison validates that the operand types share a common
// supertype; it fails with a TypeError otherwise.
func NewComparison(op CompareOp, left, right Value) (*Comparison, error) {
	if op < 0 || op >= maxCompareOp {
		return nil, errValidationf("comparison", "invalid operator")
	}
	left, err := ArgAny(left)
	if err != nil {
		return nil, err
	}
	right, err = ArgAny(right)
	if err != nil {
		return nil, err
	}
	if err := ArgComparable(left, right); err != nil {
		return nil, err
	}
	return &Comparison{Op: op, Left: left, Right: right}, nil
}

func (c *Comparison) DataType() types.DataType {
	d := types.BooleanType()
	if !c.Left.DataType().Nullable() && !c.Right.DataType().Nullable() {
		d = d.AsNonNullable()
	}
	return d
}

func (c *Comparison) Shape() Shape { return shapeOf(c.Left, c.Right) }

func (c *Comparison) walk(v Visitor) {
	Walk(v, c.Left)
	Walk(v, c.Right)
}

func (c *Comparison) rewrite(r Rewriter) Node {
	cp := *c
	cp.Left = rewriteValue(r, c.Left)
	cp.Right = rewriteValue(r, c.Right)
	return &cp
}

func (c *Comparison) Equals(n Node) bool {
	o, ok := n.(*Comparison)
	return ok && c.Op == o.Op && c.Left.Equals(o.Left) && c.Right.Equals(o.Right)
}

// Between tests lower <= arg <= upper.
type Between struct {
	Arg, Lower, Upper Value
}

// NewBetween validates that all three operands are mutually
// comparable.
func NewBetween(arg, lower, upper Value) (*Between, error) {
	arg, err := ArgAny(arg)
	if err != nil {
		return nil, err
	}
	lower, err = ArgAny(lower)
	if err != nil {
		return nil, err
	}
	upper, err = ArgAny(upper)
	if err != nil {
		return nil, err
	}
	if err := ArgComparable(arg, lower); err != nil {
		return nil, err
	}
	if err := ArgComparable(arg, upper); err != nil {
		return nil, err
	}
	return &Between{Arg: arg, Lower: lower, Upper: upper}, nil
}

func (b *Between) DataType() types.DataType { return types.BooleanType() }
func (b *Between) Shape() Shape             { return shapeOf(b.Arg, b.Lower, b.Upper) }

func (b *Between) walk(v Visitor) {
	Walk(v, b.Arg)
	Walk(v, b.Lower)
	Walk(v, b.Upper)
}

func (b *Between) rewrite(r Rewriter) Node {
	cp := *b
	cp.Arg = rewriteValue(r, b.Arg)
	cp.Lower = rewriteValue(r, b.Lower)
	cp.Upper = rewriteValue(r, b.Upper)
	return &cp
}

func (b *Between) Equals(n Node) bool {
	o, ok := n.(*Between)
	return ok && b.Arg.Equals(o.Arg) && b.Lower.Equals(o.Lower) && b.Upper.Equals(o.Upper)
}

// LogicalOp is one of the boolean connectives.
type LogicalOp int

const (
	And LogicalOp = iota
	Or
	Xor
	maxLogicalOp
)

func (op LogicalOp) String() string {
	switch op {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Xor:
		return "XOR"
	default:
		return "invalid"
	}
}

// Logical combines two boolean values.
type Logical struct {
	Op          LogicalOp
	Left, Right Value
}

// NewLogical requires boolean-typed operands.
func NewLogical(op LogicalOp, left, right Value) (*Logical, error) {
	if op < 0 || op >= maxLogicalOp {
		return nil, errValidationf("logical", "invalid operator")
	}
	left, err := ArgBoolean(left)
	if err != nil {
		return nil, err
	}
	right, err = ArgBoolean(right)
	if err != nil {
		return nil, err
	}
	return &Logical{Op: op, Left: left, Right: right}, nil
}

func (l *Logical) DataType() types.DataType {
	d := types.BooleanType()
	if !l.Left.DataType().Nullable() && !l.Right.DataType().Nullable() {
		d = d.AsNonNullable()
	}
	return d
}

func (l *Logical) Shape() Shape { return shapeOf(l.Left, l.Right) }

func (l *Logical) walk(v Visitor) {
	Walk(v, l.Left)
	Walk(v, l.Right)
}

func (l *Logical) rewrite(r Rewriter) Node {
	cp := *l
	cp.Left = rewriteValue(r, l.Left)
	cp.Right = rewriteValue(r, l.Right)
	return &cp
}

func (l *Logical) Equals(n Node) bool {
	o, ok := n.(*Logical)
	return ok && l.Op == o.Op && l.Left.Equals(o.Left) && l.Right.Equals(o.Right)
}

// Not negates a boolean value.
type Not struct {
	Arg Value
}

// NewNot requires a boolean-typed operand.
func NewNot(arg Value) (*Not, error) {
	arg, err := ArgBoolean(arg)
	if err != nil {
		return nil, err
	}
	return &Not{Arg: arg}, nil
}

func (n *Not) DataType() types.DataType { return n.Arg.DataType() }
func (n *Not) Shape() Shape             { return n.Arg.Shape() }
func (n *Not) walk(v Visitor)           { Walk(v, n.Arg) }

func (n *Not) rewrite(r Rewriter) Node {
	cp := *n
	cp.Arg = rewriteValue(r, n.Arg)
	return &cp
}

func (n *Not) Equals(x Node) bool {
	o, ok := x.(*Not)
	return ok && n.Arg.Equals(o.Arg)
}

// IsNull tests a value for null-ness; Negate flips it to IS NOT
// NULL. The result is never itself null.
type IsNull struct {
	Arg    Value
	Negate bool
}

// NewIsNull constructs an IS [NOT] NULL test.
func NewIsNull(arg Value, negate bool) (*IsNull, error) {
	arg, err := ArgAny(arg)
	if err != nil {
		return nil, err
	}
	return &IsNull{Arg: arg, Negate: negate}, nil
}

func (i *IsNull) DataType() types.DataType {
	return types.BooleanType().AsNonNullable()
}

func (i *IsNull) Shape() Shape   { return i.Arg.Shape() }
func (i *IsNull) walk(v Visitor) { Walk(v, i.Arg) }

func (i *IsNull) rewrite(r Rewriter) Node {
	cp := *i
	cp.Arg = rewriteValue(r, i.Arg)
	return &cp
}

func (i *IsNull) Equals(n Node) bool {
	o, ok := n.(*IsNull)
	return ok && i.Negate == o.Negate && i.Arg.Equals(o.Arg)
}
