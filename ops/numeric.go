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

// ArithOp is one of the arithmetic operations.
type ArithOp int

const (
	Add ArithOp = iota
	Subtract
	Multiply
	Divide
	Modulus
	Power
	maxArithOp
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulus:
		return "%"
	case Power:
		return "**"
	default:
		return "invalid"
	}
}

// Arithmetic combines two values arithmetically. Besides numeric
// operands it covers temporal arithmetic: timestamp/date/time ±
// interval, differences of same-kind temporal values (an interval),
// interval ± interval and interval * integer.
type Arithmetic struct {
	Op          ArithOp
	Left, Right Value

	typ types.DataType
}

// NewArithmetic validates the operand types and computes the result
// type under the precedence rules. Division always yields float64
// (decimal when either operand is decimal), matching true division.
func NewArithmetic(op ArithOp, left, right Value) (*Arithmetic, error) {
	if op < 0 || op >= maxArithOp {
		return nil, errValidationf("arithmetic", "invalid operator")
	}
	left, err := ArgAny(left)
	if err != nil {
		return nil, err
	}
	right, err = ArgAny(right)
	if err != nil {
		return nil, err
	}
	d, err := arithType(op, left.DataType(), right.DataType())
	if err != nil {
		return nil, err
	}
	return &Arithmetic{Op: op, Left: left, Right: right, typ: d}, nil
}

func arithType(op ArithOp, l, r types.DataType) (types.DataType, error) {
	nullable := l.Nullable() || r.Nullable()
	d, err := arithKind(op, l, r)
	if err != nil {
		return types.DataType{}, err
	}
	if nullable {
		return d.AsNullable(), nil
	}
	return d.AsNonNullable(), nil
}

func arithKind(op ArithOp, l, r types.DataType) (types.DataType, error) {
	switch {
	case l.IsNumeric() && r.IsNumeric():
		if op == Divide {
			if l.IsDecimal() || r.IsDecimal() {
				return types.Unify(l, r)
			}
			return types.Float64Type(), nil
		}
		if op == Power {
			return types.Float64Type(), nil
		}
		return types.Unify(l, r)
	case op == Add && l.Kind() == types.Timestamp && r.IsInterval(),
		op == Add && l.IsInterval() && r.Kind() == types.Timestamp:
		return types.TimestampType(), nil
	case op == Subtract && l.Kind() == types.Timestamp && r.IsInterval():
		return types.TimestampType(), nil
	case op == Add && l.Kind() == types.Date && r.IsInterval(),
		op == Add && l.IsInterval() && r.Kind() == types.Date:
		return types.DateType(), nil
	case op == Subtract && l.Kind() == types.Date && r.IsInterval():
		return types.DateType(), nil
	case op == Add && l.Kind() == types.Time && r.IsInterval():
		return timeShift(r)
	case op == Add && l.IsInterval() && r.Kind() == types.Time:
		return timeShift(l)
	case op == Subtract && l.Kind() == types.Time && r.IsInterval():
		return timeShift(r)
	case op == Subtract && l.Kind() == types.Timestamp && r.Kind() == types.Timestamp:
		return types.IntervalType(types.UnitSecond)
	case op == Subtract && l.Kind() == types.Date && r.Kind() == types.Date:
		return types.IntervalType(types.UnitDay)
	case op == Subtract && l.Kind() == types.Time && r.Kind() == types.Time:
		return types.IntervalType(types.UnitSecond)
	case (op == Add || op == Subtract) && l.IsInterval() && r.IsInterval():
		if l.IntervalUnit() != r.IntervalUnit() {
			return types.DataType{}, types.Errorf("cannot combine intervals with units %q and %q",
				string(l.IntervalUnit()), string(r.IntervalUnit()))
		}
		return types.IntervalType(l.IntervalUnit())
	case op == Multiply && l.IsInterval() && r.IsInteger():
		return types.IntervalType(l.IntervalUnit())
	case op == Multiply && l.IsInteger() && r.IsInterval():
		return types.IntervalType(r.IntervalUnit())
	}
	return types.DataType{}, types.Errorf("operator %s is not defined for %s and %s", op, l, r)
}

// timeShift types a time-of-day shift. Only units below a day apply:
// a calendar unit has no fixed length within a day.
func timeShift(iv types.DataType) (types.DataType, error) {
	switch iv.IntervalUnit() {
	case types.UnitHour, types.UnitMinute, types.UnitSecond,
		types.UnitMillisecond, types.UnitMicrosecond, types.UnitNanosecond:
		return types.TimeType(), nil
	}
	return types.DataType{}, types.Errorf("cannot shift a time value by interval unit %q",
		string(iv.IntervalUnit()))
}

func (a *Arithmetic) DataType() types.DataType { return a.typ }
func (a *Arithmetic) Shape() Shape             { return shapeOf(a.Left, a.Right) }

func (a *Arithmetic) walk(v Visitor) {
	Walk(v, a.Left)
	Walk(v, a.Right)
}

func (a *Arithmetic) rewrite(r Rewriter) Node {
	cp := *a
	cp.Left = rewriteValue(r, a.Left)
	cp.Right = rewriteValue(r, a.Right)
	return &cp
}

func (a *Arithmetic) Equals(n Node) bool {
	o, ok := n.(*Arithmetic)
	return ok && a.Op == o.Op && a.Left.Equals(o.Left) && a.Right.Equals(o.Right)
}

// UnaryOp is one of the unary arithmetic operations.
type UnaryOp int

const (
	Negate UnaryOp = iota
	Abs
	maxUnaryOp
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "-"
	case Abs:
		return "abs"
	default:
		return "invalid"
	}
}

// Unary applies a unary arithmetic operation. Negate also accepts
// intervals.
type Unary struct {
	Op  UnaryOp
	Arg Value
}

// NewUnary validates the operand type.
func NewUnary(op UnaryOp, arg Value) (*Unary, error) {
	if op < 0 || op >= maxUnaryOp {
		return nil, errValidationf("unary", "invalid operator")
	}
	rule := ArgNumeric
	if op == Negate {
		rule = OneOf(ArgNumeric, ArgInterval)
	}
	arg, err := rule(arg)
	if err != nil {
		return nil, err
	}
	return &Unary{Op: op, Arg: arg}, nil
}

func (u *Unary) DataType() types.DataType { return u.Arg.DataType() }
func (u *Unary) Shape() Shape             { return u.Arg.Shape() }
func (u *Unary) walk(v Visitor)           { Walk(v, u.Arg) }

func (u *Unary) rewrite(r Rewriter) Node {
	cp := *u
	cp.Arg = rewriteValue(r, u.Arg)
	return &cp
}

func (u *Unary) Equals(n Node) bool {
	o, ok := n.(*Unary)
	return ok && u.Op == o.Op && u.Arg.Equals(o.Arg)
}
