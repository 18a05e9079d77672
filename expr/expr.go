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

// Package expr is the user-facing expression layer: thin typed
// wrappers over the operation graph. A wrapper carries an operation
// node plus an optional display name; deriving a new expression
// builds a new node and never mutates. Methods whose validity is
// guaranteed by the wrapper types are infallible; methods that can
// fail type or schema resolution return an error.
package expr

import (
	"fmt"

	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/types"
)

// Value is the interface shared by all typed expression wrappers.
type Value interface {
	// Op returns the underlying operation node.
	Op() ops.Value
	// DataType returns the expression's output type.
	DataType() types.DataType
	// Name returns the display name: the explicit name when set,
	// the derived one otherwise, "" when neither exists.
	Name() string
}

type value struct {
	op   ops.Value
	name string
}

func (v value) Op() ops.Value            { return v.op }
func (v value) DataType() types.DataType { return v.op.DataType() }

func (v value) Name() string {
	if v.name != "" {
		return v.name
	}
	return ops.NameOf(v.op)
}

// Any is a value of arbitrary type; the typed wrappers embed richer
// method sets.
type Any struct{ value }

// Bool is a boolean-typed value.
type Bool struct{ value }

// Num is a numeric (integer, float or decimal) value.
type Num struct{ value }

// Str is a string-typed value.
type Str struct{ value }

// Time is a timestamp-, date- or time-typed value.
type Time struct{ value }

// Interval is an interval-typed value.
type Interval struct{ value }

// Geo is a geometry- or geography-typed value.
type Geo struct{ value }

// wrap picks the wrapper matching the node's type.
func wrap(op ops.Value) Value {
	return wrapNamed(op, "")
}

func wrapNamed(op ops.Value, name string) Value {
	v := value{op: op, name: name}
	d := op.DataType()
	switch {
	case d.IsBoolean():
		return Bool{v}
	case d.IsNumeric():
		return Num{v}
	case d.IsString():
		return Str{v}
	case d.IsInterval():
		return Interval{v}
	case d.IsTemporal():
		return Time{v}
	case d.IsGeospatial():
		return Geo{v}
	default:
		return Any{v}
	}
}

// must unwraps constructor results that cannot fail given the
// wrapper's type guarantees. A panic here is a bug in this package.
func must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("expr: internal invariant violated: %v", err))
	}
	return v
}

func boolOf(op ops.Value, err error) (Bool, error) {
	if err != nil {
		return Bool{}, err
	}
	return Bool{value{op: op}}, nil
}

// operands

func builtin(f ops.BuiltinOp, args ...Value) (ops.Value, error) {
	raw := make([]ops.Value, len(args))
	for i, a := range args {
		raw[i] = a.Op()
	}
	return ops.NewBuiltin(f, raw...)
}

// As renames the expression.
func (v Any) As(name string) Any           { v.name = name; return v }
func (v Bool) As(name string) Bool         { v.name = name; return v }
func (v Num) As(name string) Num           { v.name = name; return v }
func (v Str) As(name string) Str           { v.name = name; return v }
func (v Time) As(name string) Time         { v.name = name; return v }
func (v Interval) As(name string) Interval { v.name = name; return v }
func (v Geo) As(name string) Geo           { v.name = name; return v }

// generic operations, available on every wrapper through Value

// Cast re-types a value; casting to the current type is a no-op.
func Cast(v Value, to types.DataType) (Value, error) {
	op, err := ops.NewCast(v.Op(), to)
	if err != nil {
		return nil, err
	}
	return wrapNamed(op, v.Name()), nil
}

// Eq compares two values for equality; they must share a supertype.
func Eq(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.Equals, a, b))
}

// Ne is the negated equality comparison.
func Ne(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.NotEquals, a, b))
}

// Lt compares a < b.
func Lt(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.Less, a, b))
}

// Le compares a <= b.
func Le(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.LessEqual, a, b))
}

// Gt compares a > b.
func Gt(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.Greater, a, b))
}

// Ge compares a >= b.
func Ge(a, b Value) (Bool, error) {
	return boolOf(cmp(ops.GreaterEqual, a, b))
}

func cmp(op ops.CompareOp, a, b Value) (ops.Value, error) {
	return ops.NewComparison(op, a.Op(), b.Op())
}

// Between tests lower <= v <= upper.
func Between(v, lower, upper Value) (Bool, error) {
	return boolOf(ops.NewBetween(v.Op(), lower.Op(), upper.Op()))
}

// In tests membership in a list of options.
func In(v Value, options ...Value) (Bool, error) {
	raw := make([]ops.Value, len(options))
	for i, o := range options {
		raw[i] = o.Op()
	}
	return boolOf(ops.NewInValues(v.Op(), raw))
}

// IsNull tests v for null.
func IsNull(v Value) Bool {
	return Bool{value{op: must(ops.NewIsNull(v.Op(), false))}}
}

// NotNull tests v for non-null.
func NotNull(v Value) Bool {
	return Bool{value{op: must(ops.NewIsNull(v.Op(), true))}}
}

// Coalesce yields the first non-null argument.
func Coalesce(vs ...Value) (Value, error) {
	op, err := builtin(ops.Coalesce, vs...)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Greatest yields the largest argument.
func Greatest(vs ...Value) (Value, error) {
	op, err := builtin(ops.Greatest, vs...)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Least yields the smallest argument.
func Least(vs ...Value) (Value, error) {
	op, err := builtin(ops.Least, vs...)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// NullIf yields null when a equals b, a otherwise.
func NullIf(a, b Value) (Value, error) {
	op, err := builtin(ops.NullIf, a, b)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// IfElse picks t or f by cond.
func IfElse(cond Bool, t, f Value) (Value, error) {
	op, err := builtin(ops.IfElse, cond, t, f)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Min aggregates to the smallest value of any orderable expression.
func Min(v Value) (Value, error) {
	op, err := ops.NewReduction(ops.Min, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Max aggregates to the largest value of any orderable expression.
func Max(v Value) (Value, error) {
	op, err := ops.NewReduction(ops.Max, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// CountValues counts non-null values of the expression.
func CountValues(v Value) (Num, error) {
	op, err := ops.NewReduction(ops.Count, v.Op(), nil)
	if err != nil {
		return Num{}, err
	}
	return Num{value{op: op}}, nil
}

// CountDistinct counts distinct non-null values of the expression.
func CountDistinct(v Value) (Num, error) {
	op, err := ops.NewReduction(ops.CountDistinct, v.Op(), nil)
	if err != nil {
		return Num{}, err
	}
	return Num{value{op: op}}, nil
}

// First aggregates to the first value in order.
func First(v Value) (Value, error) {
	op, err := ops.NewReduction(ops.First, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Last aggregates to the last value in order.
func Last(v Value) (Value, error) {
	op, err := ops.NewReduction(ops.Last, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Bool methods

// And conjoins with other.
func (v Bool) And(other Bool) Bool {
	return Bool{value{op: must(ops.NewLogical(ops.And, v.op, other.op))}}
}

// Or disjoins with other.
func (v Bool) Or(other Bool) Bool {
	return Bool{value{op: must(ops.NewLogical(ops.Or, v.op, other.op))}}
}

// Xor is the exclusive or.
func (v Bool) Xor(other Bool) Bool {
	return Bool{value{op: must(ops.NewLogical(ops.Xor, v.op, other.op))}}
}

// Not negates the value.
func (v Bool) Not() Bool {
	return Bool{value{op: must(ops.NewNot(v.op))}}
}

// AnyTrue aggregates to true when any input is true.
func (v Bool) AnyTrue() (Bool, error) {
	return boolOf(reduce(ops.Any, v.op))
}

// AllTrue aggregates to true when every input is true.
func (v Bool) AllTrue() (Bool, error) {
	return boolOf(reduce(ops.All, v.op))
}

func reduce(op ops.ReductionOp, arg ops.Value) (ops.Value, error) {
	return ops.NewReduction(op, arg, nil)
}

// Num methods

func (v Num) arith(op ops.ArithOp, other Num) Num {
	return Num{value{op: must(ops.NewArithmetic(op, v.op, other.op))}}
}

// Add computes v + other.
func (v Num) Add(other Num) Num { return v.arith(ops.Add, other) }

// Sub computes v - other.
func (v Num) Sub(other Num) Num { return v.arith(ops.Subtract, other) }

// Mul computes v * other.
func (v Num) Mul(other Num) Num { return v.arith(ops.Multiply, other) }

// Div computes true division; the result is floating (or decimal).
func (v Num) Div(other Num) Num { return v.arith(ops.Divide, other) }

// Mod computes v % other.
func (v Num) Mod(other Num) Num { return v.arith(ops.Modulus, other) }

// Pow computes v ** other.
func (v Num) Pow(other Num) Num { return v.arith(ops.Power, other) }

// Neg negates the value.
func (v Num) Neg() Num {
	return Num{value{op: must(ops.NewUnary(ops.Negate, v.op))}}
}

// Abs is the absolute value.
func (v Num) Abs() Num {
	return Num{value{op: must(ops.NewUnary(ops.Abs, v.op))}}
}

func (v Num) fn(f ops.BuiltinOp, args ...Value) Num {
	return Num{value{op: must(builtin(f, append([]Value{v}, args...)...))}}
}

// Sqrt is the square root.
func (v Num) Sqrt() Num { return v.fn(ops.Sqrt) }

// Exp is e**v.
func (v Num) Exp() Num { return v.fn(ops.Exp) }

// Ln is the natural logarithm.
func (v Num) Ln() Num { return v.fn(ops.Ln) }

// Log is the logarithm in the given base.
func (v Num) Log(base Num) Num { return v.fn(ops.Log, base) }

// Log2 is the base-2 logarithm.
func (v Num) Log2() Num { return v.fn(ops.Log2) }

// Log10 is the base-10 logarithm.
func (v Num) Log10() Num { return v.fn(ops.Log10) }

// Ceil rounds up to an integer.
func (v Num) Ceil() Num { return v.fn(ops.Ceil) }

// Floor rounds down to an integer.
func (v Num) Floor() Num { return v.fn(ops.Floor) }

// Round rounds to the nearest integer.
func (v Num) Round() Num { return v.fn(ops.Round) }

// Sign is -1, 0 or 1.
func (v Num) Sign() Num { return v.fn(ops.Sign) }

func (v Num) cmp(op ops.CompareOp, other Num) Bool {
	return Bool{value{op: must(ops.NewComparison(op, v.op, other.op))}}
}

// Eq compares for equality.
func (v Num) Eq(other Num) Bool { return v.cmp(ops.Equals, other) }

// Ne compares for inequality.
func (v Num) Ne(other Num) Bool { return v.cmp(ops.NotEquals, other) }

// Lt compares v < other.
func (v Num) Lt(other Num) Bool { return v.cmp(ops.Less, other) }

// Le compares v <= other.
func (v Num) Le(other Num) Bool { return v.cmp(ops.LessEqual, other) }

// Gt compares v > other.
func (v Num) Gt(other Num) Bool { return v.cmp(ops.Greater, other) }

// Ge compares v >= other.
func (v Num) Ge(other Num) Bool { return v.cmp(ops.GreaterEqual, other) }

// Between tests lower <= v <= upper.
func (v Num) Between(lower, upper Num) Bool {
	return Bool{value{op: must(ops.NewBetween(v.op, lower.op, upper.op))}}
}

// Reductions require a columnar receiver; aggregating a scalar is a
// shape error, so the aggregation methods return it.

func (v Num) agg(op ops.ReductionOp) (Num, error) {
	r, err := reduce(op, v.op)
	if err != nil {
		return Num{}, err
	}
	return Num{value{op: r}}, nil
}

// Sum aggregates to the sum.
func (v Num) Sum() (Num, error) { return v.agg(ops.Sum) }

// Mean aggregates to the arithmetic mean.
func (v Num) Mean() (Num, error) { return v.agg(ops.Mean) }

// Min aggregates to the smallest value.
func (v Num) Min() (Num, error) { return v.agg(ops.Min) }

// Max aggregates to the largest value.
func (v Num) Max() (Num, error) { return v.agg(ops.Max) }

// Std aggregates to the sample standard deviation.
func (v Num) Std() (Num, error) { return v.agg(ops.StdDev) }

// Var aggregates to the sample variance.
func (v Num) Var() (Num, error) { return v.agg(ops.Variance) }

// Count aggregates to the number of non-null values.
func (v Num) Count() (Num, error) { return v.agg(ops.Count) }

// Str methods

func (v Str) fn(f ops.BuiltinOp, args ...Value) ops.Value {
	return must(builtin(f, append([]Value{v}, args...)...))
}

// Lower folds to lower case.
func (v Str) Lower() Str { return Str{value{op: v.fn(ops.Lower)}} }

// Upper folds to upper case.
func (v Str) Upper() Str { return Str{value{op: v.fn(ops.Upper)}} }

// Length is the character count.
func (v Str) Length() Num { return Num{value{op: v.fn(ops.Length)}} }

// Reverse reverses the characters.
func (v Str) Reverse() Str { return Str{value{op: v.fn(ops.Reverse)}} }

// Trim strips surrounding whitespace.
func (v Str) Trim() Str { return Str{value{op: v.fn(ops.Trim)}} }

// Substr takes length characters starting at start (zero-based).
func (v Str) Substr(start, length Num) Str {
	return Str{value{op: v.fn(ops.Substring, start, length)}}
}

// Concat appends the arguments.
func (v Str) Concat(others ...Str) Str {
	args := make([]Value, len(others))
	for i, o := range others {
		args[i] = o
	}
	return Str{value{op: v.fn(ops.Concat, args...)}}
}

// Contains tests for a substring.
func (v Str) Contains(sub Str) Bool { return Bool{value{op: v.fn(ops.Contains, sub)}} }

// StartsWith tests for a prefix.
func (v Str) StartsWith(prefix Str) Bool { return Bool{value{op: v.fn(ops.StartsWith, prefix)}} }

// EndsWith tests for a suffix.
func (v Str) EndsWith(suffix Str) Bool { return Bool{value{op: v.fn(ops.EndsWith, suffix)}} }

// Like matches against a SQL LIKE pattern; the pattern must be a
// literal.
func (v Str) Like(pattern string) (Bool, error) {
	p, err := ops.NewLiteral(pattern)
	if err != nil {
		return Bool{}, err
	}
	return boolOf(ops.NewBuiltin(ops.Like, v.op, p))
}

func (v Str) cmp(op ops.CompareOp, other Str) Bool {
	return Bool{value{op: must(ops.NewComparison(op, v.op, other.op))}}
}

// Eq compares for equality.
func (v Str) Eq(other Str) Bool { return v.cmp(ops.Equals, other) }

// Ne compares for inequality.
func (v Str) Ne(other Str) Bool { return v.cmp(ops.NotEquals, other) }

// Lt compares lexicographically.
func (v Str) Lt(other Str) Bool { return v.cmp(ops.Less, other) }

// Gt compares lexicographically.
func (v Str) Gt(other Str) Bool { return v.cmp(ops.Greater, other) }

func (v Str) agg(op ops.ReductionOp) (Str, error) {
	r, err := reduce(op, v.op)
	if err != nil {
		return Str{}, err
	}
	return Str{value{op: r}}, nil
}

// GroupConcat aggregates by joining values.
func (v Str) GroupConcat() (Str, error) { return v.agg(ops.GroupConcat) }

// Min aggregates to the lexicographically smallest value.
func (v Str) Min() (Str, error) { return v.agg(ops.Min) }

// Max aggregates to the lexicographically largest value.
func (v Str) Max() (Str, error) { return v.agg(ops.Max) }

// Time methods

func (v Time) extract(f ops.BuiltinOp) Num {
	return Num{value{op: must(builtin(f, v))}}
}

// Year extracts the year.
func (v Time) Year() Num { return v.extract(ops.ExtractYear) }

// Month extracts the month (1-12).
func (v Time) Month() Num { return v.extract(ops.ExtractMonth) }

// Day extracts the day of month.
func (v Time) Day() Num { return v.extract(ops.ExtractDay) }

// Hour extracts the hour.
func (v Time) Hour() Num { return v.extract(ops.ExtractHour) }

// Minute extracts the minute.
func (v Time) Minute() Num { return v.extract(ops.ExtractMinute) }

// Second extracts the second.
func (v Time) Second() Num { return v.extract(ops.ExtractSecond) }

// EpochSeconds is the count of seconds since the Unix epoch.
func (v Time) EpochSeconds() Num { return v.extract(ops.ExtractEpochSeconds) }

// Strftime formats the value; the format must be a literal.
func (v Time) Strftime(format string) (Str, error) {
	f, err := ops.NewLiteral(format)
	if err != nil {
		return Str{}, err
	}
	op, err := ops.NewBuiltin(ops.Strftime, v.op, f)
	if err != nil {
		return Str{}, err
	}
	return Str{value{op: op}}, nil
}

// Add shifts forward by an interval. Time-of-day values accept only
// sub-day interval units.
func (v Time) Add(iv Interval) (Time, error) {
	op, err := ops.NewArithmetic(ops.Add, v.op, iv.op)
	if err != nil {
		return Time{}, err
	}
	return Time{value{op: op}}, nil
}

// Sub shifts backward by an interval.
func (v Time) Sub(iv Interval) (Time, error) {
	op, err := ops.NewArithmetic(ops.Subtract, v.op, iv.op)
	if err != nil {
		return Time{}, err
	}
	return Time{value{op: op}}, nil
}

// Diff is the interval between two temporal values of the same kind.
func (v Time) Diff(other Time) (Interval, error) {
	op, err := ops.NewArithmetic(ops.Subtract, v.op, other.op)
	if err != nil {
		return Interval{}, err
	}
	return Interval{value{op: op}}, nil
}

func (v Time) cmp(op ops.CompareOp, other Time) (Bool, error) {
	return boolOf(ops.NewComparison(op, v.op, other.op))
}

// Eq compares for equality.
func (v Time) Eq(other Time) (Bool, error) { return v.cmp(ops.Equals, other) }

// Lt compares v before other.
func (v Time) Lt(other Time) (Bool, error) { return v.cmp(ops.Less, other) }

// Le compares v at-or-before other.
func (v Time) Le(other Time) (Bool, error) { return v.cmp(ops.LessEqual, other) }

// Gt compares v after other.
func (v Time) Gt(other Time) (Bool, error) { return v.cmp(ops.Greater, other) }

// Ge compares v at-or-after other.
func (v Time) Ge(other Time) (Bool, error) { return v.cmp(ops.GreaterEqual, other) }

func (v Time) agg(op ops.ReductionOp) (Time, error) {
	r, err := reduce(op, v.op)
	if err != nil {
		return Time{}, err
	}
	return Time{value{op: r}}, nil
}

// Min aggregates to the earliest value.
func (v Time) Min() (Time, error) { return v.agg(ops.Min) }

// Max aggregates to the latest value.
func (v Time) Max() (Time, error) { return v.agg(ops.Max) }

// Interval methods

// Add combines two intervals; their units must match.
func (v Interval) Add(other Interval) (Interval, error) {
	op, err := ops.NewArithmetic(ops.Add, v.op, other.op)
	if err != nil {
		return Interval{}, err
	}
	return Interval{value{op: op}}, nil
}

// Sub subtracts an interval; the units must match.
func (v Interval) Sub(other Interval) (Interval, error) {
	op, err := ops.NewArithmetic(ops.Subtract, v.op, other.op)
	if err != nil {
		return Interval{}, err
	}
	return Interval{value{op: op}}, nil
}

// Mul scales the interval by an integer factor.
func (v Interval) Mul(factor Num) (Interval, error) {
	op, err := ops.NewArithmetic(ops.Multiply, v.op, factor.op)
	if err != nil {
		return Interval{}, err
	}
	return Interval{value{op: op}}, nil
}

// Neg reverses the interval's direction.
func (v Interval) Neg() Interval {
	return Interval{value{op: must(ops.NewUnary(ops.Negate, v.op))}}
}

// Geo methods

func (v Geo) fn(f ops.BuiltinOp, args ...Value) ops.Value {
	return must(builtin(f, append([]Value{v}, args...)...))
}

// X is the X coordinate of a point.
func (v Geo) X() Num { return Num{value{op: v.fn(ops.GeoX)}} }

// Y is the Y coordinate of a point.
func (v Geo) Y() Num { return Num{value{op: v.fn(ops.GeoY)}} }

// Distance is the distance to another shape.
func (v Geo) Distance(other Geo) Num { return Num{value{op: v.fn(ops.GeoDistance, other)}} }

// Area is the shape's area.
func (v Geo) Area() Num { return Num{value{op: v.fn(ops.GeoArea)}} }

// Length is the shape's length.
func (v Geo) Length() Num { return Num{value{op: v.fn(ops.GeoLength)}} }

// Perimeter is the shape's perimeter.
func (v Geo) Perimeter() Num { return Num{value{op: v.fn(ops.GeoPerimeter)}} }

// Contains tests spatial containment.
func (v Geo) Contains(other Geo) Bool { return Bool{value{op: v.fn(ops.GeoContains, other)}} }

// Within tests spatial membership.
func (v Geo) Within(other Geo) Bool { return Bool{value{op: v.fn(ops.GeoWithin, other)}} }

// AsText renders the shape as WKT.
func (v Geo) AsText() Str { return Str{value{op: v.fn(ops.GeoAsText)}} }

// Buffer expands the shape by a radius.
func (v Geo) Buffer(radius Num) Geo { return Geo{value{op: v.fn(ops.GeoBuffer, radius)}} }

// SRID is the shape's spatial reference identifier.
func (v Geo) SRID() Num { return Num{value{op: v.fn(ops.GeoSRID)}} }

// GeoPoint builds a point from coordinates.
func GeoPoint(x, y Num) Geo {
	return Geo{value{op: must(builtin(ops.GeoPoint, x, y))}}
}
