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
	"math/big"
	"time"

	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/types"
)

// Literal wraps a native value as a typed expression, inferring the
// narrowest type: 5 is an int8, 300 an int16, and so on.
func Literal(v any) (Value, error) {
	op, err := ops.NewLiteral(v)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// TypedLiteral wraps a native value under an explicit type.
func TypedLiteral(v any, d types.DataType) (Value, error) {
	op, err := ops.NewTypedLiteral(v, d)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Null is a typed null.
func Null(d types.DataType) Value {
	return wrap(ops.NullLiteral(d))
}

// Int is an integer literal of the narrowest fitting type.
func Int(v int64) Num {
	return Num{value{op: must(ops.NewLiteral(v))}}
}

// Float is a float64 literal.
func Float(v float64) Num {
	return Num{value{op: must(ops.NewLiteral(v))}}
}

// Decimal is a decimal literal with the default precision and scale.
func Decimal(v *big.Rat) Num {
	return Num{value{op: must(ops.NewLiteral(v))}}
}

// Text is a string literal.
func Text(v string) Str {
	return Str{value{op: must(ops.NewLiteral(v))}}
}

// BoolLit is a boolean literal.
func BoolLit(v bool) Bool {
	return Bool{value{op: must(ops.NewLiteral(v))}}
}

// Timestamp is a timestamp literal, normalized to UTC.
func Timestamp(v time.Time) Time {
	return Time{value{op: must(ops.NewLiteral(v))}}
}

// Date is a date literal.
func Date(v time.Time) Time {
	return Time{value{op: must(ops.NewTypedLiteral(v, types.DateType()))}}
}

// Span is an interval literal counted in the given unit.
func Span(count int64, unit types.Unit) (Interval, error) {
	d, err := types.IntervalType(unit)
	if err != nil {
		return Interval{}, err
	}
	op, err := ops.NewTypedLiteral(count, d)
	if err != nil {
		return Interval{}, err
	}
	return Interval{value{op: op}}, nil
}

// Param is an unbound scalar placeholder of the given type; its
// value is supplied at execution time.
func Param(d types.DataType) (Value, *ops.ScalarParameter, error) {
	p, err := ops.NewScalarParameter(d)
	if err != nil {
		return nil, nil, err
	}
	return wrap(p), p, nil
}
