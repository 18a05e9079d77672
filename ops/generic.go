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
	"fmt"
	"math/big"
	"time"

	"github.com/GrapeBaBa/ibis/types"
)

// Literal is a constant value. The stored value is canonicalized at
// construction: integers to int64 (uint64 when out of signed range),
// floats to float64, decimals to *big.Rat, timestamps to UTC
// time.Time, intervals to an int64 count of the type's unit.
type Literal struct {
	val any
	typ types.DataType
}

// NewLiteral constructs a literal, inferring its type from the
// native value.
func NewLiteral(v any) (*Literal, error) {
	d, err := types.Infer(v)
	if err != nil {
		return nil, err
	}
	return NewTypedLiteral(v, d)
}

// NewTypedLiteral constructs a literal with an explicit type. The
// value must be representable in the type's kind.
func NewTypedLiteral(v any, d types.DataType) (*Literal, error) {
	if !d.IsValid() {
		return nil, types.Errorf("invalid literal type")
	}
	cv, err := canonicalValue(v, d)
	if err != nil {
		return nil, err
	}
	return &Literal{val: cv, typ: d}, nil
}

// NullLiteral constructs a typed null.
func NullLiteral(d types.DataType) *Literal {
	return &Literal{val: nil, typ: d.AsNullable()}
}

func canonicalValue(v any, d types.DataType) (any, error) {
	if v == nil {
		if !d.Nullable() {
			return nil, types.Errorf("nil value for non-nullable type %s", d)
		}
		return nil, nil
	}
	switch v := v.(type) {
	case bool:
		if !d.IsBoolean() {
			return nil, mismatch(v, d)
		}
		return v, nil
	case int:
		return canonicalInt(int64(v), d)
	case int8:
		return canonicalInt(int64(v), d)
	case int16:
		return canonicalInt(int64(v), d)
	case int32:
		return canonicalInt(int64(v), d)
	case int64:
		return canonicalInt(v, d)
	case uint:
		return canonicalUint(uint64(v), d)
	case uint8:
		return canonicalUint(uint64(v), d)
	case uint16:
		return canonicalUint(uint64(v), d)
	case uint32:
		return canonicalUint(uint64(v), d)
	case uint64:
		return canonicalUint(v, d)
	case float32:
		if !d.IsFloating() {
			return nil, mismatch(v, d)
		}
		return float64(v), nil
	case float64:
		if !d.IsFloating() {
			return nil, mismatch(v, d)
		}
		return v, nil
	case *big.Rat:
		if !d.IsDecimal() {
			return nil, mismatch(v, d)
		}
		return new(big.Rat).Set(v), nil
	case string:
		if !d.IsString() {
			return nil, mismatch(v, d)
		}
		return v, nil
	case time.Time:
		switch d.Kind() {
		case types.Timestamp, types.Date, types.Time:
			return v.UTC(), nil
		}
		return nil, mismatch(v, d)
	case time.Duration:
		if !d.IsInterval() {
			return nil, mismatch(v, d)
		}
		return durationIn(v, d.IntervalUnit()), nil
	case []any:
		if d.Kind() != types.Array {
			return nil, mismatch(v, d)
		}
		elem, _ := d.Elem()
		out := make([]any, len(v))
		for i, e := range v {
			c, err := canonicalValue(e, elem)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, types.Errorf("cannot build a literal from value of type %T", v)
}

func canonicalInt(v int64, d types.DataType) (any, error) {
	switch {
	case d.IsInteger(), d.IsInterval():
		return v, nil
	case d.IsFloating():
		return float64(v), nil
	case d.IsDecimal():
		return new(big.Rat).SetInt64(v), nil
	}
	return nil, mismatch(v, d)
}

func canonicalUint(v uint64, d types.DataType) (any, error) {
	if v <= uint64(1)<<63-1 {
		return canonicalInt(int64(v), d)
	}
	if d.Kind() == types.UInt64 {
		return v, nil
	}
	return nil, mismatch(v, d)
}

func durationIn(v time.Duration, u types.Unit) int64 {
	switch u {
	case types.UnitNanosecond:
		return v.Nanoseconds()
	case types.UnitMicrosecond:
		return v.Microseconds()
	case types.UnitMillisecond:
		return v.Milliseconds()
	case types.UnitSecond:
		return int64(v.Seconds())
	case types.UnitMinute:
		return int64(v.Minutes())
	case types.UnitHour:
		return int64(v.Hours())
	case types.UnitDay:
		return int64(v.Hours() / 24)
	default:
		// calendar units do not have a fixed duration; count whole
		// 30-day months as an approximation mirroring the original
		return int64(v.Hours() / (24 * 30))
	}
}

func mismatch(v any, d types.DataType) error {
	return types.Errorf("value %v does not fit type %s", v, d)
}

// Value returns the canonicalized literal value; nil for nulls.
func (l *Literal) Value() any { return l.val }

// IsNull returns whether l is a typed null.
func (l *Literal) IsNull() bool { return l.val == nil }

func (l *Literal) DataType() types.DataType { return l.typ }
func (l *Literal) Shape() Shape             { return ShapeScalar }
func (l *Literal) walk(v Visitor)           {}

func (l *Literal) Equals(n Node) bool {
	o, ok := n.(*Literal)
	return ok && l.typ.Equals(o.typ) && literalValueEqual(l.val, o.val)
}

func literalValueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case *big.Rat:
		br, ok := b.(*big.Rat)
		return ok && a.Cmp(br) == 0
	case time.Time:
		bt, ok := b.(time.Time)
		return ok && a.Equal(bt)
	case []any:
		bs, ok := b.([]any)
		if !ok || len(a) != len(bs) {
			return false
		}
		for i := range a {
			if !literalValueEqual(a[i], bs[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func (l *Literal) String() string {
	if l.val == nil {
		return fmt.Sprintf("null::%s", l.typ)
	}
	return fmt.Sprintf("%v::%s", l.val, l.typ)
}

// Cast re-types a value. Casting a value to its own type is a no-op:
// NewCast returns the argument itself.
type Cast struct {
	Arg Value
	To  types.DataType
}

// NewCast validates that Arg's type can be cast to the target. The
// result keeps the argument's nullability.
func NewCast(arg Value, to types.DataType) (Value, error) {
	arg, err := ArgAny(arg)
	if err != nil {
		return nil, err
	}
	from := arg.DataType()
	if from.Equals(to) {
		return arg, nil
	}
	if !types.Castable(from, to) {
		return nil, types.Errorf("cannot cast %s to %s", from, to)
	}
	if from.Nullable() {
		to = to.AsNullable()
	} else {
		to = to.AsNonNullable()
	}
	return &Cast{Arg: arg, To: to}, nil
}

func (c *Cast) DataType() types.DataType { return c.To }
func (c *Cast) Shape() Shape             { return c.Arg.Shape() }
func (c *Cast) walk(v Visitor)           { Walk(v, c.Arg) }

func (c *Cast) rewrite(r Rewriter) Node {
	cp := *c
	cp.Arg = rewriteValue(r, c.Arg)
	return &cp
}

func (c *Cast) Equals(n Node) bool {
	o, ok := n.(*Cast)
	return ok && c.To.Equals(o.To) && c.Arg.Equals(o.Arg)
}

// Column is a reference to one column of a relation.
type Column struct {
	Rel  Relation
	Name string

	typ types.DataType
}

// NewColumn resolves name against the relation's schema; a missing
// name fails with a SchemaError listing the available columns.
func NewColumn(rel Relation, name string) (*Column, error) {
	if rel == nil {
		return nil, errValidationf("column", "missing source relation")
	}
	sch := rel.Schema()
	d, ok := sch.Field(name)
	if !ok {
		return nil, errMissingColumn(name, sch.Names())
	}
	return &Column{Rel: rel, Name: name, typ: d}, nil
}

func (c *Column) DataType() types.DataType { return c.typ }
func (c *Column) Shape() Shape             { return ShapeColumn }
func (c *Column) walk(v Visitor)           { Walk(v, c.Rel) }

func (c *Column) rewrite(r Rewriter) Node {
	cp := *c
	cp.Rel = rewriteRelation(r, c.Rel)
	return &cp
}

func (c *Column) Equals(n Node) bool {
	o, ok := n.(*Column)
	return ok && c.Name == o.Name && c.Rel.Equals(o.Rel)
}

// ScalarParameter is an unbound scalar placeholder, bound to a
// concrete value at execution time. Every parameter gets a unique
// process-wide number used for its default display name.
type ScalarParameter struct {
	Type types.DataType
	Num  uint64
}

// NewScalarParameter constructs a parameter of the given type.
func NewScalarParameter(d types.DataType) (*ScalarParameter, error) {
	if !d.IsValid() {
		return nil, types.Errorf("invalid parameter type")
	}
	return &ScalarParameter{Type: d, Num: nextID()}, nil
}

// DefaultName returns the generated display name for the parameter.
func (p *ScalarParameter) DefaultName() string {
	return fmt.Sprintf("param_%d", p.Num)
}

func (p *ScalarParameter) DataType() types.DataType { return p.Type }
func (p *ScalarParameter) Shape() Shape             { return ShapeScalar }
func (p *ScalarParameter) walk(v Visitor)           {}

func (p *ScalarParameter) Equals(n Node) bool {
	o, ok := n.(*ScalarParameter)
	return ok && p.Num == o.Num && p.Type.Equals(o.Type)
}

// InValues tests membership of a value in a literal list.
type InValues struct {
	Arg     Value
	Options []Value
}

// NewInValues validates that every option is comparable with the
// argument.
func NewInValues(arg Value, options []Value) (*InValues, error) {
	arg, err := ArgAny(arg)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, errValidationf("in", "at least one option is required")
	}
	for _, o := range options {
		if _, err := ArgAny(o); err != nil {
			return nil, err
		}
		if err := ArgComparable(arg, o); err != nil {
			return nil, err
		}
	}
	return &InValues{Arg: arg, Options: options}, nil
}

func (iv *InValues) DataType() types.DataType {
	return types.BooleanType()
}

func (iv *InValues) Shape() Shape {
	return shapeOf(append([]Value{iv.Arg}, iv.Options...)...)
}

func (iv *InValues) walk(v Visitor) {
	Walk(v, iv.Arg)
	for _, o := range iv.Options {
		Walk(v, o)
	}
}

func (iv *InValues) rewrite(r Rewriter) Node {
	cp := *iv
	cp.Arg = rewriteValue(r, iv.Arg)
	cp.Options = make([]Value, len(iv.Options))
	for i, o := range iv.Options {
		cp.Options[i] = rewriteValue(r, o)
	}
	return &cp
}

func (iv *InValues) Equals(n Node) bool {
	o, ok := n.(*InValues)
	return ok && iv.Arg.Equals(o.Arg) && equalValues(iv.Options, o.Options)
}

// CountStar is the row count of a relation, COUNT(*).
type CountStar struct {
	Rel Relation
}

// NewCountStar constructs a row-count over rel.
func NewCountStar(rel Relation) (*CountStar, error) {
	if rel == nil {
		return nil, errValidationf("count", "missing source relation")
	}
	return &CountStar{Rel: rel}, nil
}

func (c *CountStar) DataType() types.DataType {
	return types.Int64Type().AsNonNullable()
}

func (c *CountStar) Shape() Shape   { return ShapeScalar }
func (c *CountStar) walk(v Visitor) { Walk(v, c.Rel) }

func (c *CountStar) rewrite(r Rewriter) Node {
	cp := *c
	cp.Rel = rewriteRelation(r, c.Rel)
	return &cp
}

func (c *CountStar) Equals(n Node) bool {
	o, ok := n.(*CountStar)
	return ok && c.Rel.Equals(o.Rel)
}
