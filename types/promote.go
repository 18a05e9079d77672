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

package types

// numeric precedence ranks; a higher rank wins when two numeric
// types are combined
var numericRank = map[Kind]int{
	Int8:    1,
	Int16:   2,
	Int32:   3,
	Int64:   4,
	Float32: 5,
	Float64: 6,
	Decimal: 7,
}

var unsignedRank = map[Kind]int{
	UInt8:  1,
	UInt16: 2,
	UInt32: 3,
	UInt64: 4,
}

// widened maps an unsigned kind to the narrowest signed kind that can
// represent its full range.
var widened = map[Kind]Kind{
	UInt8:  Int16,
	UInt16: Int32,
	UInt32: Int64,
	// uint64 has no signed container; it combines with signed
	// operands as float64
	UInt64: Float64,
}

// HighestPrecedence computes the least upper bound of a set of types
// under the precedence partial order. It fails when the set is empty
// or contains mutually incomparable types. The nullability of the
// result is the OR of the operand nullabilities.
func HighestPrecedence(ds []DataType) (DataType, error) {
	if len(ds) == 0 {
		return DataType{}, Errorf("no types to unify")
	}
	out := ds[0]
	for _, d := range ds[1:] {
		var err error
		out, err = Unify(out, d)
		if err != nil {
			return DataType{}, err
		}
	}
	return out, nil
}

// Unify computes the least upper bound of two types, or fails with a
// *TypeError when no common supertype exists.
func Unify(a, b DataType) (DataType, error) {
	nullable := a.Nullable() || b.Nullable()
	out, err := unify(a, b)
	if err != nil {
		return DataType{}, err
	}
	if nullable {
		return out.AsNullable(), nil
	}
	return out.AsNonNullable(), nil
}

func unify(a, b DataType) (DataType, error) {
	// null promotes to anything
	if a.kind == Null {
		return b, nil
	}
	if b.kind == Null {
		return a, nil
	}
	if a.EqualsIgnoringNullability(b) {
		return a, nil
	}
	if a.IsNumeric() && b.IsNumeric() {
		return unifyNumeric(a, b)
	}
	if a.kind == Array && b.kind == Array {
		elem, err := Unify(*a.elem, *b.elem)
		if err != nil {
			return DataType{}, Errorf("array types %s and %s are incomparable: %s", a, b, err.Error())
		}
		return ArrayType(elem), nil
	}
	return DataType{}, Errorf("no common supertype for %s and %s", a, b)
}

func unifyNumeric(a, b DataType) (DataType, error) {
	au, aok := unsignedRank[a.kind]
	bu, bok := unsignedRank[b.kind]
	switch {
	case aok && bok:
		if au >= bu {
			return DataType{kind: a.kind}, nil
		}
		return DataType{kind: b.kind}, nil
	case aok:
		return unifyNumeric(DataType{kind: widened[a.kind]}, b)
	case bok:
		return unifyNumeric(a, DataType{kind: widened[b.kind]})
	}
	ar, br := numericRank[a.kind], numericRank[b.kind]
	hi := a
	if br > ar {
		hi = b
	}
	// float32 cannot represent every int64
	if hi.kind == Float32 && (a.kind == Int64 || b.kind == Int64) {
		return DataType{kind: Float64}, nil
	}
	if hi.kind == Decimal {
		// keep the widest precision and scale seen
		p, s := hi.precision, hi.scale
		if a.kind == Decimal && b.kind == Decimal {
			p = max(a.precision, b.precision)
			s = max(a.scale, b.scale)
		}
		return DataType{kind: Decimal, precision: p, scale: s}, nil
	}
	return DataType{kind: hi.kind}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Castable reports whether a value of type from can be cast to type
// to. Casting never invents structure: nested and geospatial types
// cast only to themselves (modulo nullability).
func Castable(from, to DataType) bool {
	if from.EqualsIgnoringNullability(to) {
		return true
	}
	if from.kind == Null {
		return true
	}
	if to.kind == String {
		return !from.IsNested() && !from.IsGeospatial()
	}
	switch {
	case from.IsNumeric() || from.kind == Boolean:
		return to.IsNumeric() || to.kind == Boolean
	case from.kind == String:
		return to.IsNumeric() || to.kind == Timestamp || to.kind == Date || to.kind == Time
	case from.kind == Timestamp:
		return to.kind == Date || to.kind == Time || to.kind == Int64
	case from.kind == Date:
		return to.kind == Timestamp
	case from.kind == Interval:
		return to.kind == Interval || to.IsInteger()
	case from.kind == Array && to.kind == Array:
		return Castable(*from.elem, *to.elem)
	}
	return false
}
