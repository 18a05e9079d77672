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

import (
	"math"
	"math/big"
	"time"
)

// DefaultDecimal is the type inferred for big.Rat literals.
var DefaultDecimal = DataType{kind: Decimal, precision: 38, scale: 9}

// Infer derives a DataType from a native Go value. Integer values
// infer the narrowest signed type that can hold them; a nil value
// infers the null type. Infer fails with a *TypeError when no
// inference rule matches.
func Infer(v any) (DataType, error) {
	switch v := v.(type) {
	case nil:
		return NullType(), nil
	case bool:
		return BooleanType(), nil
	case int:
		return smallestInt(int64(v)), nil
	case int8:
		return smallestInt(int64(v)), nil
	case int16:
		return smallestInt(int64(v)), nil
	case int32:
		return smallestInt(int64(v)), nil
	case int64:
		return smallestInt(v), nil
	case uint:
		return smallestUint(uint64(v)), nil
	case uint8:
		return smallestUint(uint64(v)), nil
	case uint16:
		return smallestUint(uint64(v)), nil
	case uint32:
		return smallestUint(uint64(v)), nil
	case uint64:
		return smallestUint(v), nil
	case float32:
		return Float32Type(), nil
	case float64:
		return Float64Type(), nil
	case string:
		return StringType(), nil
	case *big.Rat:
		return DefaultDecimal, nil
	case time.Time:
		return TimestampType(), nil
	case time.Duration:
		d, _ := IntervalType(UnitNanosecond)
		return d, nil
	case []any:
		return inferSlice(v)
	case map[string]any:
		return inferMap(v)
	}
	return DataType{}, Errorf("cannot infer a type for value of type %T", v)
}

func smallestInt(v int64) DataType {
	switch {
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return Int8Type()
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return Int16Type()
	case v >= math.MinInt32 && v <= math.MaxInt32:
		return Int32Type()
	default:
		return Int64Type()
	}
}

func smallestUint(v uint64) DataType {
	if v <= math.MaxInt64 {
		return smallestInt(int64(v))
	}
	return UInt64Type()
}

func inferSlice(vs []any) (DataType, error) {
	if len(vs) == 0 {
		return ArrayType(NullType()), nil
	}
	elems := make([]DataType, len(vs))
	for i, v := range vs {
		var err error
		elems[i], err = Infer(v)
		if err != nil {
			return DataType{}, err
		}
	}
	elem, err := HighestPrecedence(elems)
	if err != nil {
		return DataType{}, err
	}
	return ArrayType(elem), nil
}

func inferMap(m map[string]any) (DataType, error) {
	if len(m) == 0 {
		return MapType(StringType(), NullType()), nil
	}
	vals := make([]DataType, 0, len(m))
	for _, v := range m {
		d, err := Infer(v)
		if err != nil {
			return DataType{}, err
		}
		vals = append(vals, d)
	}
	elem, err := HighestPrecedence(vals)
	if err != nil {
		return DataType{}, err
	}
	return MapType(StringType(), elem), nil
}
