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

// Package types describes the logical types of columns and scalars:
// a closed set of kinds, some of which carry parameters (decimal
// precision and scale, interval unit, array and map element types,
// geospatial shape and SRID), plus the precedence rules used to
// combine the types of mixed-type operations.
package types

import (
	"fmt"
	"strings"
)

// Kind enumerates the logical type kinds.
type Kind uint8

const (
	Invalid Kind = iota
	Null
	Boolean
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Decimal
	String
	Timestamp
	Date
	Time
	Interval
	Array
	Map
	Struct
	Geospatial
	maxKind
)

var kindNames = [maxKind]string{
	Invalid:    "invalid",
	Null:       "null",
	Boolean:    "boolean",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	UInt8:      "uint8",
	UInt16:     "uint16",
	UInt32:     "uint32",
	UInt64:     "uint64",
	Float32:    "float32",
	Float64:    "float64",
	Decimal:    "decimal",
	String:     "string",
	Timestamp:  "timestamp",
	Date:       "date",
	Time:       "time",
	Interval:   "interval",
	Array:      "array",
	Map:        "map",
	Struct:     "struct",
	Geospatial: "geospatial",
}

func (k Kind) String() string {
	if k >= maxKind {
		return "invalid"
	}
	return kindNames[k]
}

// Unit is the resolution of an interval type.
type Unit string

const (
	UnitYear        Unit = "Y"
	UnitQuarter     Unit = "Q"
	UnitMonth       Unit = "M"
	UnitWeek        Unit = "W"
	UnitDay         Unit = "D"
	UnitHour        Unit = "h"
	UnitMinute      Unit = "m"
	UnitSecond      Unit = "s"
	UnitMillisecond Unit = "ms"
	UnitMicrosecond Unit = "us"
	UnitNanosecond  Unit = "ns"
)

func validUnit(u Unit) bool {
	switch u {
	case UnitYear, UnitQuarter, UnitMonth, UnitWeek, UnitDay,
		UnitHour, UnitMinute, UnitSecond,
		UnitMillisecond, UnitMicrosecond, UnitNanosecond:
		return true
	}
	return false
}

// Geotype distinguishes planar geometries from geodetic geographies.
type Geotype string

const (
	Geometry  Geotype = "geometry"
	Geography Geotype = "geography"
)

// DataType is an immutable description of a column or scalar type.
// The zero value is invalid; use the constructors below.
//
// Types are value-comparable through Equals: two types are equal iff
// they have the same kind and the same parameters. Nullability is a
// modifier; EqualsIgnoringNullability compares identity only.
type DataType struct {
	kind    Kind
	nonnull bool

	// parametric payloads; which ones are
	// meaningful depends on kind
	precision int
	scale     int
	unit      Unit
	elem      *DataType // array element, map value
	key       *DataType // map key
	names     []string  // struct field names
	fields    []DataType
	geotype   Geotype
	geotype2  string // simple-feature shape ("point", "polygon", ...)
	srid      int
}

// simple (non-parametric) constructors

func NullType() DataType    { return DataType{kind: Null} }
func BooleanType() DataType { return DataType{kind: Boolean} }
func Int8Type() DataType    { return DataType{kind: Int8} }
func Int16Type() DataType   { return DataType{kind: Int16} }
func Int32Type() DataType   { return DataType{kind: Int32} }
func Int64Type() DataType   { return DataType{kind: Int64} }
func UInt8Type() DataType   { return DataType{kind: UInt8} }
func UInt16Type() DataType  { return DataType{kind: UInt16} }
func UInt32Type() DataType  { return DataType{kind: UInt32} }
func UInt64Type() DataType  { return DataType{kind: UInt64} }
func Float32Type() DataType { return DataType{kind: Float32} }
func Float64Type() DataType { return DataType{kind: Float64} }
func StringType() DataType  { return DataType{kind: String} }
func TimestampType() DataType {
	return DataType{kind: Timestamp}
}
func DateType() DataType { return DataType{kind: Date} }
func TimeType() DataType { return DataType{kind: Time} }

// DecimalType constructs a decimal type with the given
// precision and scale.
func DecimalType(precision, scale int) (DataType, error) {
	if precision <= 0 || precision > 38 {
		return DataType{}, Errorf("decimal precision %d out of range [1, 38]", precision)
	}
	if scale < 0 || scale > precision {
		return DataType{}, Errorf("decimal scale %d out of range [0, %d]", scale, precision)
	}
	return DataType{kind: Decimal, precision: precision, scale: scale}, nil
}

// IntervalType constructs an interval type with the given unit.
func IntervalType(u Unit) (DataType, error) {
	if !validUnit(u) {
		return DataType{}, Errorf("invalid interval unit %q", string(u))
	}
	return DataType{kind: Interval, unit: u}, nil
}

// ArrayType constructs an array type with the given element type.
func ArrayType(elem DataType) DataType {
	return DataType{kind: Array, elem: &elem}
}

// MapType constructs a map type with the given key and value types.
func MapType(key, value DataType) DataType {
	return DataType{kind: Map, key: &key, elem: &value}
}

// StructType constructs a struct type from parallel name and field
// type lists.
func StructType(names []string, fields []DataType) (DataType, error) {
	if len(names) != len(fields) {
		return DataType{}, Errorf("struct has %d names but %d types", len(names), len(fields))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return DataType{}, Errorf("duplicate struct field %q", n)
		}
		seen[n] = true
	}
	return DataType{
		kind:   Struct,
		names:  append([]string(nil), names...),
		fields: append([]DataType(nil), fields...),
	}, nil
}

// GeospatialType constructs a geometry or geography type.
// shape may be empty (any shape) or one of the usual simple-feature
// shapes ("point", "linestring", "polygon", ...).
func GeospatialType(gt Geotype, shape string, srid int) (DataType, error) {
	if gt != Geometry && gt != Geography {
		return DataType{}, Errorf("invalid geotype %q", string(gt))
	}
	if srid < 0 {
		return DataType{}, Errorf("invalid SRID %d", srid)
	}
	return DataType{kind: Geospatial, geotype: gt, geotype2: shape, srid: srid}, nil
}

// accessors

func (d DataType) Kind() Kind     { return d.kind }
func (d DataType) Nullable() bool { return !d.nonnull }

// Precision and Scale are meaningful for decimal types only.
func (d DataType) Precision() int { return d.precision }
func (d DataType) Scale() int     { return d.scale }

// IntervalUnit is meaningful for interval types only.
func (d DataType) IntervalUnit() Unit { return d.unit }

// Elem returns the element type of an array, or the value type of a
// map.
func (d DataType) Elem() (DataType, bool) {
	if d.elem == nil {
		return DataType{}, false
	}
	return *d.elem, true
}

// Key returns the key type of a map.
func (d DataType) Key() (DataType, bool) {
	if d.key == nil {
		return DataType{}, false
	}
	return *d.key, true
}

// Fields returns the field names and types of a struct.
func (d DataType) Fields() ([]string, []DataType) { return d.names, d.fields }

// Geo returns the geotype, shape and SRID of a geospatial type.
func (d DataType) Geo() (Geotype, string, int) { return d.geotype, d.geotype2, d.srid }

// AsNullable returns d with the nullable modifier set.
func (d DataType) AsNullable() DataType {
	d.nonnull = false
	return d
}

// AsNonNullable returns d with the nullable modifier cleared.
func (d DataType) AsNonNullable() DataType {
	d.nonnull = true
	return d
}

// predicates

func (d DataType) IsValid() bool   { return d.kind != Invalid && d.kind < maxKind }
func (d DataType) IsNull() bool    { return d.kind == Null }
func (d DataType) IsBoolean() bool { return d.kind == Boolean }
func (d DataType) IsString() bool  { return d.kind == String }

func (d DataType) IsSignedInteger() bool {
	return d.kind >= Int8 && d.kind <= Int64
}

func (d DataType) IsUnsignedInteger() bool {
	return d.kind >= UInt8 && d.kind <= UInt64
}

func (d DataType) IsInteger() bool {
	return d.IsSignedInteger() || d.IsUnsignedInteger()
}

func (d DataType) IsFloating() bool {
	return d.kind == Float32 || d.kind == Float64
}

func (d DataType) IsDecimal() bool { return d.kind == Decimal }

func (d DataType) IsNumeric() bool {
	return d.IsInteger() || d.IsFloating() || d.IsDecimal()
}

func (d DataType) IsTemporal() bool {
	switch d.kind {
	case Timestamp, Date, Time, Interval:
		return true
	}
	return false
}

func (d DataType) IsInterval() bool   { return d.kind == Interval }
func (d DataType) IsGeospatial() bool { return d.kind == Geospatial }
func (d DataType) IsNested() bool {
	switch d.kind {
	case Array, Map, Struct:
		return true
	}
	return false
}

// Equals reports whether d and other have the same kind, the same
// parameters, and the same nullability.
func (d DataType) Equals(other DataType) bool {
	return d.nonnull == other.nonnull && d.EqualsIgnoringNullability(other)
}

// EqualsIgnoringNullability reports whether d and other have the same
// kind and parameters, disregarding the nullable modifier.
func (d DataType) EqualsIgnoringNullability(other DataType) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case Decimal:
		return d.precision == other.precision && d.scale == other.scale
	case Interval:
		return d.unit == other.unit
	case Array:
		return d.elem.Equals(*other.elem)
	case Map:
		return d.key.Equals(*other.key) && d.elem.Equals(*other.elem)
	case Struct:
		if len(d.names) != len(other.names) {
			return false
		}
		for i := range d.names {
			if d.names[i] != other.names[i] || !d.fields[i].Equals(other.fields[i]) {
				return false
			}
		}
		return true
	case Geospatial:
		return d.geotype == other.geotype && d.geotype2 == other.geotype2 && d.srid == other.srid
	default:
		return true
	}
}

// String returns the canonical annotation for d; Parse accepts its
// output. Non-nullable types carry a leading '!'.
func (d DataType) String() string {
	var sb strings.Builder
	if d.nonnull {
		sb.WriteByte('!')
	}
	d.writeTo(&sb)
	return sb.String()
}

func (d DataType) writeTo(sb *strings.Builder) {
	switch d.kind {
	case Decimal:
		fmt.Fprintf(sb, "decimal(%d, %d)", d.precision, d.scale)
	case Interval:
		fmt.Fprintf(sb, "interval(%s)", string(d.unit))
	case Array:
		sb.WriteString("array<")
		sb.WriteString(d.elem.String())
		sb.WriteByte('>')
	case Map:
		sb.WriteString("map<")
		sb.WriteString(d.key.String())
		sb.WriteString(", ")
		sb.WriteString(d.elem.String())
		sb.WriteByte('>')
	case Struct:
		sb.WriteString("struct<")
		for i := range d.names {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.names[i])
			sb.WriteString(": ")
			sb.WriteString(d.fields[i].String())
		}
		sb.WriteByte('>')
	case Geospatial:
		sb.WriteString(string(d.geotype))
		if d.geotype2 != "" || d.srid != 0 {
			shape := d.geotype2
			if shape == "" {
				shape = "geometry"
			}
			fmt.Fprintf(sb, "(%s, %d)", shape, d.srid)
		}
	default:
		sb.WriteString(d.kind.String())
	}
}
