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
	"strconv"
	"strings"
)

// Parse turns a type annotation into a DataType. It accepts the
// output of DataType.String plus the usual aliases:
//
//	"int64", "!int32", "double", "float", "bool", "decimal(9, 2)",
//	"interval(s)", "array<int64>", "map<string, int64>",
//	"struct<a: int64, b: string>", "geometry", "geography(point, 4326)"
//
// Parse fails with a *TypeError when the annotation is malformed.
func Parse(s string) (DataType, error) {
	p := &parser{in: strings.TrimSpace(s)}
	d, err := p.parse()
	if err != nil {
		return DataType{}, err
	}
	p.ws()
	if p.pos != len(p.in) {
		return DataType{}, Errorf("trailing input %q in type annotation %q", p.in[p.pos:], s)
	}
	return d, nil
}

type parser struct {
	in  string
	pos int
}

func (p *parser) ws() {
	for p.pos < len(p.in) && (p.in[p.pos] == ' ' || p.in[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) eat(c byte) bool {
	p.ws()
	if p.pos < len(p.in) && p.in[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) ident() string {
	p.ws()
	start := p.pos
	for p.pos < len(p.in) {
		c := p.in[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	return p.in[start:p.pos]
}

func (p *parser) int() (int, error) {
	tok := p.ident()
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, Errorf("expected an integer, found %q", tok)
	}
	return n, nil
}

func (p *parser) parse() (DataType, error) {
	nonnull := p.eat('!')
	name := strings.ToLower(p.ident())
	d, err := p.base(name)
	if err != nil {
		return DataType{}, err
	}
	if nonnull {
		d = d.AsNonNullable()
	}
	return d, nil
}

func (p *parser) base(name string) (DataType, error) {
	switch name {
	case "null":
		return NullType(), nil
	case "bool", "boolean":
		return BooleanType(), nil
	case "int8":
		return Int8Type(), nil
	case "int16":
		return Int16Type(), nil
	case "int32":
		return Int32Type(), nil
	case "int", "int64":
		return Int64Type(), nil
	case "uint8":
		return UInt8Type(), nil
	case "uint16":
		return UInt16Type(), nil
	case "uint32":
		return UInt32Type(), nil
	case "uint64":
		return UInt64Type(), nil
	case "halffloat", "float32":
		return Float32Type(), nil
	case "float", "float64", "double":
		return Float64Type(), nil
	case "string", "text":
		return StringType(), nil
	case "timestamp":
		return TimestampType(), nil
	case "date":
		return DateType(), nil
	case "time":
		return TimeType(), nil
	case "decimal":
		if !p.eat('(') {
			return DecimalType(9, 0)
		}
		prec, err := p.int()
		if err != nil {
			return DataType{}, err
		}
		if !p.eat(',') {
			return DataType{}, Errorf("expected ',' in decimal annotation")
		}
		scale, err := p.int()
		if err != nil {
			return DataType{}, err
		}
		if !p.eat(')') {
			return DataType{}, Errorf("expected ')' in decimal annotation")
		}
		return DecimalType(prec, scale)
	case "interval":
		if !p.eat('(') {
			return IntervalType(UnitSecond)
		}
		p.ws()
		start := p.pos
		for p.pos < len(p.in) && p.in[p.pos] != ')' && p.in[p.pos] != ' ' {
			p.pos++
		}
		unit := p.in[start:p.pos]
		if !p.eat(')') {
			return DataType{}, Errorf("expected ')' in interval annotation")
		}
		return IntervalType(Unit(unit))
	case "array":
		if !p.eat('<') {
			return DataType{}, Errorf("expected '<' after array")
		}
		elem, err := p.parse()
		if err != nil {
			return DataType{}, err
		}
		if !p.eat('>') {
			return DataType{}, Errorf("expected '>' after array element type")
		}
		return ArrayType(elem), nil
	case "map":
		if !p.eat('<') {
			return DataType{}, Errorf("expected '<' after map")
		}
		key, err := p.parse()
		if err != nil {
			return DataType{}, err
		}
		if !p.eat(',') {
			return DataType{}, Errorf("expected ',' between map key and value types")
		}
		value, err := p.parse()
		if err != nil {
			return DataType{}, err
		}
		if !p.eat('>') {
			return DataType{}, Errorf("expected '>' after map value type")
		}
		return MapType(key, value), nil
	case "struct":
		if !p.eat('<') {
			return DataType{}, Errorf("expected '<' after struct")
		}
		var names []string
		var fields []DataType
		for {
			fname := p.ident()
			if fname == "" {
				return DataType{}, Errorf("expected a struct field name")
			}
			if !p.eat(':') {
				return DataType{}, Errorf("expected ':' after struct field %q", fname)
			}
			ftype, err := p.parse()
			if err != nil {
				return DataType{}, err
			}
			names = append(names, fname)
			fields = append(fields, ftype)
			if p.eat(',') {
				continue
			}
			break
		}
		if !p.eat('>') {
			return DataType{}, Errorf("expected '>' after struct fields")
		}
		return StructType(names, fields)
	case "geometry", "geography":
		gt := Geotype(name)
		if !p.eat('(') {
			return GeospatialType(gt, "", 0)
		}
		shape := strings.ToLower(p.ident())
		srid := 0
		if p.eat(',') {
			var err error
			srid, err = p.int()
			if err != nil {
				return DataType{}, err
			}
		}
		if !p.eat(')') {
			return DataType{}, Errorf("expected ')' in %s annotation", name)
		}
		return GeospatialType(gt, shape, srid)
	case "point", "linestring", "polygon", "multipoint", "multilinestring", "multipolygon":
		return GeospatialType(Geometry, name, 0)
	case "":
		return DataType{}, Errorf("empty type annotation")
	default:
		return DataType{}, Errorf("unknown type annotation %q", name)
	}
}
