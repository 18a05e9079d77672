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
	"strings"

	"github.com/GrapeBaBa/ibis/types"
)

// A Rule validates (and possibly coerces) one constructor argument.
// Every node constructor routes its fields through rules before the
// node exists; a node that fails validation is never constructed.
type Rule func(v Value) (Value, error)

// ArgAny accepts any non-nil value.
func ArgAny(v Value) (Value, error) {
	if v == nil {
		return nil, errValidationf("arg", "missing required argument")
	}
	return v, nil
}

func kindRule(want string, ok func(types.DataType) bool) Rule {
	return func(v Value) (Value, error) {
		if v == nil {
			return nil, errValidationf("arg", "missing required %s argument", want)
		}
		d := v.DataType()
		if !ok(d) && !d.IsNull() {
			return nil, types.Errorf("expected a %s value, found %s", want, d)
		}
		return v, nil
	}
}

// ArgBoolean accepts boolean-typed values.
var ArgBoolean = kindRule("boolean", types.DataType.IsBoolean)

// ArgNumeric accepts integer, floating-point and decimal values.
var ArgNumeric = kindRule("numeric", types.DataType.IsNumeric)

// ArgInteger accepts integer values.
var ArgInteger = kindRule("integer", types.DataType.IsInteger)

// ArgString accepts string values.
var ArgString = kindRule("string", types.DataType.IsString)

// ArgTemporal accepts timestamp, date, time and interval values.
var ArgTemporal = kindRule("temporal", types.DataType.IsTemporal)

// ArgInterval accepts interval values.
var ArgInterval = kindRule("interval", types.DataType.IsInterval)

// ArgGeospatial accepts geometry and geography values.
var ArgGeospatial = kindRule("geospatial", types.DataType.IsGeospatial)

// ArgColumnOf wraps a rule, additionally requiring a columnar shape.
func ArgColumnOf(inner Rule) Rule {
	return func(v Value) (Value, error) {
		v, err := inner(v)
		if err != nil {
			return nil, err
		}
		if v.Shape() != ShapeColumn {
			return nil, errValidationf("arg", "expected a columnar value, found a scalar")
		}
		return v, nil
	}
}

// ArgListOf applies a rule to every element of a value list.
func ArgListOf(inner Rule) func(vs []Value) ([]Value, error) {
	return func(vs []Value) ([]Value, error) {
		out := make([]Value, len(vs))
		for i, v := range vs {
			c, err := inner(v)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
}

// OneOf accepts a value passing any of the given rules.
func OneOf(rules ...Rule) Rule {
	return func(v Value) (Value, error) {
		var errs []string
		for _, r := range rules {
			c, err := r(v)
			if err == nil {
				return c, nil
			}
			errs = append(errs, err.Error())
		}
		return nil, errValidationf("arg", "no alternative matched: %s", strings.Join(errs, "; "))
	}
}

// IsIn accepts values whose type kind is one of the allowed kinds.
func IsIn(allowed ...types.Kind) Rule {
	return func(v Value) (Value, error) {
		if v == nil {
			return nil, errValidationf("arg", "missing required argument")
		}
		k := v.DataType().Kind()
		for _, a := range allowed {
			if k == a {
				return v, nil
			}
		}
		return nil, types.Errorf("type %s not allowed here", v.DataType())
	}
}

// Optional applies a rule when the value is present and substitutes
// a default otherwise.
func Optional(inner Rule, def Value) Rule {
	return func(v Value) (Value, error) {
		if v == nil {
			return def, nil
		}
		return inner(v)
	}
}

// ArgComparable validates that two values have a common supertype,
// i.e. they can be compared under the precedence rules.
func ArgComparable(a, b Value) error {
	if _, err := types.Unify(a.DataType(), b.DataType()); err != nil {
		return types.Errorf("types %s and %s are not comparable", a.DataType(), b.DataType())
	}
	return nil
}

// ShapeLike derives the result shape from source arguments: columnar
// if any operand is columnar, scalar otherwise (broadcasting), and
// pairs it with the given result type.
func ShapeLike(dtype types.DataType, args ...Value) (types.DataType, Shape) {
	return dtype, shapeOf(args...)
}
