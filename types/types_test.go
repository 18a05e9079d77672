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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	dec, err := DecimalType(9, 2)
	require.NoError(t, err)
	iv, err := IntervalType(UnitSecond)
	require.NoError(t, err)
	st, err := StructType([]string{"a", "b"}, []DataType{Int64Type(), StringType()})
	require.NoError(t, err)
	geo, err := GeospatialType(Geometry, "point", 4326)
	require.NoError(t, err)

	cases := []DataType{
		BooleanType(),
		Int8Type(),
		Int64Type().AsNonNullable(),
		UInt32Type(),
		Float64Type(),
		dec,
		StringType(),
		TimestampType(),
		DateType(),
		iv,
		ArrayType(Int64Type()),
		MapType(StringType(), Float64Type()),
		st,
		geo,
	}
	for _, d := range cases {
		t.Run(d.String(), func(t *testing.T) {
			parsed, err := Parse(d.String())
			require.NoError(t, err)
			assert.True(t, d.Equals(parsed), "parse(%q) = %s", d.String(), parsed)
		})
	}
}

func TestStringAnnotations(t *testing.T) {
	dec, err := DecimalType(9, 2)
	require.NoError(t, err)
	assert.Equal(t, "decimal(9, 2)", dec.String())
	assert.Equal(t, "!int64", Int64Type().AsNonNullable().String())
	assert.Equal(t, "array<int64>", ArrayType(Int64Type()).String())

	iv, err := IntervalType(UnitSecond)
	require.NoError(t, err)
	assert.Equal(t, "interval(s)", iv.String())
}

func TestParseAliases(t *testing.T) {
	for alias, want := range map[string]DataType{
		"double": Float64Type(),
		"float":  Float64Type(),
		"bool":   BooleanType(),
		"int":    Int64Type(),
		"text":   StringType(),
		"point":  mustGeo(t, "point"),
	} {
		got, err := Parse(alias)
		require.NoError(t, err, alias)
		assert.True(t, want.Equals(got), "%s parsed to %s", alias, got)
	}
}

func mustGeo(t *testing.T, shape string) DataType {
	t.Helper()
	d, err := GeospatialType(Geometry, shape, 0)
	require.NoError(t, err)
	return d
}

func TestDecimalValidation(t *testing.T) {
	_, err := DecimalType(0, 2)
	assert.Error(t, err)
	_, err = DecimalType(39, 2)
	assert.Error(t, err)
	_, err = DecimalType(9, 10)
	assert.Error(t, err)
}

func TestInferSmallestInt(t *testing.T) {
	for v, want := range map[int64]DataType{
		5:      Int8Type(),
		127:    Int8Type(),
		128:    Int16Type(),
		300:    Int16Type(),
		-40000: Int32Type(),
		1 << 40: Int64Type(),
	} {
		d, err := Infer(v)
		require.NoError(t, err)
		assert.True(t, want.EqualsIgnoringNullability(d), "infer(%d) = %s, want %s", v, d, want)
	}
}

func TestInferNative(t *testing.T) {
	d, err := Infer("hi")
	require.NoError(t, err)
	assert.Equal(t, String, d.Kind())

	d, err = Infer(time.Now())
	require.NoError(t, err)
	assert.Equal(t, Timestamp, d.Kind())

	d, err = Infer(3 * time.Second)
	require.NoError(t, err)
	require.True(t, d.IsInterval())
	assert.Equal(t, UnitNanosecond, d.IntervalUnit())

	d, err = Infer([]any{int64(1), int64(300)})
	require.NoError(t, err)
	require.Equal(t, Array, d.Kind())
	elem, ok := d.Elem()
	require.True(t, ok)
	assert.Equal(t, Int16, elem.Kind())
}

func TestHighestPrecedence(t *testing.T) {
	cases := []struct {
		in   []DataType
		want Kind
	}{
		{[]DataType{Int8Type(), Int64Type()}, Int64},
		{[]DataType{Int32Type(), Float32Type()}, Float32},
		{[]DataType{Int64Type(), Float32Type()}, Float64},
		{[]DataType{UInt8Type(), Int8Type()}, Int16},
		{[]DataType{UInt64Type(), Int8Type()}, Float64},
	}
	for _, c := range cases {
		got, err := HighestPrecedence(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got.Kind(), "unify %v", c.in)
	}
}

func TestUnifyNullability(t *testing.T) {
	got, err := Unify(Int8Type().AsNonNullable(), Int64Type().AsNonNullable())
	require.NoError(t, err)
	assert.False(t, got.Nullable())

	got, err = Unify(Int8Type(), Int64Type().AsNonNullable())
	require.NoError(t, err)
	assert.True(t, got.Nullable())
}

func TestUnifyIncompatible(t *testing.T) {
	_, err := Unify(StringType(), Int64Type())
	require.Error(t, err)
	var te *TypeError
	assert.ErrorAs(t, err, &te)
}

func TestCastable(t *testing.T) {
	assert.True(t, Castable(Int64Type(), StringType()))
	assert.True(t, Castable(StringType(), Int64Type()))
	assert.True(t, Castable(Int64Type(), Float64Type()))
	assert.False(t, Castable(BooleanType(), TimestampType()))
}
