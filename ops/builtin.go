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

// BuiltinOp enumerates the scalar builtin functions: the string,
// math, temporal-extraction, variadic-generic and geospatial
// operations that don't warrant dedicated node structs.
type BuiltinOp int

const (
	Unspecified BuiltinOp = iota

	// string
	Lower
	Upper
	Length
	Reverse
	Trim
	Substring
	Concat
	Contains
	StartsWith
	EndsWith
	Like

	// math
	Sqrt
	Exp
	Ln
	Log
	Log2
	Log10
	Ceil
	Floor
	Round
	Sign

	// temporal
	ExtractYear
	ExtractQuarter
	ExtractMonth
	ExtractDay
	ExtractDayOfYear
	ExtractHour
	ExtractMinute
	ExtractSecond
	ExtractEpochSeconds
	Strftime
	TimestampNow

	// generic
	Coalesce
	Greatest
	Least
	NullIf
	IfElse

	// geospatial
	GeoPoint
	GeoX
	GeoY
	GeoDistance
	GeoArea
	GeoLength
	GeoPerimeter
	GeoContains
	GeoWithin
	GeoAsText
	GeoBuffer
	GeoSRID

	maxBuiltin
)

// IsGeospatial returns whether the builtin is a geospatial
// operation; backends without spatial support reject these.
func (op BuiltinOp) IsGeospatial() bool {
	return op >= GeoPoint && op <= GeoSRID
}

type binfo struct {
	name string
	// argument count; maxArgs < 0 means unbounded
	minArgs, maxArgs int
	// positional argument rules; when there are more arguments
	// than rules, the last rule repeats
	rules []Rule
	// result type; nil means "same type as first argument"
	ret func(args []Value) (types.DataType, error)
}

func retFixed(d types.DataType) func([]Value) (types.DataType, error) {
	return func(args []Value) (types.DataType, error) {
		if anyNullable(args) {
			return d.AsNullable(), nil
		}
		return d.AsNonNullable(), nil
	}
}

func retAlways(d types.DataType) func([]Value) (types.DataType, error) {
	return func([]Value) (types.DataType, error) { return d, nil }
}

func retUnify(args []Value) (types.DataType, error) {
	ds := make([]types.DataType, len(args))
	for i, a := range args {
		ds[i] = a.DataType()
	}
	return types.HighestPrecedence(ds)
}

// coalesce is null only when every branch is
func retCoalesce(args []Value) (types.DataType, error) {
	d, err := retUnify(args)
	if err != nil {
		return types.DataType{}, err
	}
	for _, a := range args {
		if !a.DataType().Nullable() {
			return d.AsNonNullable(), nil
		}
	}
	return d.AsNullable(), nil
}

func retIfElse(args []Value) (types.DataType, error) {
	return retUnify(args[1:])
}

func retNullIf(args []Value) (types.DataType, error) {
	return args[0].DataType().AsNullable(), nil
}

func retGeoPoint(args []Value) (types.DataType, error) {
	return types.GeospatialType(types.Geometry, "point", 0)
}

func anyNullable(args []Value) bool {
	for _, a := range args {
		if a.DataType().Nullable() {
			return true
		}
	}
	return false
}

// likePattern requires a literal string pattern (the right-hand side
// of LIKE cannot be computed).
func likePattern(v Value) (Value, error) {
	v, err := ArgString(v)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*Literal); !ok {
		return nil, errValidationf("like", "pattern must be a literal string")
	}
	return v, nil
}

var builtinInfo = [maxBuiltin]binfo{
	Lower:      {name: "lower", minArgs: 1, maxArgs: 1, rules: []Rule{ArgString}},
	Upper:      {name: "upper", minArgs: 1, maxArgs: 1, rules: []Rule{ArgString}},
	Length:     {name: "length", minArgs: 1, maxArgs: 1, rules: []Rule{ArgString}, ret: retFixed(types.Int32Type())},
	Reverse:    {name: "reverse", minArgs: 1, maxArgs: 1, rules: []Rule{ArgString}},
	Trim:       {name: "trim", minArgs: 1, maxArgs: 1, rules: []Rule{ArgString}},
	Substring:  {name: "substring", minArgs: 2, maxArgs: 3, rules: []Rule{ArgString, ArgInteger, ArgInteger}},
	Concat:     {name: "concat", minArgs: 1, maxArgs: -1, rules: []Rule{ArgString}},
	Contains:   {name: "contains", minArgs: 2, maxArgs: 2, rules: []Rule{ArgString, ArgString}, ret: retFixed(types.BooleanType())},
	StartsWith: {name: "starts_with", minArgs: 2, maxArgs: 2, rules: []Rule{ArgString, ArgString}, ret: retFixed(types.BooleanType())},
	EndsWith:   {name: "ends_with", minArgs: 2, maxArgs: 2, rules: []Rule{ArgString, ArgString}, ret: retFixed(types.BooleanType())},
	Like:       {name: "like", minArgs: 2, maxArgs: 2, rules: []Rule{ArgString, likePattern}, ret: retFixed(types.BooleanType())},

	Sqrt:  {name: "sqrt", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Float64Type())},
	Exp:   {name: "exp", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Float64Type())},
	Ln:    {name: "ln", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Float64Type())},
	Log:   {name: "log", minArgs: 1, maxArgs: 2, rules: []Rule{ArgNumeric, ArgNumeric}, ret: retFixed(types.Float64Type())},
	Log2:  {name: "log2", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Float64Type())},
	Log10: {name: "log10", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Float64Type())},
	Ceil:  {name: "ceil", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retCeil},
	Floor: {name: "floor", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retCeil},
	Round: {name: "round", minArgs: 1, maxArgs: 2, rules: []Rule{ArgNumeric, ArgInteger}},
	Sign:  {name: "sign", minArgs: 1, maxArgs: 1, rules: []Rule{ArgNumeric}, ret: retFixed(types.Int8Type())},

	ExtractYear:         {name: "extract_year", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractQuarter:      {name: "extract_quarter", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractMonth:        {name: "extract_month", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractDay:          {name: "extract_day", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractDayOfYear:    {name: "extract_day_of_year", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractHour:         {name: "extract_hour", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractMinute:       {name: "extract_minute", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractSecond:       {name: "extract_second", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int32Type())},
	ExtractEpochSeconds: {name: "epoch_seconds", minArgs: 1, maxArgs: 1, rules: []Rule{ArgTemporal}, ret: retFixed(types.Int64Type())},
	Strftime:            {name: "strftime", minArgs: 2, maxArgs: 2, rules: []Rule{ArgTemporal, ArgString}, ret: retFixed(types.StringType())},
	TimestampNow:        {name: "now", minArgs: 0, maxArgs: 0, ret: retAlways(types.TimestampType().AsNonNullable())},

	Coalesce: {name: "coalesce", minArgs: 1, maxArgs: -1, rules: []Rule{ArgAny}, ret: retCoalesce},
	Greatest: {name: "greatest", minArgs: 1, maxArgs: -1, rules: []Rule{ArgAny}, ret: retUnify},
	Least:    {name: "least", minArgs: 1, maxArgs: -1, rules: []Rule{ArgAny}, ret: retUnify},
	NullIf:   {name: "nullif", minArgs: 2, maxArgs: 2, rules: []Rule{ArgAny, ArgAny}, ret: retNullIf},
	IfElse:   {name: "if_else", minArgs: 3, maxArgs: 3, rules: []Rule{ArgBoolean, ArgAny, ArgAny}, ret: retIfElse},

	GeoPoint:     {name: "geo_point", minArgs: 2, maxArgs: 2, rules: []Rule{ArgNumeric, ArgNumeric}, ret: retGeoPoint},
	GeoX:         {name: "geo_x", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoY:         {name: "geo_y", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoDistance:  {name: "geo_distance", minArgs: 2, maxArgs: 2, rules: []Rule{ArgGeospatial, ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoArea:      {name: "geo_area", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoLength:    {name: "geo_length", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoPerimeter: {name: "geo_perimeter", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Float64Type())},
	GeoContains:  {name: "geo_contains", minArgs: 2, maxArgs: 2, rules: []Rule{ArgGeospatial, ArgGeospatial}, ret: retFixed(types.BooleanType())},
	GeoWithin:    {name: "geo_within", minArgs: 2, maxArgs: 2, rules: []Rule{ArgGeospatial, ArgGeospatial}, ret: retFixed(types.BooleanType())},
	GeoAsText:    {name: "geo_as_text", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.StringType())},
	GeoBuffer:    {name: "geo_buffer", minArgs: 2, maxArgs: 2, rules: []Rule{ArgGeospatial, ArgNumeric}, ret: retGeoBuffer},
	GeoSRID:      {name: "geo_srid", minArgs: 1, maxArgs: 1, rules: []Rule{ArgGeospatial}, ret: retFixed(types.Int32Type())},
}

// ceil/floor of a decimal stays decimal; otherwise int64
func retCeil(args []Value) (types.DataType, error) {
	d := args[0].DataType()
	if d.IsDecimal() {
		return d, nil
	}
	if d.Nullable() {
		return types.Int64Type().AsNullable(), nil
	}
	return types.Int64Type().AsNonNullable(), nil
}

func retGeoBuffer(args []Value) (types.DataType, error) {
	return args[0].DataType(), nil
}

func (op BuiltinOp) String() string {
	if op <= Unspecified || op >= maxBuiltin {
		return "unspecified"
	}
	return builtinInfo[op].name
}

var builtinByName = func() map[string]BuiltinOp {
	m := make(map[string]BuiltinOp, int(maxBuiltin))
	for op := Unspecified + 1; op < maxBuiltin; op++ {
		m[builtinInfo[op].name] = op
	}
	return m
}()

// BuiltinByName resolves a builtin from its canonical name.
func BuiltinByName(name string) (BuiltinOp, bool) {
	op, ok := builtinByName[name]
	return op, ok
}

// Builtin is a call to one of the scalar builtin functions.
type Builtin struct {
	Func BuiltinOp
	Args []Value

	typ types.DataType
}

// NewBuiltin validates the argument count and types against the
// builtin's signature and computes the result type.
func NewBuiltin(op BuiltinOp, args ...Value) (*Builtin, error) {
	if op <= Unspecified || op >= maxBuiltin {
		return nil, errValidationf("builtin", "unknown function")
	}
	info := &builtinInfo[op]
	if len(args) < info.minArgs {
		return nil, errValidationf(info.name, "expected at least %d arguments, found %d", info.minArgs, len(args))
	}
	if info.maxArgs >= 0 && len(args) > info.maxArgs {
		return nil, errValidationf(info.name, "expected at most %d arguments, found %d", info.maxArgs, len(args))
	}
	checked := make([]Value, len(args))
	for i, a := range args {
		rule := ArgAny
		if len(info.rules) > 0 {
			ri := i
			if ri >= len(info.rules) {
				ri = len(info.rules) - 1
			}
			rule = info.rules[ri]
		}
		c, err := rule(a)
		if err != nil {
			return nil, err
		}
		checked[i] = c
	}
	var d types.DataType
	var err error
	if info.ret != nil {
		d, err = info.ret(checked)
	} else {
		d = checked[0].DataType()
	}
	if err != nil {
		return nil, err
	}
	return &Builtin{Func: op, Args: checked, typ: d}, nil
}

func (b *Builtin) DataType() types.DataType { return b.typ }
func (b *Builtin) Shape() Shape             { return shapeOf(b.Args...) }

func (b *Builtin) walk(v Visitor) {
	for _, a := range b.Args {
		Walk(v, a)
	}
}

func (b *Builtin) rewrite(r Rewriter) Node {
	cp := *b
	cp.Args = make([]Value, len(b.Args))
	for i, a := range b.Args {
		cp.Args[i] = rewriteValue(r, a)
	}
	return &cp
}

func (b *Builtin) Equals(n Node) bool {
	o, ok := n.(*Builtin)
	return ok && b.Func == o.Func && equalValues(b.Args, o.Args)
}
