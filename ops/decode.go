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
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

// Decode parses the wire form produced by Encode. Nodes are rebuilt
// through their validated constructors, so a decoded graph satisfies
// the same invariants as a freshly built one.
func Decode(buf []byte) (Node, error) {
	return decodeNode(buf)
}

// DecodeCompressed is zstd decompression followed by Decode.
func DecodeCompressed(buf []byte) (Node, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(buf, nil)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// DecodeValue is Decode restricted to value nodes.
func DecodeValue(buf []byte) (Value, error) {
	n, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	v, ok := n.(Value)
	if !ok {
		return nil, errValidationf("decode", "expected a value node, found %T", n)
	}
	return v, nil
}

// DecodeRelation is Decode restricted to relation nodes.
func DecodeRelation(buf []byte) (Relation, error) {
	n, err := Decode(buf)
	if err != nil {
		return nil, err
	}
	r, ok := n.(Relation)
	if !ok {
		return nil, errValidationf("decode", "expected a relation node, found %T", n)
	}
	return r, nil
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case "lit":
		var w wireLiteral
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		if w.Value == nil {
			return NullLiteral(w.DType), nil
		}
		v, err := decodeLiteralValue(w.Value, w.DType)
		if err != nil {
			return nil, err
		}
		return NewTypedLiteral(v, w.DType)
	case "cast":
		var w wireCast
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		return NewCast(arg, w.To)
	case "col":
		var w wireColumn
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		rel, err := decodeRelation(w.Rel)
		if err != nil {
			return nil, err
		}
		return NewColumn(rel, w.Name)
	case "param":
		var w wireParam
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		bumpID(w.Num)
		return &ScalarParameter{Type: w.DType, Num: w.Num}, nil
	case "in":
		var w wireIn
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		opts, err := decodeValues(w.Options)
		if err != nil {
			return nil, err
		}
		return NewInValues(arg, opts)
	case "count_star":
		var w wireCountStar
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		rel, err := decodeRelation(w.Rel)
		if err != nil {
			return nil, err
		}
		return NewCountStar(rel)
	case "cmp":
		op, left, right, err := decodeBinary(raw)
		if err != nil {
			return nil, err
		}
		co, ok := compareOpNamed(op)
		if !ok {
			return nil, errValidationf("decode", "unknown comparison %q", op)
		}
		return NewComparison(co, left, right)
	case "logical":
		op, left, right, err := decodeBinary(raw)
		if err != nil {
			return nil, err
		}
		lo, ok := logicalOpNamed(op)
		if !ok {
			return nil, errValidationf("decode", "unknown connective %q", op)
		}
		return NewLogical(lo, left, right)
	case "arith":
		op, left, right, err := decodeBinary(raw)
		if err != nil {
			return nil, err
		}
		ao, ok := arithOpNamed(op)
		if !ok {
			return nil, errValidationf("decode", "unknown operator %q", op)
		}
		return NewArithmetic(ao, left, right)
	case "not":
		var w wireUnary
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		return NewNot(arg)
	case "unary":
		var w wireUnary
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		uo, ok := unaryOpNamed(w.Op)
		if !ok {
			return nil, errValidationf("decode", "unknown operator %q", w.Op)
		}
		return NewUnary(uo, arg)
	case "between":
		var w wireBetween
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		lo, err := decodeValue(w.Lower)
		if err != nil {
			return nil, err
		}
		hi, err := decodeValue(w.Upper)
		if err != nil {
			return nil, err
		}
		return NewBetween(arg, lo, hi)
	case "isnull":
		var w wireIsNull
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		return NewIsNull(arg, w.Negate)
	case "builtin":
		var w wireBuiltin
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		op, ok := BuiltinByName(w.Func)
		if !ok {
			return nil, errValidationf("decode", "unknown function %q", w.Func)
		}
		args, err := decodeValues(w.Args)
		if err != nil {
			return nil, err
		}
		return NewBuiltin(op, args...)
	case "simple_case", "searched_case":
		var w wireCase
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		cases, err := decodeValues(w.Cases)
		if err != nil {
			return nil, err
		}
		results, err := decodeValues(w.Results)
		if err != nil {
			return nil, err
		}
		var def Value
		if w.Default != nil {
			if def, err = decodeValue(w.Default); err != nil {
				return nil, err
			}
		}
		if env.Type == "searched_case" {
			return NewSearchedCase(cases, results, def)
		}
		base, err := decodeValue(w.Base)
		if err != nil {
			return nil, err
		}
		return NewSimpleCase(base, cases, results, def)
	case "reduction":
		var w wireReduction
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		op, ok := reductionOpNamed(w.Op)
		if !ok {
			return nil, errValidationf("decode", "unknown reduction %q", w.Op)
		}
		arg, err := decodeValue(w.Arg)
		if err != nil {
			return nil, err
		}
		var where Value
		if w.Where != nil {
			if where, err = decodeValue(w.Where); err != nil {
				return nil, err
			}
		}
		return NewReduction(op, arg, where)
	case "analytic":
		var w wireAnalytic
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		op, ok := analyticOpNamed(w.Op)
		if !ok {
			return nil, errValidationf("decode", "unknown analytic %q", w.Op)
		}
		var arg, offset Value
		var err error
		if w.Arg != nil {
			if arg, err = decodeValue(w.Arg); err != nil {
				return nil, err
			}
		}
		if w.Offset != nil {
			if offset, err = decodeValue(w.Offset); err != nil {
				return nil, err
			}
		}
		return NewAnalytic(op, arg, offset)
	case "window":
		var w wireWindowFunc
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		fn, err := decodeValue(w.Func)
		if err != nil {
			return nil, err
		}
		spec, err := decodeWindow(w.Spec)
		if err != nil {
			return nil, err
		}
		return NewWindowFunction(fn, spec)
	case "unbound_table":
		var w wireTable
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		sch, err := schema.Of(w.Schema.Names, w.Schema.Types)
		if err != nil {
			return nil, err
		}
		return NewUnboundTable(w.Name, sch)
	case "table":
		var w wireTable
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		sch, err := schema.Of(w.Schema.Names, w.Schema.Types)
		if err != nil {
			return nil, err
		}
		return NewDatabaseTable(w.Name, w.Namespace, sch)
	case "self_ref":
		var w wireSelfRef
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		parent, err := decodeRelation(w.Parent)
		if err != nil {
			return nil, err
		}
		bumpID(w.Num)
		return &SelfReference{Parent: parent, Num: w.Num}, nil
	case "selection":
		var w wireSelection
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		src, err := decodeRelation(w.Source)
		if err != nil {
			return nil, err
		}
		bs, err := decodeBindings(w.Bindings)
		if err != nil {
			return nil, err
		}
		ps, err := decodeValues(w.Predicates)
		if err != nil {
			return nil, err
		}
		ks, err := decodeSortKeys(w.Keys)
		if err != nil {
			return nil, err
		}
		return NewSelection(src, bs, ps, ks)
	case "aggregation":
		var w wireAggregation
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		src, err := decodeRelation(w.Source)
		if err != nil {
			return nil, err
		}
		ms, err := decodeBindings(w.Metrics)
		if err != nil {
			return nil, err
		}
		by, err := decodeBindings(w.By)
		if err != nil {
			return nil, err
		}
		hv, err := decodeValues(w.Having)
		if err != nil {
			return nil, err
		}
		return NewAggregation(src, ms, by, hv)
	case "join":
		var w wireJoin
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		kind, ok := joinKindNamed(w.Kind)
		if !ok {
			return nil, errValidationf("decode", "unknown join kind %q", w.Kind)
		}
		left, err := decodeRelation(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeRelation(w.Right)
		if err != nil {
			return nil, err
		}
		ps, err := decodeValues(w.Predicates)
		if err != nil {
			return nil, err
		}
		if kind == AsOfJoin {
			var on *Comparison
			if w.On != nil {
				n, err := decodeNode(w.On)
				if err != nil {
					return nil, err
				}
				if on, ok = n.(*Comparison); !ok {
					return nil, errValidationf("decode", "as-of ordering is not a comparison")
				}
			}
			var tol Value
			if w.Tolerance != nil {
				if tol, err = decodeValue(w.Tolerance); err != nil {
					return nil, err
				}
			}
			return NewAsOfJoin(left, right, on, ps, tol, w.LSuffix, w.RSuffix)
		}
		return NewJoin(kind, left, right, ps, w.LSuffix, w.RSuffix)
	case "setop":
		var w wireSetOp
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		kind, ok := setOpKindNamed(w.Kind)
		if !ok {
			return nil, errValidationf("decode", "unknown set operation %q", w.Kind)
		}
		left, err := decodeRelation(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeRelation(w.Right)
		if err != nil {
			return nil, err
		}
		return NewSetOp(kind, left, right, w.Distinct)
	case "limit":
		var w wireLimit
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		src, err := decodeRelation(w.Source)
		if err != nil {
			return nil, err
		}
		return NewLimit(src, w.Count, w.Offset)
	case "distinct":
		var w wireDistinct
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		src, err := decodeRelation(w.Source)
		if err != nil {
			return nil, err
		}
		return NewDistinct(src)
	}
	return nil, errValidationf("decode", "unknown node tag %q", env.Type)
}

func decodeBinary(raw json.RawMessage) (op string, left, right Value, err error) {
	var w wireBinary
	if err = json.Unmarshal(raw, &w); err != nil {
		return "", nil, nil, err
	}
	if left, err = decodeValue(w.Left); err != nil {
		return "", nil, nil, err
	}
	if right, err = decodeValue(w.Right); err != nil {
		return "", nil, nil, err
	}
	return w.Op, left, right, nil
}

func decodeValue(raw json.RawMessage) (Value, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	v, ok := n.(Value)
	if !ok {
		return nil, errValidationf("decode", "expected a value node, found %T", n)
	}
	return v, nil
}

func decodeRelation(raw json.RawMessage) (Relation, error) {
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	r, ok := n.(Relation)
	if !ok {
		return nil, errValidationf("decode", "expected a relation node, found %T", n)
	}
	return r, nil
}

func decodeValues(raws []json.RawMessage) ([]Value, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]Value, len(raws))
	for i, raw := range raws {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeBindings(ws []wireBinding) ([]Binding, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]Binding, len(ws))
	for i, w := range ws {
		v, err := decodeValue(w.Expr)
		if err != nil {
			return nil, err
		}
		if w.Explicit {
			out[i] = Bind(v, w.Name)
		} else {
			out[i] = Identity(v)
		}
	}
	return out, nil
}

func decodeSortKeys(ws []wireSortKey) ([]SortKey, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]SortKey, len(ws))
	for i, w := range ws {
		v, err := decodeValue(w.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = SortKey{Expr: v, Descending: w.Desc}
	}
	return out, nil
}

func decodeWindow(w wireWindow) (*Window, error) {
	partition, err := decodeValues(w.PartitionBy)
	if err != nil {
		return nil, err
	}
	order, err := decodeSortKeys(w.OrderBy)
	if err != nil {
		return nil, err
	}
	var frame *WindowFrame
	if w.Frame != nil {
		kind, ok := frameKindNamed(w.Frame.Kind)
		if !ok {
			return nil, errValidationf("decode", "unknown frame kind %q", w.Frame.Kind)
		}
		frame, err = NewWindowFrame(kind, Bound{Offset: w.Frame.Lower.Offset}, Bound{Offset: w.Frame.Upper.Offset})
		if err != nil {
			return nil, err
		}
	}
	return NewWindow(partition, order, frame)
}

func decodeLiteralValue(raw json.RawMessage, d types.DataType) (any, error) {
	switch {
	case d.IsBoolean():
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case d.Kind() == types.UInt64:
		s, err := unmarshalString(raw)
		if err != nil {
			return nil, err
		}
		return strconv.ParseUint(s, 10, 64)
	case d.IsInteger(), d.IsInterval():
		s, err := unmarshalString(raw)
		if err != nil {
			return nil, err
		}
		return strconv.ParseInt(s, 10, 64)
	case d.IsFloating():
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	case d.IsDecimal():
		s, err := unmarshalString(raw)
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, errValidationf("decode", "malformed decimal %q", s)
		}
		return r, nil
	case d.IsString():
		return unmarshalString(raw)
	case d.IsTemporal():
		s, err := unmarshalString(raw)
		if err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case d.Kind() == types.Array:
		elem, _ := d.Elem()
		var raws []json.RawMessage
		if err := json.Unmarshal(raw, &raws); err != nil {
			return nil, err
		}
		out := make([]any, len(raws))
		for i, r := range raws {
			v, err := decodeLiteralValue(r, elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, errValidationf("decode", "cannot decode a literal of type %s", d)
}

func unmarshalString(raw json.RawMessage) (string, error) {
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

func compareOpNamed(s string) (CompareOp, bool) {
	for op := CompareOp(0); op < maxCompareOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func logicalOpNamed(s string) (LogicalOp, bool) {
	for op := LogicalOp(0); op < maxLogicalOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func arithOpNamed(s string) (ArithOp, bool) {
	for op := ArithOp(0); op < maxArithOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func unaryOpNamed(s string) (UnaryOp, bool) {
	for op := UnaryOp(0); op < maxUnaryOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func reductionOpNamed(s string) (ReductionOp, bool) {
	for op := ReductionOp(0); op < maxReductionOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func analyticOpNamed(s string) (AnalyticOp, bool) {
	for op := AnalyticOp(0); op < maxAnalyticOp; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

func joinKindNamed(s string) (JoinKind, bool) {
	for k := JoinKind(0); k < maxJoinKind; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func setOpKindNamed(s string) (SetOpKind, bool) {
	for k := SetOpKind(0); k < maxSetOpKind; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

func frameKindNamed(s string) (FrameKind, bool) {
	switch s {
	case "rows":
		return Rows, true
	case "range":
		return Range, true
	}
	return 0, false
}
