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

// The wire format is a JSON object per node carrying a "type" tag;
// child nodes nest recursively and shared subtrees are duplicated.
// 64-bit integers travel as decimal strings so they survive decoders
// that read numbers as float64. Types travel as their annotation
// string.

type wireLiteral struct {
	Type  string          `json:"type"`
	DType types.DataType  `json:"dtype"`
	Value json.RawMessage `json:"value,omitempty"`
}

type wireCast struct {
	Type string          `json:"type"`
	Arg  json.RawMessage `json:"arg"`
	To   types.DataType  `json:"to"`
}

type wireColumn struct {
	Type string          `json:"type"`
	Rel  json.RawMessage `json:"rel"`
	Name string          `json:"name"`
}

type wireParam struct {
	Type  string         `json:"type"`
	DType types.DataType `json:"dtype"`
	Num   uint64         `json:"num"`
}

type wireIn struct {
	Type    string            `json:"type"`
	Arg     json.RawMessage   `json:"arg"`
	Options []json.RawMessage `json:"options"`
}

type wireUnary struct {
	Type string          `json:"type"`
	Op   string          `json:"op"`
	Arg  json.RawMessage `json:"arg"`
}

type wireBinary struct {
	Type  string          `json:"type"`
	Op    string          `json:"op"`
	Left  json.RawMessage `json:"left"`
	Right json.RawMessage `json:"right"`
}

type wireBetween struct {
	Type  string          `json:"type"`
	Arg   json.RawMessage `json:"arg"`
	Lower json.RawMessage `json:"lower"`
	Upper json.RawMessage `json:"upper"`
}

type wireIsNull struct {
	Type   string          `json:"type"`
	Arg    json.RawMessage `json:"arg"`
	Negate bool            `json:"negate,omitempty"`
}

type wireBuiltin struct {
	Type string            `json:"type"`
	Func string            `json:"func"`
	Args []json.RawMessage `json:"args"`
}

type wireCase struct {
	Type    string            `json:"type"`
	Base    json.RawMessage   `json:"base,omitempty"`
	Cases   []json.RawMessage `json:"cases"`
	Results []json.RawMessage `json:"results"`
	Default json.RawMessage   `json:"default,omitempty"`
}

type wireReduction struct {
	Type  string          `json:"type"`
	Op    string          `json:"op"`
	Arg   json.RawMessage `json:"arg"`
	Where json.RawMessage `json:"where,omitempty"`
}

type wireAnalytic struct {
	Type   string          `json:"type"`
	Op     string          `json:"op"`
	Arg    json.RawMessage `json:"arg,omitempty"`
	Offset json.RawMessage `json:"offset,omitempty"`
}

type wireBound struct {
	Offset *int64 `json:"offset,omitempty"`
}

type wireFrame struct {
	Kind  string    `json:"kind"`
	Lower wireBound `json:"lower"`
	Upper wireBound `json:"upper"`
}

type wireSortKey struct {
	Expr json.RawMessage `json:"expr"`
	Desc bool            `json:"desc,omitempty"`
}

type wireWindow struct {
	PartitionBy []json.RawMessage `json:"partition_by,omitempty"`
	OrderBy     []wireSortKey     `json:"order_by,omitempty"`
	Frame       *wireFrame        `json:"frame,omitempty"`
}

type wireWindowFunc struct {
	Type string          `json:"type"`
	Func json.RawMessage `json:"func"`
	Spec wireWindow      `json:"spec"`
}

type wireCountStar struct {
	Type string          `json:"type"`
	Rel  json.RawMessage `json:"rel"`
}

type wireSchema struct {
	Names []string         `json:"names"`
	Types []types.DataType `json:"types"`
}

type wireTable struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Namespace string     `json:"namespace,omitempty"`
	Schema    wireSchema `json:"schema"`
}

type wireSelfRef struct {
	Type   string          `json:"type"`
	Parent json.RawMessage `json:"parent"`
	Num    uint64          `json:"num"`
}

type wireBinding struct {
	Name     string          `json:"name,omitempty"`
	Explicit bool            `json:"explicit,omitempty"`
	Expr     json.RawMessage `json:"expr"`
}

type wireSelection struct {
	Type       string            `json:"type"`
	Source     json.RawMessage   `json:"source"`
	Bindings   []wireBinding     `json:"bindings,omitempty"`
	Predicates []json.RawMessage `json:"predicates,omitempty"`
	Keys       []wireSortKey     `json:"keys,omitempty"`
}

type wireAggregation struct {
	Type    string            `json:"type"`
	Source  json.RawMessage   `json:"source"`
	Metrics []wireBinding     `json:"metrics"`
	By      []wireBinding     `json:"by,omitempty"`
	Having  []json.RawMessage `json:"having,omitempty"`
}

type wireJoin struct {
	Type       string            `json:"type"`
	Kind       string            `json:"kind"`
	Left       json.RawMessage   `json:"left"`
	Right      json.RawMessage   `json:"right"`
	Predicates []json.RawMessage `json:"predicates,omitempty"`
	On         json.RawMessage   `json:"on,omitempty"`
	Tolerance  json.RawMessage   `json:"tolerance,omitempty"`
	LSuffix    string            `json:"lsuffix"`
	RSuffix    string            `json:"rsuffix"`
}

type wireSetOp struct {
	Type     string          `json:"type"`
	Kind     string          `json:"kind"`
	Left     json.RawMessage `json:"left"`
	Right    json.RawMessage `json:"right"`
	Distinct bool            `json:"distinct,omitempty"`
}

type wireLimit struct {
	Type   string          `json:"type"`
	Source json.RawMessage `json:"source"`
	Count  int64           `json:"count"`
	Offset int64           `json:"offset,omitempty"`
}

type wireDistinct struct {
	Type   string          `json:"type"`
	Source json.RawMessage `json:"source"`
}

// Encode serializes a node graph to its canonical JSON wire form.
// Structurally equal graphs encode to identical bytes.
func Encode(n Node) ([]byte, error) {
	raw, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// EncodeCompressed is Encode followed by zstd.
func EncodeCompressed(n Node) ([]byte, error) {
	raw, err := Encode(n)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func encodeNode(n Node) (json.RawMessage, error) {
	switch n := n.(type) {
	case *Literal:
		val, err := encodeLiteralValue(n.val, n.typ)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireLiteral{Type: "lit", DType: n.typ, Value: val})
	case *Cast:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireCast{Type: "cast", Arg: arg, To: n.To})
	case *Column:
		rel, err := encodeNode(n.Rel)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireColumn{Type: "col", Rel: rel, Name: n.Name})
	case *ScalarParameter:
		return json.Marshal(wireParam{Type: "param", DType: n.Type, Num: n.Num})
	case *InValues:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		opts, err := encodeNodes(n.Options)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireIn{Type: "in", Arg: arg, Options: opts})
	case *CountStar:
		rel, err := encodeNode(n.Rel)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireCountStar{Type: "count_star", Rel: rel})
	case *Comparison:
		return encodeBinary("cmp", n.Op.String(), n.Left, n.Right)
	case *Logical:
		return encodeBinary("logical", n.Op.String(), n.Left, n.Right)
	case *Arithmetic:
		return encodeBinary("arith", n.Op.String(), n.Left, n.Right)
	case *Not:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireUnary{Type: "not", Arg: arg})
	case *Unary:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireUnary{Type: "unary", Op: n.Op.String(), Arg: arg})
	case *Between:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		lo, err := encodeNode(n.Lower)
		if err != nil {
			return nil, err
		}
		hi, err := encodeNode(n.Upper)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireBetween{Type: "between", Arg: arg, Lower: lo, Upper: hi})
	case *IsNull:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireIsNull{Type: "isnull", Arg: arg, Negate: n.Negate})
	case *Builtin:
		args, err := encodeNodes(n.Args)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireBuiltin{Type: "builtin", Func: n.Func.String(), Args: args})
	case *SimpleCase:
		return encodeCase("simple_case", n.Base, n.Cases, n.Results, n.Default)
	case *SearchedCase:
		return encodeCase("searched_case", nil, n.Cases, n.Results, n.Default)
	case *Reduction:
		arg, err := encodeNode(n.Arg)
		if err != nil {
			return nil, err
		}
		w := wireReduction{Type: "reduction", Op: n.Op.String(), Arg: arg}
		if n.Where != nil {
			if w.Where, err = encodeNode(n.Where); err != nil {
				return nil, err
			}
		}
		return json.Marshal(w)
	case *Analytic:
		w := wireAnalytic{Type: "analytic", Op: n.Op.String()}
		var err error
		if n.Arg != nil {
			if w.Arg, err = encodeNode(n.Arg); err != nil {
				return nil, err
			}
		}
		if n.Offset != nil {
			if w.Offset, err = encodeNode(n.Offset); err != nil {
				return nil, err
			}
		}
		return json.Marshal(w)
	case *WindowFunction:
		fn, err := encodeNode(n.Func)
		if err != nil {
			return nil, err
		}
		spec, err := encodeWindow(n.Spec)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireWindowFunc{Type: "window", Func: fn, Spec: spec})
	case *UnboundTable:
		return json.Marshal(wireTable{Type: "unbound_table", Name: n.Name, Schema: encodeSchema(n.sch)})
	case *DatabaseTable:
		return json.Marshal(wireTable{Type: "table", Name: n.Name, Namespace: n.Namespace, Schema: encodeSchema(n.sch)})
	case *SelfReference:
		parent, err := encodeNode(n.Parent)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSelfRef{Type: "self_ref", Parent: parent, Num: n.Num})
	case *Selection:
		src, err := encodeNode(n.Source)
		if err != nil {
			return nil, err
		}
		bs, err := encodeBindings(n.Bindings)
		if err != nil {
			return nil, err
		}
		ps, err := encodeNodes(n.Predicates)
		if err != nil {
			return nil, err
		}
		ks, err := encodeSortKeys(n.Keys)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSelection{Type: "selection", Source: src, Bindings: bs, Predicates: ps, Keys: ks})
	case *Aggregation:
		src, err := encodeNode(n.Source)
		if err != nil {
			return nil, err
		}
		ms, err := encodeBindings(n.Metrics)
		if err != nil {
			return nil, err
		}
		by, err := encodeBindings(n.By)
		if err != nil {
			return nil, err
		}
		hv, err := encodeNodes(n.Having)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireAggregation{Type: "aggregation", Source: src, Metrics: ms, By: by, Having: hv})
	case *Join:
		left, err := encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		ps, err := encodeNodes(n.Predicates)
		if err != nil {
			return nil, err
		}
		w := wireJoin{
			Type: "join", Kind: n.Kind.String(),
			Left: left, Right: right, Predicates: ps,
			LSuffix: n.lsuffix, RSuffix: n.rsuffix,
		}
		if n.On != nil {
			if w.On, err = encodeNode(n.On); err != nil {
				return nil, err
			}
		}
		if n.Tolerance != nil {
			if w.Tolerance, err = encodeNode(n.Tolerance); err != nil {
				return nil, err
			}
		}
		return json.Marshal(w)
	case *SetOp:
		left, err := encodeNode(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeNode(n.Right)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSetOp{Type: "setop", Kind: n.Kind.String(), Left: left, Right: right, Distinct: n.Distinct})
	case *Limit:
		src, err := encodeNode(n.Source)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireLimit{Type: "limit", Source: src, Count: n.Count, Offset: n.Offset})
	case *Distinct:
		src, err := encodeNode(n.Source)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireDistinct{Type: "distinct", Source: src})
	}
	return nil, errValidationf("encode", "cannot encode node of type %T", n)
}

func encodeBinary(tag, op string, left, right Value) (json.RawMessage, error) {
	l, err := encodeNode(left)
	if err != nil {
		return nil, err
	}
	r, err := encodeNode(right)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireBinary{Type: tag, Op: op, Left: l, Right: r})
}

func encodeCase(tag string, base Value, cases, results []Value, def Value) (json.RawMessage, error) {
	w := wireCase{Type: tag}
	var err error
	if base != nil {
		if w.Base, err = encodeNode(base); err != nil {
			return nil, err
		}
	}
	if w.Cases, err = encodeNodes(cases); err != nil {
		return nil, err
	}
	if w.Results, err = encodeNodes(results); err != nil {
		return nil, err
	}
	if def != nil {
		if w.Default, err = encodeNode(def); err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}

func encodeNodes(vs []Value) ([]json.RawMessage, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, len(vs))
	for i, v := range vs {
		raw, err := encodeNode(v)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func encodeBindings(bs []Binding) ([]wireBinding, error) {
	if len(bs) == 0 {
		return nil, nil
	}
	out := make([]wireBinding, len(bs))
	for i, b := range bs {
		raw, err := encodeNode(b.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = wireBinding{Name: b.as, Explicit: b.explicit, Expr: raw}
	}
	return out, nil
}

func encodeSortKeys(ks []SortKey) ([]wireSortKey, error) {
	if len(ks) == 0 {
		return nil, nil
	}
	out := make([]wireSortKey, len(ks))
	for i, k := range ks {
		raw, err := encodeNode(k.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = wireSortKey{Expr: raw, Desc: k.Descending}
	}
	return out, nil
}

func encodeWindow(w *Window) (wireWindow, error) {
	var out wireWindow
	var err error
	if out.PartitionBy, err = encodeNodes(w.PartitionBy); err != nil {
		return out, err
	}
	if out.OrderBy, err = encodeSortKeys(w.OrderBy); err != nil {
		return out, err
	}
	if w.Frame != nil {
		out.Frame = &wireFrame{
			Kind:  w.Frame.Kind.String(),
			Lower: wireBound{Offset: w.Frame.Lower.Offset},
			Upper: wireBound{Offset: w.Frame.Upper.Offset},
		}
	}
	return out, nil
}

func encodeSchema(s *schema.Schema) wireSchema {
	return wireSchema{Names: s.Names(), Types: s.Types()}
}

func encodeLiteralValue(v any, d types.DataType) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	switch v := v.(type) {
	case bool, float64, string:
		return json.Marshal(v)
	case int64:
		return json.Marshal(strconv.FormatInt(v, 10))
	case uint64:
		return json.Marshal(strconv.FormatUint(v, 10))
	case *big.Rat:
		return json.Marshal(v.RatString())
	case time.Time:
		return json.Marshal(v.Format(time.RFC3339Nano))
	case []any:
		elem, ok := d.Elem()
		if !ok {
			return nil, errValidationf("encode", "list value with non-array type %s", d)
		}
		out := make([]json.RawMessage, len(v))
		for i, e := range v {
			raw, err := encodeLiteralValue(e, elem)
			if err != nil {
				return nil, err
			}
			out[i] = raw
		}
		return json.Marshal(out)
	}
	return nil, errValidationf("encode", "cannot encode literal value of type %T", v)
}
