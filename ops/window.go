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

// FrameKind selects how window frame bounds are measured.
type FrameKind int

const (
	// Rows counts physical rows relative to the current row.
	Rows FrameKind = iota

	// Range groups peer rows by ordering value.
	Range
)

func (k FrameKind) String() string {
	if k == Range {
		return "range"
	}
	return "rows"
}

// Bound is one edge of a window frame. A nil Offset means unbounded
// in that direction; offset 0 is the current row.
type Bound struct {
	Offset *int64
}

// Unbounded is the open frame edge.
func Unbounded() Bound { return Bound{} }

// Offset is a frame edge a fixed distance from the current row;
// negative means preceding, positive following.
func Offset(n int64) Bound {
	return Bound{Offset: &n}
}

// CurrentRow is the frame edge at the current row.
func CurrentRow() Bound { return Offset(0) }

func (b Bound) unbounded() bool { return b.Offset == nil }

func (b Bound) equals(o Bound) bool {
	if b.unbounded() || o.unbounded() {
		return b.unbounded() == o.unbounded()
	}
	return *b.Offset == *o.Offset
}

// WindowFrame bounds the rows visible to a windowed aggregate.
type WindowFrame struct {
	Kind         FrameKind
	Lower, Upper Bound
}

// NewWindowFrame validates that the lower bound does not follow the
// upper bound.
func NewWindowFrame(kind FrameKind, lower, upper Bound) (*WindowFrame, error) {
	if !lower.unbounded() && !upper.unbounded() && *lower.Offset > *upper.Offset {
		return nil, errValidationf("window", "frame lower bound %d follows upper bound %d",
			*lower.Offset, *upper.Offset)
	}
	return &WindowFrame{Kind: kind, Lower: lower, Upper: upper}, nil
}

func (f *WindowFrame) equals(o *WindowFrame) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Kind == o.Kind && f.Lower.equals(o.Lower) && f.Upper.equals(o.Upper)
}

// Window is the partition/order/frame specification a window function
// runs over. All fields are optional; an empty Window spans the whole
// relation.
type Window struct {
	PartitionBy []Value
	OrderBy     []SortKey
	Frame       *WindowFrame
}

// NewWindow validates the partition and ordering expressions.
func NewWindow(partition []Value, order []SortKey, frame *WindowFrame) (*Window, error) {
	for i, p := range partition {
		p, err := ArgAny(p)
		if err != nil {
			return nil, err
		}
		partition[i] = p
	}
	for _, k := range order {
		if _, err := ArgAny(k.Expr); err != nil {
			return nil, err
		}
	}
	return &Window{PartitionBy: partition, OrderBy: order, Frame: frame}, nil
}

func (w *Window) walk(v Visitor) {
	for i := range w.PartitionBy {
		Walk(v, w.PartitionBy[i])
	}
	for i := range w.OrderBy {
		Walk(v, w.OrderBy[i].Expr)
	}
}

func (w *Window) rewrite(r Rewriter) *Window {
	cp := *w
	cp.PartitionBy = make([]Value, len(w.PartitionBy))
	for i := range w.PartitionBy {
		cp.PartitionBy[i] = rewriteValue(r, w.PartitionBy[i])
	}
	cp.OrderBy = make([]SortKey, len(w.OrderBy))
	for i := range w.OrderBy {
		cp.OrderBy[i] = w.OrderBy[i]
		cp.OrderBy[i].Expr = rewriteValue(r, w.OrderBy[i].Expr)
	}
	return &cp
}

func (w *Window) equals(o *Window) bool {
	if len(w.PartitionBy) != len(o.PartitionBy) ||
		len(w.OrderBy) != len(o.OrderBy) ||
		!w.Frame.equals(o.Frame) {
		return false
	}
	if !equalValues(w.PartitionBy, o.PartitionBy) {
		return false
	}
	for i := range w.OrderBy {
		if !w.OrderBy[i].equals(o.OrderBy[i]) {
			return false
		}
	}
	return true
}

// WindowFunction applies an aggregating function over a window
// instead of collapsing the relation, so its shape is columnar.
// Func must be a Reduction, a CountStar, or an Analytic.
type WindowFunction struct {
	Func Value
	Spec *Window
}

// NewWindowFunction validates the wrapped function.
func NewWindowFunction(fn Value, spec *Window) (*WindowFunction, error) {
	fn, err := ArgAny(fn)
	if err != nil {
		return nil, err
	}
	switch fn.(type) {
	case *Reduction, *CountStar, *Analytic:
	default:
		return nil, errValidationf("window", "%T cannot be windowed", fn)
	}
	if spec == nil {
		spec = &Window{}
	}
	return &WindowFunction{Func: fn, Spec: spec}, nil
}

func (w *WindowFunction) DataType() types.DataType { return w.Func.DataType() }
func (w *WindowFunction) Shape() Shape             { return ShapeColumn }

func (w *WindowFunction) walk(v Visitor) {
	Walk(v, w.Func)
	w.Spec.walk(v)
}

func (w *WindowFunction) rewrite(r Rewriter) Node {
	cp := *w
	cp.Func = rewriteValue(r, w.Func)
	cp.Spec = w.Spec.rewrite(r)
	return &cp
}

func (w *WindowFunction) Equals(n Node) bool {
	o, ok := n.(*WindowFunction)
	return ok && w.Func.Equals(o.Func) && w.Spec.equals(o.Spec)
}

// AnalyticOp is one of the rank/offset window operations. Unlike
// reductions these are only meaningful over a window.
type AnalyticOp int

const (
	RowNumber AnalyticOp = iota
	Rank
	DenseRank
	Lag
	Lead
	FirstValue
	LastValue
	NTile
	maxAnalyticOp
)

func (op AnalyticOp) String() string {
	switch op {
	case RowNumber:
		return "row_number"
	case Rank:
		return "rank"
	case DenseRank:
		return "dense_rank"
	case Lag:
		return "lag"
	case Lead:
		return "lead"
	case FirstValue:
		return "first_value"
	case LastValue:
		return "last_value"
	case NTile:
		return "ntile"
	default:
		return "invalid"
	}
}

func (op AnalyticOp) defaultName() string {
	if op < 0 || op >= maxAnalyticOp {
		return ""
	}
	return op.String()
}

// Analytic is a rank or offset computation. Arg is required for
// Lag/Lead/FirstValue/LastValue, Offset only applies to Lag/Lead
// (default 1) and NTile (the bucket count).
type Analytic struct {
	Op     AnalyticOp
	Arg    Value // nil for row_number/rank/dense_rank
	Offset Value // nil unless lag/lead/ntile

	typ types.DataType
}

// NewAnalytic validates the operation's argument requirements.
func NewAnalytic(op AnalyticOp, arg, offset Value) (*Analytic, error) {
	if op < 0 || op >= maxAnalyticOp {
		return nil, errValidationf("analytic", "invalid operation")
	}
	var err error
	switch op {
	case RowNumber, Rank, DenseRank:
		if arg != nil {
			return nil, errValidationf("analytic", "%s takes no argument", op)
		}
	case NTile:
		if arg != nil {
			return nil, errValidationf("analytic", "ntile takes no argument")
		}
		if offset == nil {
			return nil, errValidationf("analytic", "ntile requires a bucket count")
		}
	default:
		arg, err = ArgColumnOf(ArgAny)(arg)
		if err != nil {
			return nil, err
		}
	}
	if offset != nil {
		switch op {
		case Lag, Lead, NTile:
			offset, err = ArgInteger(offset)
			if err != nil {
				return nil, err
			}
		default:
			return nil, errValidationf("analytic", "%s takes no offset", op)
		}
	}
	var d types.DataType
	switch op {
	case RowNumber, Rank, DenseRank, NTile:
		d = types.Int64Type().AsNonNullable()
	default:
		// shifting or selecting an edge value can surface null
		d = arg.DataType().AsNullable()
	}
	return &Analytic{Op: op, Arg: arg, Offset: offset, typ: d}, nil
}

func (a *Analytic) DataType() types.DataType { return a.typ }
func (a *Analytic) Shape() Shape             { return ShapeColumn }

func (a *Analytic) walk(v Visitor) {
	if a.Arg != nil {
		Walk(v, a.Arg)
	}
	if a.Offset != nil {
		Walk(v, a.Offset)
	}
}

func (a *Analytic) rewrite(r Rewriter) Node {
	cp := *a
	if a.Arg != nil {
		cp.Arg = rewriteValue(r, a.Arg)
	}
	if a.Offset != nil {
		cp.Offset = rewriteValue(r, a.Offset)
	}
	return &cp
}

func (a *Analytic) Equals(n Node) bool {
	o, ok := n.(*Analytic)
	return ok && a.Op == o.Op && Equal(a.Arg, o.Arg) && Equal(a.Offset, o.Offset)
}
