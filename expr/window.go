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

package expr

import "github.com/GrapeBaBa/ibis/ops"

// WindowBuilder accumulates a partition/order/frame specification.
type WindowBuilder struct {
	partition []ops.Value
	order     []ops.SortKey
	frame     *ops.WindowFrame
	err       error
}

// Window starts an empty specification spanning the whole relation.
func Window() *WindowBuilder {
	return &WindowBuilder{}
}

// PartitionBy groups rows before applying the function.
func (b *WindowBuilder) PartitionBy(vs ...Value) *WindowBuilder {
	if b.err != nil {
		return b
	}
	for _, v := range vs {
		b.partition = append(b.partition, v.Op())
	}
	return b
}

// OrderBy orders rows within each partition.
func (b *WindowBuilder) OrderBy(keys ...SortSpec) *WindowBuilder {
	if b.err != nil {
		return b
	}
	for _, k := range keys {
		b.order = append(b.order, ops.SortKey{Expr: k.v.Op(), Descending: k.desc})
	}
	return b
}

// Rows bounds the frame by physical row offsets.
func (b *WindowBuilder) Rows(lower, upper ops.Bound) *WindowBuilder {
	return b.setFrame(ops.Rows, lower, upper)
}

// Range bounds the frame by ordering-value peers.
func (b *WindowBuilder) Range(lower, upper ops.Bound) *WindowBuilder {
	return b.setFrame(ops.Range, lower, upper)
}

func (b *WindowBuilder) setFrame(kind ops.FrameKind, lower, upper ops.Bound) *WindowBuilder {
	if b.err != nil {
		return b
	}
	b.frame, b.err = ops.NewWindowFrame(kind, lower, upper)
	return b
}

// Over applies the specification to an aggregating expression,
// turning it into a columnar window function.
func (b *WindowBuilder) Over(v Value) (Value, error) {
	if b.err != nil {
		return nil, b.err
	}
	spec, err := ops.NewWindow(b.partition, b.order, b.frame)
	if err != nil {
		return nil, err
	}
	op, err := ops.NewWindowFunction(v.Op(), spec)
	if err != nil {
		return nil, err
	}
	return wrapNamed(op, v.Name()), nil
}

// RowNumber numbers rows from one within each partition.
func RowNumber() Num {
	return Num{value{op: must(ops.NewAnalytic(ops.RowNumber, nil, nil))}}
}

// Rank ranks rows with gaps after ties.
func Rank() Num {
	return Num{value{op: must(ops.NewAnalytic(ops.Rank, nil, nil))}}
}

// DenseRank ranks rows without gaps.
func DenseRank() Num {
	return Num{value{op: must(ops.NewAnalytic(ops.DenseRank, nil, nil))}}
}

// NTile assigns rows to buckets of near-equal size.
func NTile(buckets Num) (Num, error) {
	op, err := ops.NewAnalytic(ops.NTile, nil, buckets.Op())
	if err != nil {
		return Num{}, err
	}
	return Num{value{op: op}}, nil
}

// Lag is the value offset rows before the current row.
func Lag(v Value, offset Num) (Value, error) {
	return shifted(ops.Lag, v, offset)
}

// Lead is the value offset rows after the current row.
func Lead(v Value, offset Num) (Value, error) {
	return shifted(ops.Lead, v, offset)
}

func shifted(op ops.AnalyticOp, v Value, offset Num) (Value, error) {
	var off ops.Value
	if offset.op != nil {
		off = offset.Op()
	}
	n, err := ops.NewAnalytic(op, v.Op(), off)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// FirstValue is the first value of the frame.
func FirstValue(v Value) (Value, error) {
	n, err := ops.NewAnalytic(ops.FirstValue, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}

// LastValue is the last value of the frame.
func LastValue(v Value) (Value, error) {
	n, err := ops.NewAnalytic(ops.LastValue, v.Op(), nil)
	if err != nil {
		return nil, err
	}
	return wrap(n), nil
}
