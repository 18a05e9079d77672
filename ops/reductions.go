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

// ReductionOp is one of the aggregation operations.
type ReductionOp int

const (
	// Describes COUNT(...)
	Count ReductionOp = iota

	// Describes COUNT(DISTINCT ...)
	CountDistinct

	// Describes SUM(...)
	Sum

	// Describes AVG(...)
	Mean

	// Describes MIN(...)
	Min

	// Describes MAX(...)
	Max

	// Any is true when any input is true (BOOL_OR)
	Any

	// All is true when every input is true (BOOL_AND)
	All

	// Describes the sample standard deviation
	StdDev

	// Describes the sample variance
	Variance

	// First yields the first input value in order
	First

	// Last yields the last input value in order
	Last

	// GroupConcat joins string inputs with a separator
	GroupConcat

	maxReductionOp
)

func (op ReductionOp) String() string {
	switch op {
	case Count:
		return "count"
	case CountDistinct:
		return "count_distinct"
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	case Any:
		return "any"
	case All:
		return "all"
	case StdDev:
		return "std"
	case Variance:
		return "var"
	case First:
		return "first"
	case Last:
		return "last"
	case GroupConcat:
		return "group_concat"
	default:
		return "invalid"
	}
}

// defaultName is the implicit output column name when a metric is
// projected without an explicit name.
func (op ReductionOp) defaultName() string {
	if op < 0 || op >= maxReductionOp {
		return ""
	}
	return op.String()
}

func (op ReductionOp) argRule() Rule {
	switch op {
	case Sum, Mean, StdDev, Variance:
		return ArgNumeric
	case Any, All:
		return ArgBoolean
	case GroupConcat:
		return ArgString
	default:
		return ArgAny
	}
}

// Reduction aggregates a columnar value to a scalar. Where is an
// optional boolean filter applied before aggregating.
type Reduction struct {
	Op    ReductionOp
	Arg   Value
	Where Value

	typ types.DataType
}

// NewReduction validates the argument against the operation and
// computes the result type.
func NewReduction(op ReductionOp, arg Value, where Value) (*Reduction, error) {
	if op < 0 || op >= maxReductionOp {
		return nil, errValidationf("reduction", "invalid operation")
	}
	arg, err := ArgColumnOf(op.argRule())(arg)
	if err != nil {
		return nil, err
	}
	if where != nil {
		where, err = ArgBoolean(where)
		if err != nil {
			return nil, err
		}
	}
	d, err := reductionType(op, arg.DataType())
	if err != nil {
		return nil, err
	}
	return &Reduction{Op: op, Arg: arg, Where: where, typ: d}, nil
}

func reductionType(op ReductionOp, in types.DataType) (types.DataType, error) {
	switch op {
	case Count, CountDistinct:
		return types.Int64Type().AsNonNullable(), nil
	case Sum:
		switch {
		case in.IsUnsignedInteger():
			return types.UInt64Type(), nil
		case in.IsInteger():
			return types.Int64Type(), nil
		default:
			return in.AsNullable(), nil
		}
	case Mean, StdDev, Variance:
		if in.IsDecimal() {
			return in.AsNullable(), nil
		}
		return types.Float64Type(), nil
	case Min, Max, First, Last:
		return in.AsNullable(), nil
	case Any, All:
		return types.BooleanType(), nil
	case GroupConcat:
		return types.StringType(), nil
	}
	return types.DataType{}, errValidationf("reduction", "invalid operation")
}

func (a *Reduction) DataType() types.DataType { return a.typ }

// Shape is scalar: a reduction collapses its column input. Inside a
// projection it is broadcast back over rows by the window rewrite.
func (a *Reduction) Shape() Shape { return ShapeScalar }

func (a *Reduction) walk(v Visitor) {
	Walk(v, a.Arg)
	if a.Where != nil {
		Walk(v, a.Where)
	}
}

func (a *Reduction) rewrite(r Rewriter) Node {
	cp := *a
	cp.Arg = rewriteValue(r, a.Arg)
	if a.Where != nil {
		cp.Where = rewriteValue(r, a.Where)
	}
	return &cp
}

func (a *Reduction) Equals(n Node) bool {
	o, ok := n.(*Reduction)
	return ok && a.Op == o.Op && a.Arg.Equals(o.Arg) && Equal(a.Where, o.Where)
}

// ContainsReduction reports whether v contains a reduction (or a
// whole-relation count) that is not already wrapped in a window
// function.
func ContainsReduction(v Value) bool {
	f := &findReduction{}
	Walk(f, v)
	return f.found
}

type findReduction struct {
	found bool
}

func (f *findReduction) Visit(n Node) Visitor {
	if n == nil || f.found {
		return nil
	}
	switch n.(type) {
	case *Reduction, *CountStar:
		f.found = true
		return nil
	case *WindowFunction:
		// already windowed; its interior does not count
		return nil
	case Relation:
		// do not descend into source relations
		return nil
	}
	return f
}
