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

// caseResultType computes the output type of a case expression: the
// precedence join of the result branches, ignoring null-literal
// branches except that they (or a missing default) widen the result
// to nullable.
func caseResultType(results []Value, def Value) (types.DataType, error) {
	var ds []types.DataType
	sawNull := def == nil
	all := results
	if def != nil {
		all = append(append([]Value(nil), results...), def)
	}
	for _, r := range all {
		if lit, ok := r.(*Literal); ok && lit.IsNull() {
			sawNull = true
			continue
		}
		ds = append(ds, r.DataType())
	}
	if len(ds) == 0 {
		return types.NullType(), nil
	}
	d, err := types.HighestPrecedence(ds)
	if err != nil {
		return types.DataType{}, err
	}
	if sawNull {
		d = d.AsNullable()
	}
	return d, nil
}

// SimpleCase compares a base expression against each case value in
// turn, yielding the paired result; the default (or null) applies
// when nothing matches.
type SimpleCase struct {
	Base    Value
	Cases   []Value
	Results []Value
	Default Value // may be nil: unmatched rows yield null

	typ types.DataType
}

// NewSimpleCase validates that cases and results pair up, that every
// case is comparable with the base, and that the result branches
// share a supertype.
func NewSimpleCase(base Value, cases, results []Value, def Value) (*SimpleCase, error) {
	base, err := ArgAny(base)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, errValidationf("case", "at least one case is required")
	}
	if len(cases) != len(results) {
		return nil, errValidationf("case", "%d cases but %d results", len(cases), len(results))
	}
	for _, c := range cases {
		if _, err := ArgAny(c); err != nil {
			return nil, err
		}
		if err := ArgComparable(base, c); err != nil {
			return nil, err
		}
	}
	d, err := caseResultType(results, def)
	if err != nil {
		return nil, err
	}
	return &SimpleCase{Base: base, Cases: cases, Results: results, Default: def, typ: d}, nil
}

func (c *SimpleCase) DataType() types.DataType { return c.typ }

func (c *SimpleCase) Shape() Shape {
	args := append([]Value{c.Base}, c.Cases...)
	args = append(args, c.Results...)
	if c.Default != nil {
		args = append(args, c.Default)
	}
	return shapeOf(args...)
}

func (c *SimpleCase) walk(v Visitor) {
	Walk(v, c.Base)
	for i := range c.Cases {
		Walk(v, c.Cases[i])
		Walk(v, c.Results[i])
	}
	if c.Default != nil {
		Walk(v, c.Default)
	}
}

func (c *SimpleCase) rewrite(r Rewriter) Node {
	cp := *c
	cp.Base = rewriteValue(r, c.Base)
	cp.Cases = make([]Value, len(c.Cases))
	cp.Results = make([]Value, len(c.Results))
	for i := range c.Cases {
		cp.Cases[i] = rewriteValue(r, c.Cases[i])
		cp.Results[i] = rewriteValue(r, c.Results[i])
	}
	if c.Default != nil {
		cp.Default = rewriteValue(r, c.Default)
	}
	return &cp
}

func (c *SimpleCase) Equals(n Node) bool {
	o, ok := n.(*SimpleCase)
	return ok && c.Base.Equals(o.Base) &&
		equalValues(c.Cases, o.Cases) &&
		equalValues(c.Results, o.Results) &&
		Equal(c.Default, o.Default)
}

// SearchedCase evaluates boolean conditions in turn, yielding the
// first matching result.
type SearchedCase struct {
	Cases   []Value // boolean conditions
	Results []Value
	Default Value // may be nil: unmatched rows yield null

	typ types.DataType
}

// NewSearchedCase validates that cases and results pair up, that
// every condition is boolean, and that the result branches share a
// supertype.
func NewSearchedCase(cases, results []Value, def Value) (*SearchedCase, error) {
	if len(cases) == 0 {
		return nil, errValidationf("case", "at least one case is required")
	}
	if len(cases) != len(results) {
		return nil, errValidationf("case", "%d cases but %d results", len(cases), len(results))
	}
	for _, c := range cases {
		if _, err := ArgBoolean(c); err != nil {
			return nil, err
		}
	}
	d, err := caseResultType(results, def)
	if err != nil {
		return nil, err
	}
	return &SearchedCase{Cases: cases, Results: results, Default: def, typ: d}, nil
}

func (c *SearchedCase) DataType() types.DataType { return c.typ }

func (c *SearchedCase) Shape() Shape {
	args := append([]Value{}, c.Cases...)
	args = append(args, c.Results...)
	if c.Default != nil {
		args = append(args, c.Default)
	}
	return shapeOf(args...)
}

func (c *SearchedCase) walk(v Visitor) {
	for i := range c.Cases {
		Walk(v, c.Cases[i])
		Walk(v, c.Results[i])
	}
	if c.Default != nil {
		Walk(v, c.Default)
	}
}

func (c *SearchedCase) rewrite(r Rewriter) Node {
	cp := *c
	cp.Cases = make([]Value, len(c.Cases))
	cp.Results = make([]Value, len(c.Results))
	for i := range c.Cases {
		cp.Cases[i] = rewriteValue(r, c.Cases[i])
		cp.Results[i] = rewriteValue(r, c.Results[i])
	}
	if c.Default != nil {
		cp.Default = rewriteValue(r, c.Default)
	}
	return &cp
}

func (c *SearchedCase) Equals(n Node) bool {
	o, ok := n.(*SearchedCase)
	return ok && equalValues(c.Cases, o.Cases) &&
		equalValues(c.Results, o.Results) &&
		Equal(c.Default, o.Default)
}
