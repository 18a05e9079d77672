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

// CaseBuilder accumulates when/then branches; End validates them and
// produces the case expression. Errors are deferred: the first one
// is reported by End and later calls are ignored.
type CaseBuilder struct {
	base    ops.Value // nil for a searched case
	cases   []ops.Value
	results []ops.Value
	def     ops.Value
	err     error
}

// Case starts a searched case: each When condition is a boolean.
func Case() *CaseBuilder {
	return &CaseBuilder{}
}

// CaseOf starts a simple case comparing base against each When
// value.
func CaseOf(base Value) *CaseBuilder {
	return &CaseBuilder{base: base.Op()}
}

// When adds a branch.
func (b *CaseBuilder) When(cond, result Value) *CaseBuilder {
	if b.err != nil {
		return b
	}
	b.cases = append(b.cases, cond.Op())
	b.results = append(b.results, result.Op())
	return b
}

// Else sets the default branch; without one, unmatched rows yield
// null.
func (b *CaseBuilder) Else(result Value) *CaseBuilder {
	if b.err != nil {
		return b
	}
	b.def = result.Op()
	return b
}

// End validates the accumulated branches and builds the expression.
// At least one When is required.
func (b *CaseBuilder) End() (Value, error) {
	if b.err != nil {
		return nil, b.err
	}
	var op ops.Value
	var err error
	if b.base != nil {
		op, err = ops.NewSimpleCase(b.base, b.cases, b.results, b.def)
	} else {
		op, err = ops.NewSearchedCase(b.cases, b.results, b.def)
	}
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}
