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

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/schema"
)

// Table wraps a relation node with the fluent verbs. Every verb
// derives a new table; the receiver is never modified.
type Table struct {
	rel ops.Relation
}

// NewTable declares an unbound table from a schema; expressions over
// it can be built and compiled without a live connection.
func NewTable(name string, sch *schema.Schema) (*Table, error) {
	rel, err := ops.NewUnboundTable(name, sch)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// TableOf wraps an existing relation node.
func TableOf(rel ops.Relation) *Table {
	return &Table{rel: rel}
}

// Op returns the underlying relation node.
func (t *Table) Op() ops.Relation { return t.rel }

// Schema returns the table's column layout.
func (t *Table) Schema() *schema.Schema { return t.rel.Schema() }

// Column resolves a column by name, returning the wrapper matching
// its type.
func (t *Table) Column(name string) (Value, error) {
	op, err := ops.NewColumn(t.rel, name)
	if err != nil {
		return nil, err
	}
	return wrap(op), nil
}

// Num resolves a numeric column.
func (t *Table) Num(name string) (Num, error) {
	v, err := t.Column(name)
	if err != nil {
		return Num{}, err
	}
	n, ok := v.(Num)
	if !ok {
		return Num{}, fmt.Errorf("column %q is %s, not numeric", name, v.DataType())
	}
	return n, nil
}

// Str resolves a string column.
func (t *Table) Str(name string) (Str, error) {
	v, err := t.Column(name)
	if err != nil {
		return Str{}, err
	}
	s, ok := v.(Str)
	if !ok {
		return Str{}, fmt.Errorf("column %q is %s, not string", name, v.DataType())
	}
	return s, nil
}

// Bool resolves a boolean column.
func (t *Table) Bool(name string) (Bool, error) {
	v, err := t.Column(name)
	if err != nil {
		return Bool{}, err
	}
	b, ok := v.(Bool)
	if !ok {
		return Bool{}, fmt.Errorf("column %q is %s, not boolean", name, v.DataType())
	}
	return b, nil
}

// Time resolves a temporal column.
func (t *Table) Time(name string) (Time, error) {
	v, err := t.Column(name)
	if err != nil {
		return Time{}, err
	}
	tm, ok := v.(Time)
	if !ok {
		return Time{}, fmt.Errorf("column %q is %s, not temporal", name, v.DataType())
	}
	return tm, nil
}

// Geo resolves a geospatial column.
func (t *Table) Geo(name string) (Geo, error) {
	v, err := t.Column(name)
	if err != nil {
		return Geo{}, err
	}
	g, ok := v.(Geo)
	if !ok {
		return Geo{}, fmt.Errorf("column %q is %s, not geospatial", name, v.DataType())
	}
	return g, nil
}

// binding converts a wrapper into an ops binding: a renamed wrapper
// binds explicitly, anything else projects under its derived name.
func binding(v Value) ops.Binding {
	op := v.Op()
	if n := v.Name(); n != "" && n != ops.NameOf(op) {
		return ops.Bind(op, n)
	}
	return ops.Identity(op)
}

// Select projects columns. Each argument is either a column name or
// an expression; bare reductions are broadcast over rows as
// whole-relation window functions.
func (t *Table) Select(cols ...any) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("select: no columns given")
	}
	bs := make([]ops.Binding, len(cols))
	for i, c := range cols {
		switch c := c.(type) {
		case string:
			col, err := ops.NewColumn(t.rel, c)
			if err != nil {
				return nil, err
			}
			bs[i] = ops.Identity(col)
		case Value:
			bs[i] = binding(c)
		default:
			return nil, fmt.Errorf("select: argument %d is %T, not a column name or expression", i, c)
		}
	}
	rel, err := ops.NewSelection(t.rel, ops.WindowizeBindings(bs), nil, nil)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Mutate adds or replaces columns: a name already in the schema is
// replaced in place, new names are appended in sorted order.
func (t *Table) Mutate(cols map[string]Value) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("mutate: no columns given")
	}
	sch := t.Schema()
	var bs []ops.Binding
	for _, name := range sch.Names() {
		if v, ok := cols[name]; ok {
			bs = append(bs, ops.Bind(v.Op(), name))
		} else {
			col, err := ops.NewColumn(t.rel, name)
			if err != nil {
				return nil, err
			}
			bs = append(bs, ops.Identity(col))
		}
	}
	added := maps.Keys(cols)
	slices.Sort(added)
	for _, name := range added {
		if sch.Index(name) >= 0 {
			continue
		}
		bs = append(bs, ops.Bind(cols[name].Op(), name))
	}
	rel, err := ops.NewSelection(t.rel, ops.WindowizeBindings(bs), nil, nil)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Filter keeps rows matching every predicate; AND trees are
// flattened into individual conjuncts.
func (t *Table) Filter(preds ...Bool) (*Table, error) {
	if len(preds) == 0 {
		return nil, fmt.Errorf("filter: no predicates given")
	}
	var flat []ops.Value
	for _, p := range preds {
		flat = append(flat, ops.FlattenPredicate(p.Op())...)
	}
	rel, err := ops.NewSelection(t.rel, nil, flat, nil)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// SortSpec pairs a sort expression with its direction.
type SortSpec struct {
	v    Value
	desc bool
}

// Asc sorts ascending.
func Asc(v Value) SortSpec { return SortSpec{v: v} }

// Desc sorts descending.
func Desc(v Value) SortSpec { return SortSpec{v: v, desc: true} }

// Sort orders rows by the given keys.
func (t *Table) Sort(keys ...SortSpec) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("sort: no keys given")
	}
	ks := make([]ops.SortKey, len(keys))
	for i, k := range keys {
		ks[i] = ops.SortKey{Expr: k.v.Op(), Descending: k.desc}
	}
	rel, err := ops.NewSelection(t.rel, nil, nil, ks)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// SortBy orders rows by named columns, ascending.
func (t *Table) SortBy(names ...string) (*Table, error) {
	keys := make([]SortSpec, len(names))
	for i, name := range names {
		v, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		keys[i] = Asc(v)
	}
	return t.Sort(keys...)
}

// Limit keeps at most count rows after skipping offset rows.
func (t *Table) Limit(count, offset int64) (*Table, error) {
	rel, err := ops.NewLimit(t.rel, count, offset)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Distinct eliminates duplicate rows.
func (t *Table) Distinct() (*Table, error) {
	rel, err := ops.NewDistinct(t.rel)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Drop projects away the named columns; naming an absent column is
// an error.
func (t *Table) Drop(names ...string) (*Table, error) {
	sch := t.Schema()
	drop := map[string]bool{}
	for _, name := range names {
		if sch.Index(name) < 0 {
			return nil, &ops.SchemaError{
				Msg:       "cannot drop missing column",
				Missing:   []string{name},
				Available: sch.Names(),
			}
		}
		drop[name] = true
	}
	var keep []any
	for _, name := range sch.Names() {
		if !drop[name] {
			keep = append(keep, name)
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("drop: no columns left")
	}
	return t.Select(keep...)
}

// Relabel renames the given columns, keeping every column in place;
// naming an absent column is an error.
func (t *Table) Relabel(names map[string]string) (*Table, error) {
	sch := t.Schema()
	for old := range names {
		if sch.Index(old) < 0 {
			return nil, &ops.SchemaError{
				Msg:       "cannot relabel missing column",
				Missing:   []string{old},
				Available: sch.Names(),
			}
		}
	}
	bs := make([]ops.Binding, sch.Len())
	for i, name := range sch.Names() {
		col, err := ops.NewColumn(t.rel, name)
		if err != nil {
			return nil, err
		}
		if to, ok := names[name]; ok {
			bs[i] = ops.Bind(col, to)
		} else {
			bs[i] = ops.Identity(col)
		}
	}
	rel, err := ops.NewSelection(t.rel, bs, nil, nil)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Count is the number of rows.
func (t *Table) Count() Num {
	return Num{value{op: must(ops.NewCountStar(t.rel))}}
}

// View aliases the table under a fresh identity, so it can be joined
// against itself.
func (t *Table) View() (*Table, error) {
	rel, err := ops.NewSelfReference(t.rel)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// GroupedTable is a table with pending grouping keys.
type GroupedTable struct {
	t      *Table
	by     []ops.Binding
	having []ops.Value
	err    error
}

// GroupBy starts an aggregation grouped by the given keys, each a
// column name or an expression.
func (t *Table) GroupBy(keys ...any) *GroupedTable {
	g := &GroupedTable{t: t}
	for i, k := range keys {
		switch k := k.(type) {
		case string:
			col, err := ops.NewColumn(t.rel, k)
			if err != nil {
				g.err = err
				return g
			}
			g.by = append(g.by, ops.Identity(col))
		case Value:
			g.by = append(g.by, binding(k))
		default:
			g.err = fmt.Errorf("group by: argument %d is %T, not a column name or expression", i, k)
			return g
		}
	}
	return g
}

// Having filters groups after aggregation; the predicate must itself
// aggregate.
func (g *GroupedTable) Having(p Bool) *GroupedTable {
	if g.err != nil {
		return g
	}
	g.having = append(g.having, p.Op())
	return g
}

// Aggregate computes the named metrics per group. Metrics are laid
// out after the grouping keys, in sorted name order.
func (g *GroupedTable) Aggregate(metrics map[string]Value) (*Table, error) {
	if g.err != nil {
		return nil, g.err
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("aggregate: no metrics given")
	}
	names := maps.Keys(metrics)
	slices.Sort(names)
	ms := make([]ops.Binding, len(names))
	for i, name := range names {
		ms[i] = ops.Bind(metrics[name].Op(), name)
	}
	rel, err := ops.NewAggregation(g.t.rel, ms, g.by, g.having)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// Aggregate computes metrics over the whole table, without grouping.
func (t *Table) Aggregate(metrics map[string]Value) (*Table, error) {
	return t.GroupBy().Aggregate(metrics)
}

// JoinOption adjusts join construction.
type JoinOption func(*joinConfig)

type joinConfig struct {
	lsuffix, rsuffix string
}

// WithSuffixes overrides the "_x"/"_y" suffixes used to rename
// colliding non-key columns.
func WithSuffixes(left, right string) JoinOption {
	return func(c *joinConfig) {
		c.lsuffix, c.rsuffix = left, right
	}
}

// Join combines two tables. Equality predicates between same-named
// columns collapse into a single key column; other shared names get
// suffixes.
func (t *Table) Join(kind ops.JoinKind, right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	var cfg joinConfig
	for _, o := range opts {
		o(&cfg)
	}
	rel, err := ops.NewJoin(kind, t.rel, right.rel, predicates(on), cfg.lsuffix, cfg.rsuffix)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

// InnerJoin is Join with the inner kind.
func (t *Table) InnerJoin(right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.InnerJoin, right, on, opts...)
}

// LeftJoin keeps unmatched left rows.
func (t *Table) LeftJoin(right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.LeftJoin, right, on, opts...)
}

// OuterJoin keeps unmatched rows from both sides.
func (t *Table) OuterJoin(right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.OuterJoin, right, on, opts...)
}

// CrossJoin is the unconditional cartesian product.
func (t *Table) CrossJoin(right *Table, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.CrossJoin, right, nil, opts...)
}

// SemiJoin keeps left rows with at least one match; right columns do
// not appear.
func (t *Table) SemiJoin(right *Table, on []Bool) (*Table, error) {
	return t.Join(ops.LeftSemiJoin, right, on)
}

// AntiJoin keeps left rows with no match.
func (t *Table) AntiJoin(right *Table, on []Bool) (*Table, error) {
	return t.Join(ops.LeftAntiJoin, right, on)
}

// AnyInnerJoin matches each left row with at most one right row, so
// matches never multiply the output.
func (t *Table) AnyInnerJoin(right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.AnyInnerJoin, right, on, opts...)
}

// AnyLeftJoin is AnyInnerJoin keeping unmatched left rows.
func (t *Table) AnyLeftJoin(right *Table, on []Bool, opts ...JoinOption) (*Table, error) {
	return t.Join(ops.AnyLeftJoin, right, on, opts...)
}

// AsOfJoin matches each left row with the nearest right row under
// the ordering comparison; tolerance, when non-nil, bounds the match
// distance.
func (t *Table) AsOfJoin(right *Table, on Bool, by []Bool, tolerance Value, opts ...JoinOption) (*Table, error) {
	var cfg joinConfig
	for _, o := range opts {
		o(&cfg)
	}
	cmp, ok := on.Op().(*ops.Comparison)
	if !ok {
		return nil, fmt.Errorf("as-of join: ordering must be a comparison")
	}
	var tol ops.Value
	if tolerance != nil {
		tol = tolerance.Op()
	}
	rel, err := ops.NewAsOfJoin(t.rel, right.rel, cmp, predicates(by), tol, cfg.lsuffix, cfg.rsuffix)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}

func predicates(on []Bool) []ops.Value {
	out := make([]ops.Value, len(on))
	for i, p := range on {
		out[i] = p.Op()
	}
	return out
}

// Union concatenates two union-compatible tables.
func (t *Table) Union(other *Table, distinct bool) (*Table, error) {
	return t.setop(ops.Union, other, distinct)
}

// Intersect keeps rows present in both tables.
func (t *Table) Intersect(other *Table) (*Table, error) {
	return t.setop(ops.Intersect, other, true)
}

// Difference keeps rows absent from the other table.
func (t *Table) Difference(other *Table) (*Table, error) {
	return t.setop(ops.Difference, other, true)
}

func (t *Table) setop(kind ops.SetOpKind, other *Table, distinct bool) (*Table, error) {
	rel, err := ops.NewSetOp(kind, t.rel, other.rel, distinct)
	if err != nil {
		return nil, err
	}
	return &Table{rel: rel}, nil
}
