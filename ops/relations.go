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

import "github.com/GrapeBaBa/ibis/schema"

// SortKey pairs an ordering expression with a direction.
type SortKey struct {
	Expr       Value
	Descending bool
}

func (k SortKey) equals(o SortKey) bool {
	return k.Descending == o.Descending && k.Expr.Equals(o.Expr)
}

func equalSortKeys(a, b []SortKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equals(b[i]) {
			return false
		}
	}
	return true
}

// Binding pairs a value with its output column name. The name may be
// explicit (Bind) or derived from the expression itself (Identity):
// a column keeps its name, a reduction takes the operation name, a
// row count becomes "count". Expressions without a derivable name
// must be bound explicitly.
type Binding struct {
	Expr     Value
	as       string
	explicit bool
}

// Bind names an output column explicitly.
func Bind(v Value, name string) Binding {
	return Binding{Expr: v, as: name, explicit: true}
}

// Identity projects a value under its derived name.
func Identity(v Value) Binding {
	return Binding{Expr: v}
}

// Result returns the output column name, or "" when the expression
// has no derivable name and none was given.
func (b Binding) Result() string {
	if b.explicit {
		return b.as
	}
	return derivedName(b.Expr)
}

// Explicit returns whether the binding carries a user-chosen name.
func (b Binding) Explicit() bool { return b.explicit }

// NameOf returns the derived display name of a value, or "" when it
// has none.
func NameOf(v Value) string { return derivedName(v) }

func derivedName(v Value) string {
	switch v := v.(type) {
	case *Column:
		return v.Name
	case *Reduction:
		return v.Op.defaultName()
	case *Analytic:
		return v.Op.defaultName()
	case *CountStar:
		return "count"
	case *WindowFunction:
		return derivedName(v.Func)
	case *ScalarParameter:
		return v.DefaultName()
	case *Cast:
		return derivedName(v.Arg)
	}
	return ""
}

func (b Binding) equals(o Binding) bool {
	return b.explicit == o.explicit && b.as == o.as && b.Expr.Equals(o.Expr)
}

func equalBindings(a, b []Binding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].equals(b[i]) {
			return false
		}
	}
	return true
}

func walkBindings(v Visitor, bs []Binding) {
	for i := range bs {
		Walk(v, bs[i].Expr)
	}
}

func rewriteBindings(r Rewriter, bs []Binding) []Binding {
	out := make([]Binding, len(bs))
	for i := range bs {
		out[i] = bs[i]
		out[i].Expr = rewriteValue(r, bs[i].Expr)
	}
	return out
}

func rewriteValues(r Rewriter, vs []Value) []Value {
	out := make([]Value, len(vs))
	for i := range vs {
		out[i] = rewriteValue(r, vs[i])
	}
	return out
}

func rewriteRelation(r Rewriter, rel Relation) Relation {
	return Rewrite(r, rel).(Relation)
}

// bindingSchema materializes bindings into a schema, rejecting
// unnameable expressions and duplicate output names.
func bindingSchema(bs []Binding) (*schema.Schema, error) {
	pairs := make([]schema.Pair, len(bs))
	for i, b := range bs {
		name := b.Result()
		if name == "" {
			return nil, errIdentityf("expression %d has no name; bind it explicitly", i)
		}
		pairs[i] = schema.Pair{Name: name, Type: b.Expr.DataType()}
	}
	sch, err := schema.New(pairs)
	if err != nil {
		return nil, &SchemaError{Msg: err.Error()}
	}
	return sch, nil
}

// UnboundTable is a named table with a declared schema and no backing
// storage; it exists so expressions can be built and compiled without
// a live connection.
type UnboundTable struct {
	Name string

	sch *schema.Schema
}

// NewUnboundTable constructs a schema-only table.
func NewUnboundTable(name string, sch *schema.Schema) (*UnboundTable, error) {
	if name == "" {
		return nil, errValidationf("table", "empty table name")
	}
	if sch == nil || sch.Len() == 0 {
		return nil, errValidationf("table", "table %q has no columns", name)
	}
	return &UnboundTable{Name: name, sch: sch}, nil
}

func (t *UnboundTable) Schema() *schema.Schema { return t.sch }
func (t *UnboundTable) Blocks() bool           { return true }
func (t *UnboundTable) parents() []Relation    { return nil }
func (t *UnboundTable) walk(v Visitor)         {}

func (t *UnboundTable) Equals(n Node) bool {
	o, ok := n.(*UnboundTable)
	return ok && t.Name == o.Name && t.sch.Equals(o.sch)
}

// DatabaseTable is a table bound to a concrete backend. Namespace is
// the backend-specific qualifier (database or schema name); it may be
// empty.
type DatabaseTable struct {
	Name      string
	Namespace string

	sch *schema.Schema
}

// NewDatabaseTable constructs a backend-bound table.
func NewDatabaseTable(name, namespace string, sch *schema.Schema) (*DatabaseTable, error) {
	if name == "" {
		return nil, errValidationf("table", "empty table name")
	}
	if sch == nil || sch.Len() == 0 {
		return nil, errValidationf("table", "table %q has no columns", name)
	}
	return &DatabaseTable{Name: name, Namespace: namespace, sch: sch}, nil
}

func (t *DatabaseTable) Schema() *schema.Schema { return t.sch }
func (t *DatabaseTable) Blocks() bool           { return true }
func (t *DatabaseTable) parents() []Relation    { return nil }
func (t *DatabaseTable) walk(v Visitor)         {}

func (t *DatabaseTable) Equals(n Node) bool {
	o, ok := n.(*DatabaseTable)
	return ok && t.Name == o.Name && t.Namespace == o.Namespace && t.sch.Equals(o.sch)
}

// SelfReference is a distinct alias of a relation, used to join a
// table against itself. Two self-references of the same parent are
// never equal.
type SelfReference struct {
	Parent Relation
	Num    uint64
}

// NewSelfReference aliases rel under a fresh identity.
func NewSelfReference(rel Relation) (*SelfReference, error) {
	if rel == nil {
		return nil, errValidationf("view", "missing source relation")
	}
	return &SelfReference{Parent: rel, Num: nextID()}, nil
}

func (s *SelfReference) Schema() *schema.Schema { return s.Parent.Schema() }
func (s *SelfReference) Blocks() bool           { return true }
func (s *SelfReference) parents() []Relation    { return []Relation{s.Parent} }
func (s *SelfReference) walk(v Visitor)         { Walk(v, s.Parent) }

func (s *SelfReference) rewrite(r Rewriter) Node {
	cp := *s
	cp.Parent = rewriteRelation(r, s.Parent)
	return &cp
}

func (s *SelfReference) Equals(n Node) bool {
	o, ok := n.(*SelfReference)
	return ok && s.Num == o.Num && s.Parent.Equals(o.Parent)
}

// Selection is the workhorse relation: an optional projection
// (Bindings), a conjunction of filters (Predicates) and a sort order
// (Keys) over a single source. With no bindings the source schema
// passes through unchanged.
type Selection struct {
	Source     Relation
	Bindings   []Binding
	Predicates []Value
	Keys       []SortKey

	sch *schema.Schema
}

// NewSelection validates the projection names, predicate types and
// the provenance of every referenced column.
func NewSelection(source Relation, bindings []Binding, predicates []Value, keys []SortKey) (*Selection, error) {
	if source == nil {
		return nil, errValidationf("selection", "missing source relation")
	}
	var exprs []Value
	for i := range bindings {
		e, err := ArgAny(bindings[i].Expr)
		if err != nil {
			return nil, err
		}
		bindings[i].Expr = e
		exprs = append(exprs, e)
	}
	for i := range predicates {
		p, err := ArgBoolean(predicates[i])
		if err != nil {
			return nil, err
		}
		predicates[i] = p
		exprs = append(exprs, p)
	}
	for i := range keys {
		e, err := ArgAny(keys[i].Expr)
		if err != nil {
			return nil, err
		}
		keys[i].Expr = e
		exprs = append(exprs, e)
	}
	if err := validateRoots(source, exprs...); err != nil {
		return nil, err
	}
	sch := source.Schema()
	if len(bindings) > 0 {
		var err error
		sch, err = bindingSchema(bindings)
		if err != nil {
			return nil, err
		}
	}
	return &Selection{
		Source:     source,
		Bindings:   bindings,
		Predicates: predicates,
		Keys:       keys,
		sch:        sch,
	}, nil
}

func (s *Selection) Schema() *schema.Schema { return s.sch }

// Blocks is true only when the selection projects: a bare filter or
// sort is transparent for column resolution.
func (s *Selection) Blocks() bool { return len(s.Bindings) > 0 }

func (s *Selection) parents() []Relation { return []Relation{s.Source} }

func (s *Selection) walk(v Visitor) {
	Walk(v, s.Source)
	walkBindings(v, s.Bindings)
	for i := range s.Predicates {
		Walk(v, s.Predicates[i])
	}
	for i := range s.Keys {
		Walk(v, s.Keys[i].Expr)
	}
}

func (s *Selection) rewrite(r Rewriter) Node {
	cp := *s
	cp.Source = rewriteRelation(r, s.Source)
	cp.Bindings = rewriteBindings(r, s.Bindings)
	cp.Predicates = rewriteValues(r, s.Predicates)
	cp.Keys = make([]SortKey, len(s.Keys))
	for i := range s.Keys {
		cp.Keys[i] = s.Keys[i]
		cp.Keys[i].Expr = rewriteValue(r, s.Keys[i].Expr)
	}
	return &cp
}

func (s *Selection) Equals(n Node) bool {
	o, ok := n.(*Selection)
	return ok && s.Source.Equals(o.Source) &&
		equalBindings(s.Bindings, o.Bindings) &&
		equalValues(s.Predicates, o.Predicates) &&
		equalSortKeys(s.Keys, o.Keys)
}

// Aggregation groups a relation by key expressions and computes
// reduction metrics per group. Having filters groups after
// aggregation. The output schema is the keys followed by the metrics.
type Aggregation struct {
	Source  Relation
	Metrics []Binding
	By      []Binding
	Having  []Value

	sch *schema.Schema
}

// NewAggregation validates that each metric aggregates, that having
// predicates are boolean aggregates, and that key and metric names do
// not collide.
func NewAggregation(source Relation, metrics, by []Binding, having []Value) (*Aggregation, error) {
	if source == nil {
		return nil, errValidationf("aggregation", "missing source relation")
	}
	if len(metrics) == 0 {
		return nil, errValidationf("aggregation", "at least one metric is required")
	}
	var exprs []Value
	for i := range metrics {
		e, err := ArgAny(metrics[i].Expr)
		if err != nil {
			return nil, err
		}
		if !ContainsReduction(e) {
			return nil, errValidationf("aggregation", "metric %d does not aggregate", i)
		}
		metrics[i].Expr = e
		exprs = append(exprs, e)
	}
	for i := range by {
		e, err := ArgColumnOf(ArgAny)(by[i].Expr)
		if err != nil {
			return nil, err
		}
		by[i].Expr = e
		exprs = append(exprs, e)
	}
	for i := range having {
		h, err := ArgBoolean(having[i])
		if err != nil {
			return nil, err
		}
		if !ContainsReduction(h) {
			return nil, errValidationf("aggregation", "having predicate %d does not aggregate", i)
		}
		having[i] = h
		exprs = append(exprs, h)
	}
	if err := validateRoots(source, exprs...); err != nil {
		return nil, err
	}
	sch, err := bindingSchema(append(append([]Binding{}, by...), metrics...))
	if err != nil {
		return nil, err
	}
	return &Aggregation{
		Source:  source,
		Metrics: metrics,
		By:      by,
		Having:  having,
		sch:     sch,
	}, nil
}

func (a *Aggregation) Schema() *schema.Schema { return a.sch }
func (a *Aggregation) Blocks() bool           { return true }
func (a *Aggregation) parents() []Relation    { return []Relation{a.Source} }

func (a *Aggregation) walk(v Visitor) {
	Walk(v, a.Source)
	walkBindings(v, a.Metrics)
	walkBindings(v, a.By)
	for i := range a.Having {
		Walk(v, a.Having[i])
	}
}

func (a *Aggregation) rewrite(r Rewriter) Node {
	cp := *a
	cp.Source = rewriteRelation(r, a.Source)
	cp.Metrics = rewriteBindings(r, a.Metrics)
	cp.By = rewriteBindings(r, a.By)
	cp.Having = rewriteValues(r, a.Having)
	return &cp
}

func (a *Aggregation) Equals(n Node) bool {
	o, ok := n.(*Aggregation)
	return ok && a.Source.Equals(o.Source) &&
		equalBindings(a.Metrics, o.Metrics) &&
		equalBindings(a.By, o.By) &&
		equalValues(a.Having, o.Having)
}

// JoinKind is one of the join flavors.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	OuterJoin
	CrossJoin

	// LeftSemiJoin keeps left rows with at least one match; the
	// right columns do not appear in the output.
	LeftSemiJoin

	// LeftAntiJoin keeps left rows with no match.
	LeftAntiJoin

	// AnyInnerJoin matches each left row with at most one right
	// row, so matching rows never multiply the output.
	AnyInnerJoin

	// AnyLeftJoin is AnyInnerJoin keeping unmatched left rows.
	AnyLeftJoin

	// AsOfJoin matches each left row with the nearest-preceding
	// right row on an ordering column.
	AsOfJoin

	maxJoinKind
)

func (k JoinKind) String() string {
	switch k {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	case RightJoin:
		return "right"
	case OuterJoin:
		return "outer"
	case CrossJoin:
		return "cross"
	case LeftSemiJoin:
		return "semi"
	case LeftAntiJoin:
		return "anti"
	case AnyInnerJoin:
		return "any_inner"
	case AnyLeftJoin:
		return "any_left"
	case AsOfJoin:
		return "asof"
	default:
		return "invalid"
	}
}

func (k JoinKind) leftOnly() bool {
	return k == LeftSemiJoin || k == LeftAntiJoin
}

// JoinField maps one output column of a join back to its input.
type JoinField struct {
	Name   string // output column name
	Source string // column name in the input relation
	Right  bool   // true when sourced from the right input
}

// Join combines two relations. Key predicates (equality between
// same-named columns of the two inputs) collapse to a single output
// column under the left name; other same-named columns are
// disambiguated with suffixes, "_x" and "_y" by default.
type Join struct {
	Kind        JoinKind
	Left, Right Relation
	Predicates  []Value

	// On orders an as-of join; Tolerance optionally bounds the
	// match distance. Both are nil for other kinds.
	On        *Comparison
	Tolerance Value

	// Fields is the output column provenance; Keys are the
	// collapsed key column names.
	Fields []JoinField
	Keys   []string

	lsuffix, rsuffix string
	sch              *schema.Schema
}

// NewJoin joins left and right. Suffixes override the default
// "_x"/"_y" pair used to rename colliding non-key columns; pass two
// empty strings to keep the defaults.
func NewJoin(kind JoinKind, left, right Relation, predicates []Value, lsuffix, rsuffix string) (*Join, error) {
	if kind < 0 || kind >= maxJoinKind || kind == AsOfJoin {
		return nil, errValidationf("join", "invalid join kind")
	}
	return newJoin(kind, left, right, predicates, nil, nil, lsuffix, rsuffix)
}

// NewAsOfJoin joins each left row with the nearest right row under
// the ordering comparison on. Predicates are the exact-match keys and
// tolerance, when non-nil, is the maximum interval between matches.
func NewAsOfJoin(left, right Relation, on *Comparison, predicates []Value, tolerance Value, lsuffix, rsuffix string) (*Join, error) {
	if on == nil {
		return nil, errValidationf("join", "as-of join requires an ordering comparison")
	}
	if on.Op == Equals || on.Op == NotEquals {
		return nil, errValidationf("join", "as-of ordering must be an inequality")
	}
	if tolerance != nil {
		var err error
		tolerance, err = ArgInterval(tolerance)
		if err != nil {
			return nil, err
		}
	}
	return newJoin(AsOfJoin, left, right, predicates, on, tolerance, lsuffix, rsuffix)
}

func newJoin(kind JoinKind, left, right Relation, predicates []Value, on *Comparison, tolerance Value, lsuffix, rsuffix string) (*Join, error) {
	if left == nil || right == nil {
		return nil, errValidationf("join", "missing input relation")
	}
	if kind == CrossJoin && len(predicates) > 0 {
		return nil, errValidationf("join", "cross join takes no predicates")
	}
	if kind != CrossJoin && len(predicates) == 0 && on == nil {
		return nil, errValidationf("join", "join requires at least one predicate")
	}
	if lsuffix == "" && rsuffix == "" {
		lsuffix, rsuffix = "_x", "_y"
	}
	if lsuffix == rsuffix {
		return nil, errValidationf("join", "suffixes must differ")
	}
	for i := range predicates {
		p, err := ArgBoolean(predicates[i])
		if err != nil {
			return nil, err
		}
		predicates[i] = p
	}
	j := &Join{
		Kind:       kind,
		Left:       left,
		Right:      right,
		Predicates: predicates,
		On:         on,
		Tolerance:  tolerance,
		lsuffix:    lsuffix,
		rsuffix:    rsuffix,
	}
	if err := j.buildSchema(); err != nil {
		return nil, err
	}
	return j, nil
}

// buildSchema computes the output columns: key detection, collision
// renaming and nullability widening for outer kinds.
func (j *Join) buildSchema() error {
	ls, rs := j.Left.Schema(), j.Right.Schema()

	if j.Kind.leftOnly() {
		j.sch = ls
		j.Fields = make([]JoinField, ls.Len())
		for i, name := range ls.Names() {
			j.Fields[i] = JoinField{Name: name, Source: name}
		}
		return nil
	}

	keys := map[string]bool{}
	for _, p := range j.Predicates {
		if l, r, ok := keyColumns(p, j.Left, j.Right); ok && l == r {
			keys[l] = true
		}
	}
	j.Keys = make([]string, 0, len(keys))
	for _, name := range ls.Names() {
		if keys[name] {
			j.Keys = append(j.Keys, name)
		}
	}

	collides := map[string]bool{}
	for _, name := range rs.Names() {
		if _, ok := ls.Field(name); ok && !keys[name] {
			collides[name] = true
		}
	}

	nullLeft := j.Kind == RightJoin || j.Kind == OuterJoin
	nullRight := j.Kind == LeftJoin || j.Kind == OuterJoin ||
		j.Kind == AnyLeftJoin || j.Kind == AsOfJoin

	var pairs []schema.Pair
	for i, name := range ls.Names() {
		out := name
		if collides[name] {
			out += j.lsuffix
		}
		d := ls.Types()[i]
		if nullLeft {
			d = d.AsNullable()
		}
		j.Fields = append(j.Fields, JoinField{Name: out, Source: name})
		pairs = append(pairs, schema.Pair{Name: out, Type: d})
	}
	for i, name := range rs.Names() {
		if keys[name] {
			continue
		}
		out := name
		if collides[name] {
			out += j.rsuffix
		}
		d := rs.Types()[i]
		if nullRight {
			d = d.AsNullable()
		}
		j.Fields = append(j.Fields, JoinField{Name: out, Source: name, Right: true})
		pairs = append(pairs, schema.Pair{Name: out, Type: d})
	}

	sch, err := schema.New(pairs)
	if err != nil {
		// renaming did not resolve the collision, e.g. a column
		// named lgID next to one named lgID_x
		return &SchemaError{Msg: "join columns collide after renaming: " + err.Error()}
	}
	j.sch = sch
	return nil
}

// keyColumns recognizes an equality between a plain left column and a
// plain right column.
func keyColumns(p Value, left, right Relation) (lname, rname string, ok bool) {
	cmp, isCmp := p.(*Comparison)
	if !isCmp || cmp.Op != Equals {
		return "", "", false
	}
	lc, lok := cmp.Left.(*Column)
	rc, rok := cmp.Right.(*Column)
	if !lok || !rok {
		return "", "", false
	}
	if rootedIn(lc.Rel, left) && rootedIn(rc.Rel, right) {
		return lc.Name, rc.Name, true
	}
	if rootedIn(lc.Rel, right) && rootedIn(rc.Rel, left) {
		return rc.Name, lc.Name, true
	}
	return "", "", false
}

// Suffixes returns the collision-renaming suffix pair.
func (j *Join) Suffixes() (string, string) { return j.lsuffix, j.rsuffix }

func (j *Join) Schema() *schema.Schema { return j.sch }
func (j *Join) Blocks() bool           { return true }
func (j *Join) parents() []Relation    { return []Relation{j.Left, j.Right} }

func (j *Join) walk(v Visitor) {
	Walk(v, j.Left)
	Walk(v, j.Right)
	for i := range j.Predicates {
		Walk(v, j.Predicates[i])
	}
	if j.On != nil {
		Walk(v, j.On)
	}
	if j.Tolerance != nil {
		Walk(v, j.Tolerance)
	}
}

func (j *Join) rewrite(r Rewriter) Node {
	cp := *j
	cp.Left = rewriteRelation(r, j.Left)
	cp.Right = rewriteRelation(r, j.Right)
	cp.Predicates = rewriteValues(r, j.Predicates)
	if j.On != nil {
		cp.On = Rewrite(r, j.On).(*Comparison)
	}
	if j.Tolerance != nil {
		cp.Tolerance = rewriteValue(r, j.Tolerance)
	}
	return &cp
}

func (j *Join) Equals(n Node) bool {
	o, ok := n.(*Join)
	if !ok {
		return false
	}
	// On is a typed pointer: compare for nil before it escapes into
	// the Node interface.
	if (j.On == nil) != (o.On == nil) {
		return false
	}
	if j.On != nil && !j.On.Equals(o.On) {
		return false
	}
	return j.Kind == o.Kind &&
		j.Left.Equals(o.Left) && j.Right.Equals(o.Right) &&
		equalValues(j.Predicates, o.Predicates) &&
		Equal(j.Tolerance, o.Tolerance) &&
		j.lsuffix == o.lsuffix && j.rsuffix == o.rsuffix
}

// SetOpKind is one of the set operations.
type SetOpKind int

const (
	Union SetOpKind = iota
	Intersect
	Difference
	maxSetOpKind
)

func (k SetOpKind) String() string {
	switch k {
	case Union:
		return "union"
	case Intersect:
		return "intersect"
	case Difference:
		return "difference"
	default:
		return "invalid"
	}
}

// SetOp combines two union-compatible relations. Distinct controls
// duplicate elimination for Union; Intersect and Difference are
// always distinct. The output schema is the left schema.
type SetOp struct {
	Kind        SetOpKind
	Left, Right Relation
	Distinct    bool
}

// NewSetOp validates that the input schemas carry the same columns,
// order-insensitively.
func NewSetOp(kind SetOpKind, left, right Relation, distinct bool) (*SetOp, error) {
	if kind < 0 || kind >= maxSetOpKind {
		return nil, errValidationf("setop", "invalid set operation")
	}
	if left == nil || right == nil {
		return nil, errValidationf("setop", "missing input relation")
	}
	if !left.Schema().EqualsUnordered(right.Schema()) {
		return nil, &SchemaError{
			Msg:       "set operation inputs are not union-compatible",
			Available: append(append([]string{}, left.Schema().Names()...), right.Schema().Names()...),
		}
	}
	if kind != Union {
		distinct = true
	}
	return &SetOp{Kind: kind, Left: left, Right: right, Distinct: distinct}, nil
}

func (s *SetOp) Schema() *schema.Schema { return s.Left.Schema() }
func (s *SetOp) Blocks() bool           { return true }
func (s *SetOp) parents() []Relation    { return []Relation{s.Left, s.Right} }

func (s *SetOp) walk(v Visitor) {
	Walk(v, s.Left)
	Walk(v, s.Right)
}

func (s *SetOp) rewrite(r Rewriter) Node {
	cp := *s
	cp.Left = rewriteRelation(r, s.Left)
	cp.Right = rewriteRelation(r, s.Right)
	return &cp
}

func (s *SetOp) Equals(n Node) bool {
	o, ok := n.(*SetOp)
	return ok && s.Kind == o.Kind && s.Distinct == o.Distinct &&
		s.Left.Equals(o.Left) && s.Right.Equals(o.Right)
}

// Limit keeps at most Count rows, skipping Offset rows first.
type Limit struct {
	Source Relation
	Count  int64
	Offset int64
}

// NewLimit validates that count and offset are non-negative.
func NewLimit(source Relation, count, offset int64) (*Limit, error) {
	if source == nil {
		return nil, errValidationf("limit", "missing source relation")
	}
	if count < 0 {
		return nil, errValidationf("limit", "negative count %d", count)
	}
	if offset < 0 {
		return nil, errValidationf("limit", "negative offset %d", offset)
	}
	return &Limit{Source: source, Count: count, Offset: offset}, nil
}

func (l *Limit) Schema() *schema.Schema { return l.Source.Schema() }
func (l *Limit) Blocks() bool           { return false }
func (l *Limit) parents() []Relation    { return []Relation{l.Source} }
func (l *Limit) walk(v Visitor)         { Walk(v, l.Source) }

func (l *Limit) rewrite(r Rewriter) Node {
	cp := *l
	cp.Source = rewriteRelation(r, l.Source)
	return &cp
}

func (l *Limit) Equals(n Node) bool {
	o, ok := n.(*Limit)
	return ok && l.Count == o.Count && l.Offset == o.Offset && l.Source.Equals(o.Source)
}

// Distinct eliminates duplicate rows.
type Distinct struct {
	Source Relation
}

// NewDistinct constructs a duplicate-eliminating relation.
func NewDistinct(source Relation) (*Distinct, error) {
	if source == nil {
		return nil, errValidationf("distinct", "missing source relation")
	}
	return &Distinct{Source: source}, nil
}

func (d *Distinct) Schema() *schema.Schema { return d.Source.Schema() }
func (d *Distinct) Blocks() bool           { return false }
func (d *Distinct) parents() []Relation    { return []Relation{d.Source} }
func (d *Distinct) walk(v Visitor)         { Walk(v, d.Source) }

func (d *Distinct) rewrite(r Rewriter) Node {
	cp := *d
	cp.Source = rewriteRelation(r, d.Source)
	return &cp
}

func (d *Distinct) Equals(n Node) bool {
	o, ok := n.(*Distinct)
	return ok && d.Source.Equals(o.Source)
}
