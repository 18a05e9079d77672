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

package sqlite

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/GrapeBaBa/ibis/backend"
	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/types"
)

// Compile lowers an operation graph to a SQLite SELECT statement.
// Literals become positional arguments; unbound scalar parameters
// stay in the argument list as sentinels for Execute to bind.
func Compile(rel ops.Relation) (*backend.Compiled, error) {
	c := &compiler{}
	b, err := c.build(rel)
	if err != nil {
		return nil, err
	}
	text, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return &backend.Compiled{
		ID:     uuid.New(),
		Text:   text,
		Args:   args,
		Schema: rel.Schema(),
	}, nil
}

func notDefined(op string) error {
	return &backend.OperationNotDefinedError{Backend: "sqlite", Op: op}
}

type compiler struct {
	n int
}

func (c *compiler) nextAlias() string {
	a := fmt.Sprintf("t%d", c.n)
	c.n++
	return a
}

// scope maps in-scope relations to the FROM-item alias their columns
// resolve against.
type scope struct {
	rels    []ops.Relation
	aliases []string
}

func (s *scope) add(rel ops.Relation, alias string) {
	for _, r := range ops.RootTables(rel) {
		s.rels = append(s.rels, r)
		s.aliases = append(s.aliases, alias)
	}
}

func (s *scope) lookup(rel ops.Relation) (string, bool) {
	for i, r := range s.rels {
		if rel.Equals(r) {
			return s.aliases[i], true
		}
	}
	return "", false
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableRef(rel ops.Relation) (string, bool) {
	switch t := rel.(type) {
	case *ops.UnboundTable:
		return quote(t.Name), true
	case *ops.DatabaseTable:
		if t.Namespace != "" {
			return quote(t.Namespace) + "." + quote(t.Name), true
		}
		return quote(t.Name), true
	}
	return "", false
}

// source prepares a column-less SELECT with rel in the FROM clause
// under a fresh alias. Base tables are referenced by name; anything
// else nests as a subquery.
func (c *compiler) source(rel ops.Relation) (sq.SelectBuilder, string, error) {
	alias := c.nextAlias()
	if ref, ok := tableRef(rel); ok {
		return sq.Select().From(ref + " AS " + quote(alias)), alias, nil
	}
	child, err := c.build(rel)
	if err != nil {
		return sq.SelectBuilder{}, "", err
	}
	return sq.Select().FromSelect(child, quote(alias)), alias, nil
}

func (c *compiler) build(rel ops.Relation) (sq.SelectBuilder, error) {
	switch n := rel.(type) {
	case *ops.UnboundTable, *ops.DatabaseTable:
		ref, _ := tableRef(n)
		return sq.Select("*").From(ref), nil
	case *ops.SelfReference:
		return c.build(n.Parent)
	case *ops.Selection:
		return c.buildSelection(n)
	case *ops.Aggregation:
		return c.buildAggregation(n)
	case *ops.Join:
		return c.buildJoin(n)
	case *ops.SetOp:
		return c.buildSetOp(n)
	case *ops.Limit:
		child, _, err := c.source(n.Source)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		b := child.Columns("*").Limit(uint64(n.Count))
		if n.Offset > 0 {
			b = b.Offset(uint64(n.Offset))
		}
		return b, nil
	case *ops.Distinct:
		child, _, err := c.source(n.Source)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		return child.Columns("*").Distinct(), nil
	}
	return sq.SelectBuilder{}, fmt.Errorf("sqlite: cannot compile relation %T", rel)
}

func (c *compiler) buildSelection(n *ops.Selection) (sq.SelectBuilder, error) {
	b, alias, err := c.source(n.Source)
	if err != nil {
		return b, err
	}
	sc := &scope{}
	sc.add(n.Source, alias)

	if len(n.Bindings) == 0 {
		b = b.Columns("*")
	} else {
		for _, bind := range n.Bindings {
			sql, args, err := c.expr(bind.Expr, sc)
			if err != nil {
				return b, err
			}
			b = b.Column(sq.Expr(sql+" AS "+quote(bind.Result()), args...))
		}
	}
	for _, p := range n.Predicates {
		sql, args, err := c.expr(p, sc)
		if err != nil {
			return b, err
		}
		b = b.Where(sq.Expr(sql, args...))
	}
	for _, k := range n.Keys {
		sql, args, err := c.expr(k.Expr, sc)
		if err != nil {
			return b, err
		}
		if k.Descending {
			sql += " DESC"
		}
		b = b.OrderByClause(sq.Expr(sql, args...))
	}
	return b, nil
}

func (c *compiler) buildAggregation(n *ops.Aggregation) (sq.SelectBuilder, error) {
	b, alias, err := c.source(n.Source)
	if err != nil {
		return b, err
	}
	sc := &scope{}
	sc.add(n.Source, alias)

	for _, bind := range n.By {
		sql, args, err := c.expr(bind.Expr, sc)
		if err != nil {
			return b, err
		}
		b = b.Column(sq.Expr(sql+" AS "+quote(bind.Result()), args...))
		group, err := inlineArgs(sql, args)
		if err != nil {
			return b, err
		}
		b = b.GroupBy(group)
	}
	for _, bind := range n.Metrics {
		sql, args, err := c.expr(bind.Expr, sc)
		if err != nil {
			return b, err
		}
		b = b.Column(sq.Expr(sql+" AS "+quote(bind.Result()), args...))
	}
	for _, h := range n.Having {
		sql, args, err := c.expr(h, sc)
		if err != nil {
			return b, err
		}
		b = b.Having(sq.Expr(sql, args...))
	}
	return b, nil
}

func (c *compiler) buildJoin(n *ops.Join) (sq.SelectBuilder, error) {
	if n.Kind == ops.AsOfJoin {
		return sq.SelectBuilder{}, notDefined("as-of join")
	}

	b, lalias, err := c.source(n.Left)
	if err != nil {
		return b, err
	}
	ralias := c.nextAlias()
	sc := &scope{}
	sc.add(n.Left, lalias)
	sc.add(n.Right, ralias)

	onSQL, onArgs, err := c.conjunction(n.Predicates, sc)
	if err != nil {
		return b, err
	}

	rightSQL, rightArgs, err := c.fromItem(n.Right, ralias)
	if err != nil {
		return b, err
	}

	if n.Kind == ops.LeftSemiJoin || n.Kind == ops.LeftAntiJoin {
		// semi/anti joins keep only left columns; express the
		// match as EXISTS so no right rows multiply the output
		for _, f := range n.Fields {
			b = b.Column(quote(lalias) + "." + quote(f.Source) + " AS " + quote(f.Name))
		}
		exists := "EXISTS (SELECT 1 FROM " + rightSQL + " WHERE " + onSQL + ")"
		if n.Kind == ops.LeftAntiJoin {
			exists = "NOT " + exists
		}
		return b.Where(sq.Expr(exists, append(rightArgs, onArgs...)...)), nil
	}

	for _, f := range n.Fields {
		side := lalias
		if f.Right {
			side = ralias
		}
		b = b.Column(quote(side) + "." + quote(f.Source) + " AS " + quote(f.Name))
	}

	var kw string
	switch n.Kind {
	case ops.InnerJoin:
		kw = "INNER JOIN"
	case ops.LeftJoin:
		kw = "LEFT JOIN"
	case ops.RightJoin:
		kw = "RIGHT JOIN"
	case ops.OuterJoin:
		kw = "FULL OUTER JOIN"
	case ops.CrossJoin:
		kw = "CROSS JOIN"
	default:
		return b, notDefined(n.Kind.String() + " join")
	}
	clause := kw + " " + rightSQL
	args := rightArgs
	if n.Kind != ops.CrossJoin {
		clause += " ON " + onSQL
		args = append(args, onArgs...)
	}
	return b.JoinClause(sq.Expr(clause, args...)), nil
}

// fromItem renders rel as a FROM/JOIN item under the given alias.
func (c *compiler) fromItem(rel ops.Relation, alias string) (string, []any, error) {
	if ref, ok := tableRef(rel); ok {
		return ref + " AS " + quote(alias), nil, nil
	}
	child, err := c.build(rel)
	if err != nil {
		return "", nil, err
	}
	sql, args, err := child.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "(" + sql + ") AS " + quote(alias), args, nil
}

func (c *compiler) buildSetOp(n *ops.SetOp) (sq.SelectBuilder, error) {
	left, err := c.build(n.Left)
	if err != nil {
		return left, err
	}
	// align the right side to the left schema's column order
	rsub, ralias, err := c.source(n.Right)
	if err != nil {
		return left, err
	}
	for _, name := range n.Left.Schema().Names() {
		rsub = rsub.Column(quote(ralias) + "." + quote(name))
	}
	rightSQL, rightArgs, err := rsub.ToSql()
	if err != nil {
		return left, err
	}
	var kw string
	switch n.Kind {
	case ops.Union:
		kw = "UNION"
		if !n.Distinct {
			kw = "UNION ALL"
		}
	case ops.Intersect:
		kw = "INTERSECT"
	case ops.Difference:
		kw = "EXCEPT"
	}
	return left.Suffix(kw+" "+rightSQL, rightArgs...), nil
}

func (c *compiler) conjunction(ps []ops.Value, sc *scope) (string, []any, error) {
	if len(ps) == 0 {
		return "1", nil, nil
	}
	var parts []string
	var args []any
	for _, p := range ps {
		sql, a, err := c.expr(p, sc)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return strings.Join(parts, " AND "), args, nil
}

// expr renders a value node to a SQL fragment with positional args.
func (c *compiler) expr(v ops.Value, sc *scope) (string, []any, error) {
	switch n := v.(type) {
	case *ops.Literal:
		return literalSQL(n)
	case *ops.Column:
		alias, ok := sc.lookup(n.Rel)
		if !ok {
			return "", nil, fmt.Errorf("sqlite: column %q references a relation outside the current scope", n.Name)
		}
		return quote(alias) + "." + quote(n.Name), nil, nil
	case *ops.ScalarParameter:
		return "?", []any{n}, nil
	case *ops.Cast:
		arg, args, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		return "CAST(" + arg + " AS " + affinity(n.To) + ")", args, nil
	case *ops.Comparison:
		return c.binary(compareSQL(n.Op), n.Left, n.Right, sc)
	case *ops.Logical:
		if n.Op == ops.Xor {
			// no XOR operator; booleans compare cleanly
			return c.binary("<>", n.Left, n.Right, sc)
		}
		return c.binary(n.Op.String(), n.Left, n.Right, sc)
	case *ops.Not:
		arg, args, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + arg + ")", args, nil
	case *ops.IsNull:
		arg, args, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		if n.Negate {
			return "(" + arg + ") IS NOT NULL", args, nil
		}
		return "(" + arg + ") IS NULL", args, nil
	case *ops.Between:
		arg, aargs, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		lo, largs, err := c.expr(n.Lower, sc)
		if err != nil {
			return "", nil, err
		}
		hi, hargs, err := c.expr(n.Upper, sc)
		if err != nil {
			return "", nil, err
		}
		args := append(append(aargs, largs...), hargs...)
		return "(" + arg + " BETWEEN " + lo + " AND " + hi + ")", args, nil
	case *ops.InValues:
		arg, args, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		var opts []string
		for _, o := range n.Options {
			sql, a, err := c.expr(o, sc)
			if err != nil {
				return "", nil, err
			}
			opts = append(opts, sql)
			args = append(args, a...)
		}
		return arg + " IN (" + strings.Join(opts, ", ") + ")", args, nil
	case *ops.Arithmetic:
		return c.arithmetic(n, sc)
	case *ops.Unary:
		arg, args, err := c.expr(n.Arg, sc)
		if err != nil {
			return "", nil, err
		}
		if n.Op == ops.Abs {
			return "ABS(" + arg + ")", args, nil
		}
		return "-(" + arg + ")", args, nil
	case *ops.Builtin:
		return c.builtin(n, sc)
	case *ops.SimpleCase:
		return c.simpleCase(n, sc)
	case *ops.SearchedCase:
		return c.searchedCase(n, sc)
	case *ops.Reduction:
		return c.reduction(n, sc)
	case *ops.CountStar:
		return "COUNT(*)", nil, nil
	case *ops.WindowFunction:
		return c.window(n, sc)
	case *ops.Analytic:
		return c.analytic(n, sc)
	}
	return "", nil, fmt.Errorf("sqlite: cannot compile expression %T", v)
}

func (c *compiler) binary(op string, left, right ops.Value, sc *scope) (string, []any, error) {
	l, largs, err := c.expr(left, sc)
	if err != nil {
		return "", nil, err
	}
	r, rargs, err := c.expr(right, sc)
	if err != nil {
		return "", nil, err
	}
	return "(" + l + " " + op + " " + r + ")", append(largs, rargs...), nil
}

func compareSQL(op ops.CompareOp) string {
	switch op {
	case ops.Equals:
		return "="
	case ops.NotEquals:
		return "<>"
	default:
		return op.String()
	}
}

func (c *compiler) arithmetic(n *ops.Arithmetic, sc *scope) (string, []any, error) {
	l, r := n.Left.DataType(), n.Right.DataType()
	switch {
	case l.IsNumeric() && r.IsNumeric():
		if n.Op == ops.Power {
			ls, largs, err := c.expr(n.Left, sc)
			if err != nil {
				return "", nil, err
			}
			rs, rargs, err := c.expr(n.Right, sc)
			if err != nil {
				return "", nil, err
			}
			return "POW(" + ls + ", " + rs + ")", append(largs, rargs...), nil
		}
		if n.Op == ops.Divide {
			// force real division; SQLite truncates integer '/'
			ls, largs, err := c.expr(n.Left, sc)
			if err != nil {
				return "", nil, err
			}
			rs, rargs, err := c.expr(n.Right, sc)
			if err != nil {
				return "", nil, err
			}
			return "(CAST(" + ls + " AS REAL) / " + rs + ")", append(largs, rargs...), nil
		}
		return c.binary(n.Op.String(), n.Left, n.Right, sc)
	case l.IsInterval() && r.IsInterval(),
		l.IsInterval() && r.IsInteger(),
		l.IsInteger() && r.IsInterval():
		// intervals are plain unit counts
		return c.binary(n.Op.String(), n.Left, n.Right, sc)
	case (l.Kind() == types.Timestamp || l.Kind() == types.Date) && r.IsInterval():
		return c.temporalShift(n.Left, n.Right, n.Op == ops.Subtract, l.Kind() == types.Date, sc)
	case l.IsInterval() && (r.Kind() == types.Timestamp || r.Kind() == types.Date):
		return c.temporalShift(n.Right, n.Left, false, r.Kind() == types.Date, sc)
	case n.Op == ops.Subtract && l.Kind() == types.Timestamp && r.Kind() == types.Timestamp:
		ls, largs, err := c.expr(n.Left, sc)
		if err != nil {
			return "", nil, err
		}
		rs, rargs, err := c.expr(n.Right, sc)
		if err != nil {
			return "", nil, err
		}
		sql := "CAST(ROUND((JULIANDAY(" + ls + ") - JULIANDAY(" + rs + ")) * 86400) AS INTEGER)"
		return sql, append(largs, rargs...), nil
	case n.Op == ops.Subtract && l.Kind() == types.Date && r.Kind() == types.Date:
		ls, largs, err := c.expr(n.Left, sc)
		if err != nil {
			return "", nil, err
		}
		rs, rargs, err := c.expr(n.Right, sc)
		if err != nil {
			return "", nil, err
		}
		sql := "CAST(JULIANDAY(" + ls + ") - JULIANDAY(" + rs + ") AS INTEGER)"
		return sql, append(largs, rargs...), nil
	}
	return "", nil, notDefined("arithmetic " + n.Op.String())
}

// temporalShift renders timestamp/date ± interval with a datetime
// modifier. Only literal intervals can become modifiers.
func (c *compiler) temporalShift(t, iv ops.Value, negate, dateOnly bool, sc *scope) (string, []any, error) {
	lit, ok := iv.(*ops.Literal)
	if ok && lit.IsNull() {
		ok = false
	}
	if !ok {
		return "", nil, notDefined("temporal shift by a non-literal interval")
	}
	count, _ := lit.Value().(int64)
	if negate {
		count = -count
	}
	mod, err := intervalModifier(count, lit.DataType().IntervalUnit())
	if err != nil {
		return "", nil, err
	}
	ts, args, err := c.expr(t, sc)
	if err != nil {
		return "", nil, err
	}
	fn := "DATETIME"
	if dateOnly {
		fn = "DATE"
	}
	return fn + "(" + ts + ", ?)", append(args, mod), nil
}

func intervalModifier(count int64, unit types.Unit) (string, error) {
	var name string
	switch unit {
	case types.UnitYear:
		name = "years"
	case types.UnitMonth:
		name = "months"
	case types.UnitDay:
		name = "days"
	case types.UnitHour:
		name = "hours"
	case types.UnitMinute:
		name = "minutes"
	case types.UnitSecond:
		name = "seconds"
	default:
		return "", notDefined("temporal shift by " + string(unit) + " intervals")
	}
	return fmt.Sprintf("%+d %s", count, name), nil
}

func (c *compiler) args(vs []ops.Value, sc *scope) ([]string, []any, error) {
	sqls := make([]string, len(vs))
	var args []any
	for i, v := range vs {
		s, a, err := c.expr(v, sc)
		if err != nil {
			return nil, nil, err
		}
		sqls[i] = s
		args = append(args, a...)
	}
	return sqls, args, nil
}

func (c *compiler) builtin(n *ops.Builtin, sc *scope) (string, []any, error) {
	if n.Func.IsGeospatial() {
		return "", nil, notDefined(n.Func.String())
	}
	a, args, err := c.args(n.Args, sc)
	if err != nil {
		return "", nil, err
	}
	call := func(name string) (string, []any, error) {
		return name + "(" + strings.Join(a, ", ") + ")", args, nil
	}
	switch n.Func {
	case ops.Lower:
		return call("LOWER")
	case ops.Upper:
		return call("UPPER")
	case ops.Length:
		return call("LENGTH")
	case ops.Trim:
		return call("TRIM")
	case ops.Reverse:
		return "", nil, notDefined("reverse")
	case ops.Substring:
		// inputs are zero-based; SUBSTR counts from one
		return "SUBSTR(" + a[0] + ", " + a[1] + " + 1, " + a[2] + ")", args, nil
	case ops.Concat:
		return "(" + strings.Join(a, " || ") + ")", args, nil
	case ops.Contains:
		return "(INSTR(" + a[0] + ", " + a[1] + ") > 0)", args, nil
	case ops.StartsWith, ops.EndsWith:
		// the needle renders twice, so its args repeat
		s0, a0, err := c.expr(n.Args[0], sc)
		if err != nil {
			return "", nil, err
		}
		s1, a1, err := c.expr(n.Args[1], sc)
		if err != nil {
			return "", nil, err
		}
		dup := append(append(a0, a1...), a1...)
		if n.Func == ops.StartsWith {
			return "(SUBSTR(" + s0 + ", 1, LENGTH(" + s1 + ")) = " + s1 + ")", dup, nil
		}
		return "(SUBSTR(" + s0 + ", -LENGTH(" + s1 + ")) = " + s1 + ")", dup, nil
	case ops.Like:
		return "(" + a[0] + " LIKE " + a[1] + ")", args, nil
	case ops.Sqrt:
		return call("SQRT")
	case ops.Exp:
		return call("EXP")
	case ops.Ln:
		return call("LN")
	case ops.Log:
		// ops order is (x, base); SQLite's LOG(base, x)
		swapped, err := c.swappedPair("LOG", n.Args, sc)
		if err != nil {
			return "", nil, err
		}
		return swapped.sql, swapped.args, nil
	case ops.Log2:
		return call("LOG2")
	case ops.Log10:
		return call("LOG10")
	case ops.Ceil:
		return call("CEIL")
	case ops.Floor:
		return call("FLOOR")
	case ops.Round:
		return call("ROUND")
	case ops.Sign:
		return call("SIGN")
	case ops.ExtractYear:
		return extract("%Y", a[0]), args, nil
	case ops.ExtractMonth:
		return extract("%m", a[0]), args, nil
	case ops.ExtractDay:
		return extract("%d", a[0]), args, nil
	case ops.ExtractHour:
		return extract("%H", a[0]), args, nil
	case ops.ExtractMinute:
		return extract("%M", a[0]), args, nil
	case ops.ExtractSecond:
		return extract("%S", a[0]), args, nil
	case ops.ExtractEpochSeconds:
		return extract("%s", a[0]), args, nil
	case ops.Strftime:
		swapped, err := c.swappedPair("STRFTIME", n.Args, sc)
		if err != nil {
			return "", nil, err
		}
		return swapped.sql, swapped.args, nil
	case ops.TimestampNow:
		return "DATETIME('now')", nil, nil
	case ops.Coalesce:
		return call("COALESCE")
	case ops.Greatest:
		return call("MAX")
	case ops.Least:
		return call("MIN")
	case ops.NullIf:
		return call("NULLIF")
	case ops.IfElse:
		return "CASE WHEN " + a[0] + " THEN " + a[1] + " ELSE " + a[2] + " END", args, nil
	}
	return "", nil, notDefined(n.Func.String())
}

type fragment struct {
	sql  string
	args []any
}

// swappedPair renders a two-argument call with the arguments in
// reversed order, keeping the positional args aligned.
func (c *compiler) swappedPair(fn string, vs []ops.Value, sc *scope) (fragment, error) {
	s0, a0, err := c.expr(vs[0], sc)
	if err != nil {
		return fragment{}, err
	}
	s1, a1, err := c.expr(vs[1], sc)
	if err != nil {
		return fragment{}, err
	}
	return fragment{
		sql:  fn + "(" + s1 + ", " + s0 + ")",
		args: append(a1, a0...),
	}, nil
}

func extract(part, arg string) string {
	return "CAST(STRFTIME('" + part + "', " + arg + ") AS INTEGER)"
}

func (c *compiler) simpleCase(n *ops.SimpleCase, sc *scope) (string, []any, error) {
	base, args, err := c.expr(n.Base, sc)
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("CASE " + base)
	for i := range n.Cases {
		cs, cargs, err := c.expr(n.Cases[i], sc)
		if err != nil {
			return "", nil, err
		}
		rs, rargs, err := c.expr(n.Results[i], sc)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHEN " + cs + " THEN " + rs)
		args = append(append(args, cargs...), rargs...)
	}
	if n.Default != nil {
		ds, dargs, err := c.expr(n.Default, sc)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" ELSE " + ds)
		args = append(args, dargs...)
	}
	sb.WriteString(" END")
	return sb.String(), args, nil
}

func (c *compiler) searchedCase(n *ops.SearchedCase, sc *scope) (string, []any, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString("CASE")
	for i := range n.Cases {
		cs, cargs, err := c.expr(n.Cases[i], sc)
		if err != nil {
			return "", nil, err
		}
		rs, rargs, err := c.expr(n.Results[i], sc)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHEN " + cs + " THEN " + rs)
		args = append(append(args, cargs...), rargs...)
	}
	if n.Default != nil {
		ds, dargs, err := c.expr(n.Default, sc)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" ELSE " + ds)
		args = append(args, dargs...)
	}
	sb.WriteString(" END")
	return sb.String(), args, nil
}

func (c *compiler) reduction(n *ops.Reduction, sc *scope) (string, []any, error) {
	arg, args, err := c.expr(n.Arg, sc)
	if err != nil {
		return "", nil, err
	}
	var sql string
	switch n.Op {
	case ops.Count:
		sql = "COUNT(" + arg + ")"
	case ops.CountDistinct:
		sql = "COUNT(DISTINCT " + arg + ")"
	case ops.Sum:
		sql = "SUM(" + arg + ")"
	case ops.Mean:
		sql = "AVG(" + arg + ")"
	case ops.Min:
		sql = "MIN(" + arg + ")"
	case ops.Max:
		sql = "MAX(" + arg + ")"
	case ops.Any:
		sql = "MAX(" + arg + ")"
	case ops.All:
		sql = "MIN(" + arg + ")"
	case ops.GroupConcat:
		sql = "GROUP_CONCAT(" + arg + ")"
	default:
		return "", nil, notDefined(n.Op.String())
	}
	if n.Where != nil {
		ws, wargs, err := c.expr(n.Where, sc)
		if err != nil {
			return "", nil, err
		}
		sql += " FILTER (WHERE " + ws + ")"
		args = append(args, wargs...)
	}
	return sql, args, nil
}

func (c *compiler) analytic(n *ops.Analytic, sc *scope) (string, []any, error) {
	switch n.Op {
	case ops.RowNumber:
		return "ROW_NUMBER()", nil, nil
	case ops.Rank:
		return "RANK()", nil, nil
	case ops.DenseRank:
		return "DENSE_RANK()", nil, nil
	case ops.NTile:
		off, args, err := c.expr(n.Offset, sc)
		if err != nil {
			return "", nil, err
		}
		return "NTILE(" + off + ")", args, nil
	}
	arg, args, err := c.expr(n.Arg, sc)
	if err != nil {
		return "", nil, err
	}
	switch n.Op {
	case ops.FirstValue:
		return "FIRST_VALUE(" + arg + ")", args, nil
	case ops.LastValue:
		return "LAST_VALUE(" + arg + ")", args, nil
	case ops.Lag, ops.Lead:
		fn := "LAG"
		if n.Op == ops.Lead {
			fn = "LEAD"
		}
		if n.Offset == nil {
			return fn + "(" + arg + ")", args, nil
		}
		off, oargs, err := c.expr(n.Offset, sc)
		if err != nil {
			return "", nil, err
		}
		return fn + "(" + arg + ", " + off + ")", append(args, oargs...), nil
	}
	return "", nil, notDefined(n.Op.String())
}

func (c *compiler) window(n *ops.WindowFunction, sc *scope) (string, []any, error) {
	fn, args, err := c.expr(n.Func, sc)
	if err != nil {
		return "", nil, err
	}
	var parts []string
	if len(n.Spec.PartitionBy) > 0 {
		ps, pargs, err := c.args(n.Spec.PartitionBy, sc)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "PARTITION BY "+strings.Join(ps, ", "))
		args = append(args, pargs...)
	}
	if len(n.Spec.OrderBy) > 0 {
		var keys []string
		for _, k := range n.Spec.OrderBy {
			ks, kargs, err := c.expr(k.Expr, sc)
			if err != nil {
				return "", nil, err
			}
			if k.Descending {
				ks += " DESC"
			}
			keys = append(keys, ks)
			args = append(args, kargs...)
		}
		parts = append(parts, "ORDER BY "+strings.Join(keys, ", "))
	}
	if f := n.Spec.Frame; f != nil {
		kind := "ROWS"
		if f.Kind == ops.Range {
			kind = "RANGE"
		}
		parts = append(parts, kind+" BETWEEN "+boundSQL(f.Lower, true)+" AND "+boundSQL(f.Upper, false))
	}
	return fn + " OVER (" + strings.Join(parts, " ") + ")", args, nil
}

func boundSQL(b ops.Bound, lower bool) string {
	if b.Offset == nil {
		if lower {
			return "UNBOUNDED PRECEDING"
		}
		return "UNBOUNDED FOLLOWING"
	}
	n := *b.Offset
	switch {
	case n == 0:
		return "CURRENT ROW"
	case n < 0:
		return fmt.Sprintf("%d PRECEDING", -n)
	default:
		return fmt.Sprintf("%d FOLLOWING", n)
	}
}

func literalSQL(n *ops.Literal) (string, []any, error) {
	if n.IsNull() {
		return "NULL", nil, nil
	}
	switch v := n.Value().(type) {
	case *big.Rat:
		// SQLite has no decimal storage class
		f, _ := v.Float64()
		return "?", []any{f}, nil
	case time.Time:
		switch n.DataType().Kind() {
		case types.Date:
			return "?", []any{v.Format("2006-01-02")}, nil
		case types.Time:
			return "?", []any{v.Format("15:04:05")}, nil
		}
		return "?", []any{v.Format("2006-01-02 15:04:05")}, nil
	case []any:
		return "", nil, notDefined("array literal")
	default:
		return "?", []any{v}, nil
	}
}

func affinity(d types.DataType) string {
	switch {
	case d.IsInteger(), d.IsBoolean(), d.IsInterval():
		return "INTEGER"
	case d.IsFloating(), d.IsDecimal():
		return "REAL"
	default:
		return "TEXT"
	}
}

// inlineArgs substitutes positional args into a fragment; SQLite
// forbids parameters in GROUP BY expressions via some drivers, and
// squirrel's GroupBy accepts plain strings only.
func inlineArgs(sql string, args []any) (string, error) {
	if len(args) == 0 {
		return sql, nil
	}
	var sb strings.Builder
	i := 0
	for _, r := range sql {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		if i >= len(args) {
			return "", fmt.Errorf("sqlite: arg count mismatch while inlining")
		}
		lit, err := inlineValue(args[i])
		if err != nil {
			return "", err
		}
		sb.WriteString(lit)
		i++
	}
	if i != len(args) {
		return "", fmt.Errorf("sqlite: arg count mismatch while inlining")
	}
	return sb.String(), nil
}

func inlineValue(v any) (string, error) {
	switch v := v.(type) {
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return fmt.Sprintf("%g", v), nil
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	}
	return "", fmt.Errorf("sqlite: cannot inline value of type %T", v)
}
