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

// Package sqlite is the reference backend: it lowers operation
// graphs to SQLite SQL and runs them over database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GrapeBaBa/ibis/backend"
	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

// Conn is a connected SQLite backend.
type Conn struct {
	db *sql.DB
}

var _ backend.Backend = (*Conn)(nil)

// Open connects to a SQLite database; use ":memory:" for a
// transient one.
func Open(dsn string) (*Conn, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db}, nil
}

// DB exposes the underlying connection pool.
func (c *Conn) DB() *sql.DB { return c.db }

func (c *Conn) Name() string { return "sqlite" }

func (c *Conn) Close() error { return c.db.Close() }

// Compile lowers rel to SQL without executing it.
func (c *Conn) Compile(rel ops.Relation) (*backend.Compiled, error) {
	return Compile(rel)
}

// Execute compiles and runs rel, binding any unbound scalar
// parameters from params, and materializes the rows. A positive
// limit caps the materialized row count.
func (c *Conn) Execute(ctx context.Context, rel ops.Relation, params backend.Params, limit int64) (*backend.Result, error) {
	compiled, err := Compile(rel)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(compiled.Args))
	for i, a := range compiled.Args {
		if p, ok := a.(*ops.ScalarParameter); ok {
			v, bound := params[p]
			if !bound {
				return nil, fmt.Errorf("sqlite: parameter %s is unbound", p.DefaultName())
			}
			args[i] = v
			continue
		}
		args[i] = a
	}
	rows, err := c.db.QueryContext(ctx, compiled.Text, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w (query: %s)", err, compiled.Text)
	}
	defer rows.Close()

	sch := compiled.Schema
	res := &backend.Result{
		Columns: sch.Names(),
		Types:   sch.Types(),
	}
	for rows.Next() {
		if limit > 0 && int64(len(res.Rows)) >= limit {
			break
		}
		scan := make([]any, sch.Len())
		for i := range scan {
			scan[i] = new(any)
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := make([]any, sch.Len())
		for i := range scan {
			v, err := nativeValue(*scan[i].(*any), sch.Types()[i])
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}

// nativeValue coerces a driver value to the declared column type.
func nativeValue(v any, d types.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case d.IsBoolean():
		switch v := v.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case d.IsInteger(), d.IsInterval():
		if n, ok := v.(int64); ok {
			return n, nil
		}
	case d.IsFloating(), d.IsDecimal():
		switch v := v.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		}
	case d.IsString():
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case d.IsTemporal():
		switch v := v.(type) {
		case time.Time:
			return v.UTC(), nil
		case string:
			return parseTemporal(v, d)
		}
	}
	return v, nil
}

func parseTemporal(s string, d types.DataType) (any, error) {
	layouts := []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339Nano, "15:04:05"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("sqlite: cannot parse %q as %s", s, d)
}

// Tables lists the user tables in the main database.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Table binds an existing table, reading its schema from the
// engine's catalog.
func (c *Conn) Table(ctx context.Context, name string) (ops.Relation, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pairs []schema.Pair
	for rows.Next() {
		var (
			cid     int
			col     string
			decl    string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col, &decl, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		d := declType(decl)
		if notnull == 0 {
			d = d.AsNullable()
		} else {
			d = d.AsNonNullable()
		}
		pairs = append(pairs, schema.Pair{Name: col, Type: d})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("sqlite: table %q does not exist", name)
	}
	sch, err := schema.New(pairs)
	if err != nil {
		return nil, err
	}
	return ops.NewDatabaseTable(name, "", sch)
}

// declType maps a declared SQLite column type to a data type,
// following the engine's affinity rules.
func declType(decl string) types.DataType {
	u := strings.ToUpper(decl)
	switch {
	case strings.Contains(u, "BOOL"):
		return types.BooleanType()
	case strings.Contains(u, "INT"):
		return types.Int64Type()
	case strings.Contains(u, "REAL"), strings.Contains(u, "FLOA"), strings.Contains(u, "DOUB"):
		return types.Float64Type()
	case strings.Contains(u, "DATETIME"), strings.Contains(u, "TIMESTAMP"):
		return types.TimestampType()
	case strings.Contains(u, "DATE"):
		return types.DateType()
	case strings.Contains(u, "DECIMAL"), strings.Contains(u, "NUMERIC"):
		return types.Float64Type()
	default:
		return types.StringType()
	}
}
