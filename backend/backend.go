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

// Package backend defines the compile/execute boundary: everything
// above it manipulates operation graphs, everything below it speaks
// a concrete query engine's dialect.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/GrapeBaBa/ibis/ops"
	"github.com/GrapeBaBa/ibis/schema"
	"github.com/GrapeBaBa/ibis/types"
)

// Compiled is a backend-ready artifact: the query text plus the
// schema the result rows will carry. Args holds the literal
// parameters in placeholder order; unbound scalar parameters appear
// as *ops.ScalarParameter sentinels to be bound at execution.
type Compiled struct {
	ID     uuid.UUID
	Text   string
	Args   []any
	Schema *schema.Schema
}

// Params binds unbound scalar parameters to native values.
type Params map[*ops.ScalarParameter]any

// Result is a fully materialized query result.
type Result struct {
	Columns []string
	Types   []types.DataType
	Rows    [][]any
}

// Compiler lowers an operation graph to the backend's dialect.
type Compiler interface {
	Compile(rel ops.Relation) (*Compiled, error)
}

// Executor runs an operation graph and materializes the rows. The
// returned result's columns match the relation's schema. A positive
// limit caps the number of materialized rows; zero or negative means
// all rows.
type Executor interface {
	Execute(ctx context.Context, rel ops.Relation, params Params, limit int64) (*Result, error)
}

// Backend is a connected query engine.
type Backend interface {
	Compiler
	Executor

	// Name identifies the backend ("sqlite", ...).
	Name() string
	// Table binds a table that exists in the backend, reading its
	// schema from the engine's catalog.
	Table(ctx context.Context, name string) (ops.Relation, error)
	// Tables lists the table names visible to the connection.
	Tables(ctx context.Context) ([]string, error)
	// Close releases the connection.
	Close() error
}

// OperationNotDefinedError reports an operation the backend cannot
// express. It is the portability escape hatch: probing code can test
// for it with IsOperationNotDefined and fall back.
type OperationNotDefinedError struct {
	Backend string
	Op      string
}

func (e *OperationNotDefinedError) Error() string {
	return fmt.Sprintf("operation %s is not defined for backend %s", e.Op, e.Backend)
}

// IsOperationNotDefined reports whether err marks an unsupported
// operation.
func IsOperationNotDefined(err error) bool {
	var e *OperationNotDefinedError
	return errors.As(err, &e)
}
