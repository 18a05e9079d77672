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

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a constructor argument has the
// wrong arity or shape, or an invariant between sibling fields is
// violated (for example unequal case/result list lengths).
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func errValidationf(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// SchemaError is returned when a referenced column is absent or
// ambiguous, or when two schemas that must match do not. Missing
// holds the offending names, Available the names that exist.
type SchemaError struct {
	Msg       string
	Missing   []string
	Available []string
}

func (e *SchemaError) Error() string {
	msg := e.Msg
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(": %s", strings.Join(e.Missing, ", "))
	}
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

func errMissingColumn(name string, available []string) *SchemaError {
	return &SchemaError{
		Msg:       "column not found",
		Missing:   []string{name},
		Available: available,
	}
}

// IdentityError is returned when an operation requires a display
// name and none is resolvable, e.g. projecting an unnamed computed
// expression. It is distinct from SchemaError: the data is fine,
// only its naming is not.
type IdentityError struct {
	Msg string
}

func (e *IdentityError) Error() string { return e.Msg }

func errIdentityf(format string, args ...any) *IdentityError {
	return &IdentityError{Msg: fmt.Sprintf(format, args...)}
}
