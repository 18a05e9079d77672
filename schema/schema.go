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

// Package schema describes the column layout of tables: an ordered
// sequence of (name, type) pairs with unique names. Schemas are
// immutable once constructed; derived schemas are always rebuilt.
package schema

import (
	"fmt"
	"strings"

	"github.com/GrapeBaBa/ibis/types"
)

// Pair is one (column name, column type) entry.
type Pair struct {
	Name string
	Type types.DataType
}

// Schema is an ordered name-to-type mapping. Order is significant
// for positional access; EqualsUnordered ignores it for the set
// checks used by set operations.
type Schema struct {
	names  []string
	dtypes []types.DataType
	index  map[string]int
}

// New constructs a Schema from ordered pairs. It fails when a name
// repeats or is empty.
func New(pairs []Pair) (*Schema, error) {
	s := &Schema{
		names:  make([]string, len(pairs)),
		dtypes: make([]types.DataType, len(pairs)),
		index:  make(map[string]int, len(pairs)),
	}
	for i, p := range pairs {
		if p.Name == "" {
			return nil, fmt.Errorf("schema: empty column name at position %d", i)
		}
		if _, ok := s.index[p.Name]; ok {
			return nil, fmt.Errorf("schema: duplicate column name %q", p.Name)
		}
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("schema: column %q has an invalid type", p.Name)
		}
		s.names[i] = p.Name
		s.dtypes[i] = p.Type
		s.index[p.Name] = i
	}
	return s, nil
}

// Of constructs a Schema from parallel name and type lists.
func Of(names []string, dtypes []types.DataType) (*Schema, error) {
	if len(names) != len(dtypes) {
		return nil, fmt.Errorf("schema: %d names but %d types", len(names), len(dtypes))
	}
	pairs := make([]Pair, len(names))
	for i := range names {
		pairs[i] = Pair{Name: names[i], Type: dtypes[i]}
	}
	return New(pairs)
}

// ParsePairs constructs a Schema from (name, annotation) pairs, the
// annotations being anything types.Parse accepts.
func ParsePairs(pairs [][2]string) (*Schema, error) {
	out := make([]Pair, len(pairs))
	for i, p := range pairs {
		d, err := types.Parse(p[1])
		if err != nil {
			return nil, fmt.Errorf("schema: column %q: %w", p[0], err)
		}
		out[i] = Pair{Name: p[0], Type: d}
	}
	return New(out)
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.names) }

// Names returns the column names in order. The caller must not
// mutate the returned slice.
func (s *Schema) Names() []string { return s.names }

// Types returns the column types in order. The caller must not
// mutate the returned slice.
func (s *Schema) Types() []types.DataType { return s.dtypes }

// Field returns the type of the named column.
func (s *Schema) Field(name string) (types.DataType, bool) {
	i, ok := s.index[name]
	if !ok {
		return types.DataType{}, false
	}
	return s.dtypes[i], true
}

// Index returns the position of the named column, or -1.
func (s *Schema) Index(name string) int {
	i, ok := s.index[name]
	if !ok {
		return -1
	}
	return i
}

// At returns the pair at position i.
func (s *Schema) At(i int) Pair {
	return Pair{Name: s.names[i], Type: s.dtypes[i]}
}

// Equals reports whether s and other have the same names and types
// in the same order.
func (s *Schema) Equals(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i := range s.names {
		if s.names[i] != other.names[i] || !s.dtypes[i].Equals(other.dtypes[i]) {
			return false
		}
	}
	return true
}

// EqualsUnordered reports whether s and other have the same
// (name, type) pairs, irrespective of order.
func (s *Schema) EqualsUnordered(other *Schema) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, name := range s.names {
		d, ok := other.Field(name)
		if !ok || !d.Equals(s.dtypes[i]) {
			return false
		}
	}
	return true
}

// Subset reports whether every column of s appears in other with an
// equal type.
func (s *Schema) Subset(other *Schema) bool {
	for i, name := range s.names {
		d, ok := other.Field(name)
		if !ok || !d.Equals(s.dtypes[i]) {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(s.dtypes[i].String())
	}
	sb.WriteByte('}')
	return sb.String()
}
