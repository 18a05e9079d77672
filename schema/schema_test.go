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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/types"
)

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Pair{
		{Name: "a", Type: types.Int64Type()},
		{Name: "a", Type: types.StringType()},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New([]Pair{{Name: "", Type: types.Int64Type()}})
	require.Error(t, err)
}

func TestFieldLookup(t *testing.T) {
	s, err := ParsePairs([][2]string{
		{"id", "!int64"},
		{"name", "string"},
		{"score", "float64"},
	})
	require.NoError(t, err)

	d, ok := s.Field("id")
	require.True(t, ok)
	assert.False(t, d.Nullable())
	assert.Equal(t, types.Int64, d.Kind())

	_, ok = s.Field("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Index("name"))
	assert.Equal(t, -1, s.Index("missing"))
}

func TestEquality(t *testing.T) {
	a, err := ParsePairs([][2]string{{"x", "int64"}, {"y", "string"}})
	require.NoError(t, err)
	b, err := ParsePairs([][2]string{{"y", "string"}, {"x", "int64"}})
	require.NoError(t, err)

	assert.False(t, a.Equals(b))
	assert.True(t, a.EqualsUnordered(b))
	assert.True(t, a.Subset(b))
}

func TestString(t *testing.T) {
	s, err := ParsePairs([][2]string{{"x", "!int64"}, {"y", "string"}})
	require.NoError(t, err)
	assert.Equal(t, "{x: !int64, y: string}", s.String())
}

func TestFromYAML(t *testing.T) {
	doc := []byte(`
columns:
  - name: id
    type: "!int64"
  - name: title
    type: string
  - name: price
    type: decimal(9, 2)
`)
	s, err := FromYAML(doc)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	d, ok := s.Field("price")
	require.True(t, ok)
	assert.True(t, d.IsDecimal())
}

func TestCatalogFromYAML(t *testing.T) {
	doc := []byte(`
tables:
  events:
    columns:
      - name: id
        type: "!int64"
      - name: kind
        type: string
  users:
    columns:
      - name: id
        type: "!int64"
`)
	cat, err := CatalogFromYAML(doc)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	require.Contains(t, cat, "events")
	assert.Equal(t, 2, cat["events"].Len())
}
