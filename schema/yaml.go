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
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// yamlColumn is one column entry in a catalog definition file.
type yamlColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FromYAML decodes a schema definition of the form
//
//	columns:
//	  - name: playerID
//	    type: string
//	  - name: yearID
//	    type: int64
func FromYAML(b []byte) (*Schema, error) {
	var def struct {
		Columns []yamlColumn `json:"columns"`
	}
	if err := yaml.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("schema: decoding yaml: %w", err)
	}
	pairs := make([][2]string, len(def.Columns))
	for i, c := range def.Columns {
		pairs[i] = [2]string{c.Name, c.Type}
	}
	return ParsePairs(pairs)
}

// Catalog is a set of named table schemas loaded from a definition
// file, the metadata source for unbound tables.
type Catalog map[string]*Schema

// CatalogFromYAML decodes a catalog definition of the form
//
//	tables:
//	  batting:
//	    columns:
//	      - name: playerID
//	        type: string
func CatalogFromYAML(b []byte) (Catalog, error) {
	var def struct {
		Tables map[string]struct {
			Columns []yamlColumn `json:"columns"`
		} `json:"tables"`
	}
	if err := yaml.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("schema: decoding catalog yaml: %w", err)
	}
	out := make(Catalog, len(def.Tables))
	for name, t := range def.Tables {
		pairs := make([][2]string, len(t.Columns))
		for i, c := range t.Columns {
			pairs[i] = [2]string{c.Name, c.Type}
		}
		s, err := ParsePairs(pairs)
		if err != nil {
			return nil, fmt.Errorf("schema: table %q: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// CatalogFromFile reads a catalog definition from a YAML file.
func CatalogFromFile(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return CatalogFromYAML(b)
}
