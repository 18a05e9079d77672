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

import "github.com/dchest/siphash"

const (
	hashKey0 = 0x69626973 // "ibis"
	hashKey1 = 0x6f707321
)

// Hash returns a content hash of a node computed over its canonical
// wire form, so structurally equal nodes hash identically. It is
// suitable for memoization tables keyed by subexpression.
func Hash(n Node) (uint64, error) {
	raw, err := Encode(n)
	if err != nil {
		return 0, err
	}
	return siphash.Hash(hashKey0, hashKey1, raw), nil
}
