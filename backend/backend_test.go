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

package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOperationNotDefined(t *testing.T) {
	err := &OperationNotDefinedError{Backend: "sqlite", Op: "as-of join"}
	assert.Contains(t, err.Error(), "sqlite")
	assert.Contains(t, err.Error(), "as-of join")

	wrapped := fmt.Errorf("compile: %w", err)
	assert.True(t, IsOperationNotDefined(wrapped))
	assert.False(t, IsOperationNotDefined(errors.New("boom")))
	assert.False(t, IsOperationNotDefined(nil))
}
