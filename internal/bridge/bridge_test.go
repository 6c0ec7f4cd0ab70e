/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * klarity-go
 * Copyright (C) 2026 numq
 *
 * This file is part of klarity-go.
 *
 * klarity-go is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * klarity-go is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with klarity-go.  If not, see <https://www.gnu.org/licenses/>.
 */

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateRejectsNonPositiveSize(t *testing.T) {
	_, err := Allocate(0)
	assert.Error(t, err)

	_, err = Allocate(-1)
	assert.Error(t, err)
}

func TestAllocateReturnsZeroedBuffer(t *testing.T) {
	buf, err := Allocate(16)
	require.NoError(t, err)
	require.Len(t, buf, 16)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestFreeIsAlwaysNoOp(t *testing.T) {
	assert.NoError(t, Free(nil))
	assert.NoError(t, Free(make([]byte, 8)))
}

func TestListHwAccelerationsRequiresInit(t *testing.T) {
	hwRegistry = nil
	_, err := ListHwAccelerations()
	assert.Error(t, err)
}
