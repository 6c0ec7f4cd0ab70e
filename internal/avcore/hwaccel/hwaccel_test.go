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

package hwaccel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestNoneIsNoOp(t *testing.T) {
	reg := New()
	ref, err := reg.Request(None)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestReleaseNilIsNoOp(t *testing.T) {
	reg := New()
	assert.NotPanics(t, func() {
		reg.Release(nil)
	})
}

func TestReleaseUnknownTypeIsNoOp(t *testing.T) {
	reg := New()
	assert.NotPanics(t, func() {
		reg.Release(&Ref{Type: DeviceType(999)})
	})
}

func TestCleanUpOnEmptyRegistryIsNoOp(t *testing.T) {
	reg := New()
	assert.NotPanics(t, func() {
		reg.CleanUp()
	})
}

func TestNoneDeviceTypeNeverListed(t *testing.T) {
	reg := New()
	for _, dt := range reg.ListAvailable() {
		assert.NotEqual(t, None, dt)
	}
}
