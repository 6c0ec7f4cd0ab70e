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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDecoderErrorNilPassthrough(t *testing.T) {
	assert.NoError(t, newDecoderError(nil))
}

func TestNewHardwareAccelerationErrorNilPassthrough(t *testing.T) {
	assert.NoError(t, newHardwareAccelerationError(nil))
}

func TestNewSamplerErrorNilPassthrough(t *testing.T) {
	assert.NoError(t, newSamplerError(nil))
}

func TestTypedErrorsWrapAndUnwrap(t *testing.T) {
	inner := errors.New("boom")

	de := newDecoderError(inner)
	assert.ErrorIs(t, de, inner)
	assert.Contains(t, de.Error(), "boom")

	he := newHardwareAccelerationError(inner)
	assert.ErrorIs(t, he, inner)
	assert.Contains(t, he.Error(), "boom")

	se := newSamplerError(inner)
	assert.ErrorIs(t, se, inner)
	assert.Contains(t, se.Error(), "boom")
}

func TestRuntimeErrorFormatsArgs(t *testing.T) {
	err := newRuntimeError("invalid handle %d", 42)
	assert.EqualError(t, err, "runtime: invalid handle 42")
}
