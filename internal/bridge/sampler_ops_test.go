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
)

func TestInvalidSamplerHandleOperationsFail(t *testing.T) {
	const bogus int64 = -1

	_, err := StartSampler(bogus)
	assert.Error(t, err)

	assert.Error(t, WriteSampler(bogus, []byte{0, 0, 0, 0}, 1.0, 1.0))
	assert.Error(t, StopSampler(bogus))
	assert.Error(t, FlushSampler(bogus))
	assert.Error(t, DrainSampler(bogus, 1.0, 1.0))
	assert.Error(t, DeleteSampler(bogus))
}
