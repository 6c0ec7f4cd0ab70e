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

package sampler

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func float32ToBytes(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestBytesToFloat32RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := float32(rapid.Float64Range(-1000, 1000).Draw(t, "v"))
		got := bytesToFloat32(float32ToBytes(v))
		assert.Equal(t, v, got)
	})
}

func TestDeinterleaveSplitsChannels(t *testing.T) {
	// 2 channels, 2 samples: L0 R0 L1 R1
	samples := append(float32ToBytes(1), float32ToBytes(2)...)
	samples = append(samples, float32ToBytes(3)...)
	samples = append(samples, float32ToBytes(4)...)

	out := deinterleave(samples, 2, 2)
	assert.Equal(t, []float32{1, 3}, out[0])
	assert.Equal(t, []float32{2, 4}, out[1])
}

func TestInterleaveClampScaleRecombinesAndScales(t *testing.T) {
	in := [][]float32{{1, 3}, {2, 4}}
	out := interleaveClampScale(in, 2, 2, 0.5)
	assert.Equal(t, []float32{0.5, 1, 1, 1}, out)
}

func TestInterleaveClampScaleClampsToUnitRange(t *testing.T) {
	in := [][]float32{{10, -10}}
	out := interleaveClampScale(in, 2, 1, 1.0)
	assert.Equal(t, []float32{1.0, -1.0}, out)
}

func TestNewRejectsInvalidArgs(t *testing.T) {
	_, err := New(0, 2)
	assert.Error(t, err)

	_, err = New(44100, 0)
	assert.Error(t, err)
}

func TestUninitializedSamplerRejectsOperations(t *testing.T) {
	s := &Sampler{}

	_, err := s.Start()
	assert.ErrorIs(t, err, ErrUninitialized)

	assert.ErrorIs(t, s.Play([]byte{0, 0, 0, 0}), ErrUninitialized)
	assert.ErrorIs(t, s.Stop(), ErrUninitialized)
	assert.ErrorIs(t, s.Flush(), ErrUninitialized)
	assert.ErrorIs(t, s.Drain(1.0, 1.0), ErrUninitialized)
}

func TestCloseTwiceReturnsAlreadyClosed(t *testing.T) {
	s := &Sampler{}
	assert.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), ErrAlreadyClosed)
}
