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

package stretch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestZerosProduceZeros(t *testing.T) {
	s := NewDefault(2, 44100)

	in := [][]float32{make([]float32, 4096), make([]float32, 4096)}
	out := [][]float32{make([]float32, 4096), make([]float32, 4096)}

	s.Process(in, 4096, out, 4096)

	for ch := range out {
		for _, v := range out[ch] {
			assert.Equal(t, float32(0), v)
		}
	}
}

func TestProcessAlwaysFillsRequestedLength(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		channels := rapid.IntRange(1, 2).Draw(t, "channels")
		sampleRate := rapid.SampledFrom([]int{22050, 44100, 48000}).Draw(t, "sampleRate")
		inSamples := rapid.IntRange(0, 8192).Draw(t, "inSamples")
		outSamples := rapid.IntRange(0, 8192).Draw(t, "outSamples")

		s := NewDefault(channels, sampleRate)

		in := make([][]float32, channels)
		out := make([][]float32, channels)
		for ch := 0; ch < channels; ch++ {
			in[ch] = make([]float32, inSamples)
			out[ch] = make([]float32, outSamples)
		}

		require.NotPanics(t, func() {
			s.Process(in, inSamples, out, outSamples)
		})
	})
}

func TestFlushFillsRequestedLength(t *testing.T) {
	s := NewDefault(1, 44100)
	out := [][]float32{make([]float32, s.OutputLatency())}
	require.NotPanics(t, func() {
		s.Flush(out, s.OutputLatency())
	})
	assert.Len(t, out[0], s.OutputLatency())
}

func TestResetClearsChannelState(t *testing.T) {
	s := NewDefault(1, 44100)

	in := [][]float32{make([]float32, 4096)}
	for i := range in[0] {
		in[0][i] = 0.5
	}
	out := [][]float32{make([]float32, 4096)}
	s.Process(in, 4096, out, 4096)

	s.Reset()

	st := s.states[0]
	assert.Empty(t, st.input)
	assert.Empty(t, st.ready)
	assert.False(t, st.haveLast)
}
