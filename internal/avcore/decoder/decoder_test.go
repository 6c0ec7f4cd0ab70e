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

package decoder

import (
	"errors"
	"testing"

	astiav "github.com/asticode/go-astiav"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRescaleIdentity(t *testing.T) {
	tb := astiav.NewRational(1, 1000)
	assert.Equal(t, int64(5000), rescale(5000, tb, tb))
}

func TestRescaleMicrosToStreamTimeBase(t *testing.T) {
	// 90000Hz stream time base, 2 seconds in.
	streamTB := astiav.NewRational(1, 90000)
	got := rescale(2_000_000, microTimeBase, streamTB)
	assert.Equal(t, int64(180000), got)
}

func TestRescaleZeroDenominatorIsZero(t *testing.T) {
	zero := astiav.NewRational(0, 0)
	tb := astiav.NewRational(1, 1000)
	assert.Equal(t, int64(0), rescale(100, zero, tb))
	assert.Equal(t, int64(0), rescale(100, tb, zero))
}

func TestRescaleRoundTripIsStable(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		num := rapid.IntRange(1, 100000).Draw(t, "num")
		den := rapid.IntRange(1, 100000).Draw(t, "den")
		ts := rapid.Int64Range(0, 1_000_000_000).Draw(t, "ts")

		tb := astiav.NewRational(num, den)
		micros := rescale(ts, tb, microTimeBase)
		back := rescale(micros, microTimeBase, tb)

		// Integer truncation in both directions can drift by a little
		// more than one unit of the coarser time base; this bounds it
		// rather than demanding exact equality.
		diff := back - ts
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, int64(2))
	})
}

func TestMaxI64(t *testing.T) {
	assert.Equal(t, int64(5), maxI64(5, 3))
	assert.Equal(t, int64(5), maxI64(3, 5))
	assert.Equal(t, int64(5), maxI64(5, 5))
	assert.Equal(t, int64(-1), maxI64(-5, -1))
}

func TestDecoderZeroValuePredicates(t *testing.T) {
	d := &Decoder{}
	assert.False(t, d.isValid())
	assert.False(t, d.hasAudio())
	assert.False(t, d.hasVideo())
	assert.False(t, d.isHardwareAccelerated())
}

func TestDecodeAudioRejectsUninitialized(t *testing.T) {
	d := &Decoder{}
	_, err := d.DecodeAudio()
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestDecodeVideoRejectsUninitialized(t *testing.T) {
	d := &Decoder{}
	_, err := d.DecodeVideo(make([]byte, 16))
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestSeekToRejectsUninitialized(t *testing.T) {
	d := &Decoder{}
	err := d.SeekTo(0, false)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestResetRejectsUninitialized(t *testing.T) {
	d := &Decoder{}
	err := d.Reset()
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestCloseTwiceReturnsAlreadyClosed(t *testing.T) {
	d := &Decoder{}
	require := assert.New(t)
	require.NoError(d.Close())
	err := d.Close()
	require.ErrorIs(err, ErrAlreadyClosed)
}

func TestBestEffortPtsPrefersBestEffortTimestamp(t *testing.T) {
	f := astiav.AllocFrame()
	defer f.Free()
	f.SetPts(100)
	f.SetBestEffortTimestamp(42)
	assert.Equal(t, int64(42), bestEffortPts(f))
}

func TestBestEffortPtsFallsBackToPtsWhenUnset(t *testing.T) {
	f := astiav.AllocFrame()
	defer f.Free()
	f.SetPts(100)
	f.SetBestEffortTimestamp(astiav.NoPtsValue)
	assert.Equal(t, int64(100), bestEffortPts(f))
}

func TestHardwareAccelerationErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	assert.ErrorIs(t, newHardwareAccelerationError(base), base)
}

func TestNewHardwareAccelerationErrorNilIsNil(t *testing.T) {
	assert.NoError(t, newHardwareAccelerationError(nil))
}
