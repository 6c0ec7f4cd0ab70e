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
	"github.com/numq/klarity-go/internal/avcore/sampler"
)

var samplers = newHandleTable[*sampler.Sampler]()

// CreateSampler opens a default-output PortAudio stream for
// sampleRate/channels and returns its handle.
func CreateSampler(sampleRate, channels int) (int64, error) {
	s, err := sampler.New(sampleRate, channels)
	if err != nil {
		return 0, newSamplerError(err)
	}
	return samplers.insert(s), nil
}

func getSampler(handle int64) (*sampler.Sampler, error) {
	s, ok := samplers.get(handle)
	if !ok {
		return nil, newRuntimeError("invalid sampler handle %d", handle)
	}
	return s, nil
}

// StartSampler starts playback on handle, returning the combined
// device+stretcher latency in microseconds.
func StartSampler(handle int64) (int64, error) {
	s, err := getSampler(handle)
	if err != nil {
		return 0, err
	}
	latency, err := s.Start()
	if err != nil {
		return 0, newSamplerError(err)
	}
	return latency, nil
}

// WriteSampler stretches and plays samples (interleaved float32 PCM
// bytes), applying volume and playbackSpeedFactor, per spec.md §6's
// write(handle, bytes, volume, playbackSpeedFactor).
func WriteSampler(handle int64, samplesData []byte, volume, speedFactor float64) error {
	s, err := getSampler(handle)
	if err != nil {
		return err
	}
	s.SetVolume(float32(volume))
	s.SetPlaybackSpeed(float32(speedFactor))
	if err := s.Play(samplesData); err != nil {
		return newSamplerError(err)
	}
	return nil
}

// StopSampler aborts in-flight writes without closing the stream.
func StopSampler(handle int64) error {
	s, err := getSampler(handle)
	if err != nil {
		return err
	}
	if err := s.Stop(); err != nil {
		return newSamplerError(err)
	}
	return nil
}

// FlushSampler resets the stretcher's internal state with no I/O.
func FlushSampler(handle int64) error {
	s, err := getSampler(handle)
	if err != nil {
		return err
	}
	if err := s.Flush(); err != nil {
		return newSamplerError(err)
	}
	return nil
}

// DrainSampler flushes the stretcher's remaining output, applying volume
// and playbackSpeedFactor, and writes it to the device, per spec.md §6's
// drain(handle, volume, playbackSpeedFactor).
func DrainSampler(handle int64, volume, speedFactor float64) error {
	s, err := getSampler(handle)
	if err != nil {
		return err
	}
	if err := s.Drain(volume, speedFactor); err != nil {
		return newSamplerError(err)
	}
	return nil
}

// DeleteSampler closes and forgets the sampler at handle.
func DeleteSampler(handle int64) error {
	s, ok := samplers.remove(handle)
	if !ok {
		return newRuntimeError("invalid sampler handle %d", handle)
	}
	if err := s.Close(); err != nil {
		return newSamplerError(err)
	}
	return nil
}
