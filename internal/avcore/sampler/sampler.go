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

// Package sampler implements the Sampler contract of spec.md §4.5: a
// PortAudio output sink that accepts interleaved float32 PCM and applies a
// playback-speed factor via internal time stretching, without shifting
// pitch.
//
// Grounded on github.com/gordonklaus/portaudio's blocking stream API
// (richinsley-goshadertoy/audio/microphone.go uses the same package's
// callback-stream variant for capture; this module uses its blocking
// write variant instead, matching the original's Pa_WriteStream call) and
// on original_source/core/.../sampler/sampler.cpp for the start-latency
// formula and the deinterleave/stretch/scale/clamp pipeline in play().
package sampler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/numq/klarity-go/internal/avcore/stretch"
)

var (
	ErrUninitialized = errors.New("sampler: uninitialized")
	ErrAlreadyActive = errors.New("sampler: already active")
	ErrNotActive     = errors.New("sampler: not active")
	ErrEmptySamples  = errors.New("sampler: empty samples")
	ErrAlreadyClosed = errors.New("sampler: already closed")
)

const bytesPerSample = 4 // float32

// Sampler owns one PortAudio output stream and one Stretcher, serialized
// behind a single mutex exactly like the original's std::mutex.
type Sampler struct {
	mu sync.Mutex

	sampleRate int
	channels   int

	stream *portaudio.Stream
	out    []float32

	stretcher *stretch.Stretcher

	playbackSpeed float32
	volume        float32

	active bool
	closed bool
}

// New opens the default output device at sampleRate/channels and prepares
// the internal stretcher. portaudio.Initialize must already have been
// called once for the process (internal/bridge does this at Init).
func New(sampleRate, channels int) (*Sampler, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("sampler: invalid sampleRate/channels (%d/%d)", sampleRate, channels)
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("sampler: DefaultHostApi: %w", err)
	}
	if host.DefaultOutputDevice == nil {
		return nil, errors.New("sampler: no default output device")
	}

	params := portaudio.HighLatencyParameters(nil, host.DefaultOutputDevice)
	params.Output.Channels = channels
	params.SampleRate = float64(sampleRate)

	s := &Sampler{
		sampleRate:    sampleRate,
		channels:      channels,
		out:           make([]float32, 0, sampleRate*channels),
		stretcher:     stretch.NewDefault(channels, sampleRate),
		playbackSpeed: 1.0,
		volume:        1.0,
	}

	stream, err := portaudio.OpenStream(params, &s.out)
	if err != nil {
		return nil, fmt.Errorf("sampler: OpenStream: %w", err)
	}
	s.stream = stream

	return s, nil
}

// SetPlaybackSpeed sets the factor applied to future Play calls. A value
// of 1.0 is unity speed; values >1 play faster (shorter output per input
// chunk), values <1 slower, without shifting pitch.
func (s *Sampler) SetPlaybackSpeed(factor float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playbackSpeed = factor
}

// SetVolume sets the linear gain applied to future Play calls.
func (s *Sampler) SetVolume(value float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = value
}

// Start begins playback and reports, in microseconds, the combined output
// device latency and stretcher latency a caller should expect before
// Play'd audio is actually heard.
func (s *Sampler) Start() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return 0, ErrUninitialized
	}
	if s.active {
		return 0, ErrAlreadyActive
	}

	if err := s.stream.Start(); err != nil {
		return 0, fmt.Errorf("sampler: Start: %w", err)
	}
	s.active = true

	info := s.stream.Info()
	outputLatencySeconds := info.OutputLatency.Seconds()

	stretchLatencySamples := float64(s.stretcher.InputLatency() + s.stretcher.OutputLatency())
	stretchLatencySeconds := stretchLatencySamples / float64(s.sampleRate)

	return int64((outputLatencySeconds + stretchLatencySeconds) * 1_000_000), nil
}

// Play deinterleaves samples (raw interleaved float32 bytes), stretches
// them by the current playback speed, scales by the current volume, and
// blocks writing the result to the output device.
func (s *Sampler) Play(samples []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrUninitialized
	}
	if !s.active {
		return ErrNotActive
	}
	if len(samples) == 0 {
		return ErrEmptySamples
	}

	inputSamples := len(samples) / bytesPerSample / s.channels
	if inputSamples == 0 {
		return ErrEmptySamples
	}

	speed := s.playbackSpeed
	if speed <= 0 {
		speed = 1.0
	}
	outputSamples := int(float32(inputSamples) / speed)
	if outputSamples <= 0 {
		outputSamples = 1
	}

	in := deinterleave(samples, inputSamples, s.channels)
	out := make([][]float32, s.channels)
	for ch := range out {
		out[ch] = make([]float32, outputSamples)
	}

	s.stretcher.Process(in, inputSamples, out, outputSamples)

	interleaved := interleaveClampScale(out, outputSamples, s.channels, s.volume)

	if cap(s.out) < len(interleaved) {
		s.out = make([]float32, len(interleaved))
	} else {
		s.out = s.out[:len(interleaved)]
	}
	copy(s.out, interleaved)

	if err := s.stream.Write(); err != nil {
		return fmt.Errorf("sampler: Write: %w", err)
	}
	return nil
}

func deinterleave(samples []byte, nbSamples, channels int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, nbSamples)
	}
	for i := 0; i < nbSamples*channels; i++ {
		v := bytesToFloat32(samples[i*bytesPerSample : i*bytesPerSample+bytesPerSample])
		out[i%channels][i/channels] = v
	}
	return out
}

func interleaveClampScale(in [][]float32, nbSamples, channels int, volume float32) []float32 {
	out := make([]float32, 0, nbSamples*channels)
	for i := 0; i < nbSamples; i++ {
		for ch := 0; ch < channels; ch++ {
			v := in[ch][i] * volume
			if v > 1.0 {
				v = 1.0
			} else if v < -1.0 {
				v = -1.0
			}
			out = append(out, v)
		}
	}
	return out
}

// Stop aborts in-flight writes by aborting the stream; it does not close
// the stream (a subsequent Start may begin playback again) and it does
// not touch the stretcher, per spec.md §4.5's stop().
func (s *Sampler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrUninitialized
	}
	if !s.active {
		return nil
	}
	if err := s.stream.Abort(); err != nil {
		return fmt.Errorf("sampler: Abort: %w", err)
	}
	s.active = false
	return nil
}

// Flush resets the stretcher's internal state with no I/O, per spec.md
// §4.5's flush(). Use Drain first if the stretcher's buffered tail
// should reach the device before it is discarded.
func (s *Sampler) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrUninitialized
	}
	s.stretcher.Reset()
	return nil
}

// Drain flushes the stretcher's remaining buffered output to the device,
// applying volume scaling and clamping the same way Play does, per
// spec.md §4.5's drain(). speedFactor does not affect the flushed tail's
// length (the stretcher always emits stretcher.OutputLatency() samples
// on Flush) but is accepted for symmetry with Play's signature.
func (s *Sampler) Drain(volume, speedFactor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return ErrUninitialized
	}
	if !s.active {
		return ErrNotActive
	}

	outSamples := s.stretcher.OutputLatency()
	out := make([][]float32, s.channels)
	for ch := range out {
		out[ch] = make([]float32, outSamples)
	}
	s.stretcher.Flush(out, outSamples)

	interleaved := interleaveClampScale(out, outSamples, s.channels, float32(volume))

	if cap(s.out) < len(interleaved) {
		s.out = make([]float32, len(interleaved))
	} else {
		s.out = s.out[:len(interleaved)]
	}
	copy(s.out, interleaved)

	if err := s.stream.Write(); err != nil {
		return fmt.Errorf("sampler: Write: %w", err)
	}
	return nil
}

// Close releases the underlying PortAudio stream. The Sampler is unusable
// afterward.
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true

	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	if err != nil {
		return fmt.Errorf("sampler: Close: %w", err)
	}
	return nil
}

func bytesToFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}
