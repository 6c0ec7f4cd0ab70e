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

	"github.com/numq/klarity-go/internal/avcore/decoder"
	"github.com/numq/klarity-go/internal/avcore/format"
	"github.com/numq/klarity-go/internal/avcore/hwaccel"
)

// wrapDecodeError distinguishes a hardware-acceleration-specific failure
// (spec.md §7 kind 2) from every other decoder failure (kind 1/3/4), so a
// foreign caller can map the two onto distinct exception types.
func wrapDecodeError(err error) error {
	var hwErr *decoder.HardwareAccelerationError
	if errors.As(err, &hwErr) {
		return newHardwareAccelerationError(err)
	}
	return newDecoderError(err)
}

var decoders = newHandleTable[*decoder.Decoder]()

// DecoderOptions mirrors decoder.Options at the bridge boundary so callers
// outside internal/avcore never import it directly.
type DecoderOptions struct {
	FindAudioStream                bool
	FindVideoStream                bool
	DecodeAudioStream               bool
	DecodeVideoStream               bool
	HardwareAccelerationCandidates  []hwaccel.DeviceType
	ThreadCount                     int
	ProbeSize                       int64
	FFmpegParams                    string
}

// CreateDecoder opens location and returns its handle plus the probed
// Format.
func CreateDecoder(location string, opts DecoderOptions) (int64, format.Format, error) {
	if hwRegistry == nil {
		return 0, format.Format{}, newRuntimeError("bridge not initialized")
	}

	d, err := decoder.New(hwRegistry, location, decoder.Options{
		FindAudioStream:                opts.FindAudioStream,
		FindVideoStream:                opts.FindVideoStream,
		DecodeAudioStream:              opts.DecodeAudioStream,
		DecodeVideoStream:              opts.DecodeVideoStream,
		HardwareAccelerationCandidates: opts.HardwareAccelerationCandidates,
		ThreadCount:                    opts.ThreadCount,
		ProbeSize:                      opts.ProbeSize,
		FFmpegParams:                   opts.FFmpegParams,
	})
	if err != nil {
		return 0, format.Format{}, newDecoderError(err)
	}

	handle := decoders.insert(d)
	return handle, d.Format(), nil
}

func getDecoder(handle int64) (*decoder.Decoder, error) {
	d, ok := decoders.get(handle)
	if !ok {
		return nil, newRuntimeError("invalid decoder handle %d", handle)
	}
	return d, nil
}

// GetFormat returns the Format for an already-open decoder handle.
func GetFormat(handle int64) (format.Format, error) {
	d, err := getDecoder(handle)
	if err != nil {
		return format.Format{}, err
	}
	return d.Format(), nil
}

// DecodeAudio decodes the next audio frame for handle, or (nil, nil) at
// end of stream.
func DecodeAudio(handle int64) (*decoder.AudioFrame, error) {
	d, err := getDecoder(handle)
	if err != nil {
		return nil, err
	}
	frame, err := d.DecodeAudio()
	if err != nil {
		return nil, newDecoderError(err)
	}
	return frame, nil
}

// DecodeVideo decodes the next video frame for handle into buffer, or
// (nil, nil) at end of stream.
func DecodeVideo(handle int64, buffer []byte) (*decoder.VideoFrame, error) {
	d, err := getDecoder(handle)
	if err != nil {
		return nil, err
	}
	frame, err := d.DecodeVideo(buffer)
	if err != nil {
		return nil, wrapDecodeError(err)
	}
	return frame, nil
}

// SeekTo seeks the decoder at handle.
func SeekTo(handle int64, timestampMicros int64, keyframesOnly bool) error {
	d, err := getDecoder(handle)
	if err != nil {
		return err
	}
	if err := d.SeekTo(timestampMicros, keyframesOnly); err != nil {
		return newDecoderError(err)
	}
	return nil
}

// ResetDecoder rewinds the decoder at handle to the beginning of the
// stream.
func ResetDecoder(handle int64) error {
	d, err := getDecoder(handle)
	if err != nil {
		return err
	}
	if err := d.Reset(); err != nil {
		return newDecoderError(err)
	}
	return nil
}

// DeleteDecoder closes and forgets the decoder at handle.
func DeleteDecoder(handle int64) error {
	d, ok := decoders.remove(handle)
	if !ok {
		return newRuntimeError("invalid decoder handle %d", handle)
	}
	if err := d.Close(); err != nil {
		return newDecoderError(err)
	}
	return nil
}
