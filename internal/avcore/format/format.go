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

// Package format defines the immutable media-format descriptor produced by
// opening a Decoder, per spec.md §3.
package format

import "github.com/numq/klarity-go/internal/avcore/hwaccel"

// PixelLayout names the packed RGBA-family layout every decoded video frame
// is converted into. This module picks BGRA, grounded on the teacher's
// bgraScaler (src/video.go), which always converts to astiav.PixelFormatBgra
// so GUI code never has to special-case source pixel formats.
const PixelLayout = "BGRA"

// Format is an immutable value describing an opened media location.
type Format struct {
	// Location is the origin string passed to the decoder at construction.
	Location string

	// DurationMicros is non-negative; 0 if unknown, or if the
	// duration-safety check (spec.md §4.2 step 4) zeroed it out.
	DurationMicros int64

	// SampleRate and Channels are 0 if no audio stream was selected.
	SampleRate int
	Channels   int

	// Width and Height are 0 if no video stream was selected.
	Width  int
	Height int

	// FrameRate is 0 if unknown, or if DurationMicros is at most one
	// inter-frame interval (degenerate media: at most one frame).
	FrameRate float64

	// HWDeviceType is the selected hardware acceleration type, or
	// hwaccel.None if software decoding is in use.
	HWDeviceType hwaccel.DeviceType

	// VideoBufferCapacity is the exact number of bytes a caller must
	// provide to decodeVideo to receive one fully converted frame,
	// including the codec library's input-buffer padding constant.
	VideoBufferCapacity int
}
