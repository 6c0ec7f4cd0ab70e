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
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/numq/klarity-go/internal/avcore/hwaccel"
	"github.com/numq/klarity-go/internal/avlog"
)

var (
	initOnce   sync.Once
	initErr    error
	hwRegistry *hwaccel.Registry
)

// Init prepares process-wide state: the shared hardware-acceleration
// registry and the PortAudio library. Safe to call more than once; only
// the first call does anything. Mirrors JNI_OnLoad's one-time global
// setup.
func Init() error {
	initOnce.Do(func() {
		hwRegistry = hwaccel.New()
		if err := portaudio.Initialize(); err != nil {
			initErr = newRuntimeError("portaudio.Initialize: %w", err)
			return
		}
		avlog.Printf("bridge: initialized")
	})
	return initErr
}

// Shutdown releases every live decoder and sampler, the shared hardware
// registry, and the PortAudio library. Mirrors JNI_OnUnload's teardown.
// Terminal: call only at process exit.
func Shutdown() error {
	for _, d := range decoders.clear() {
		_ = d.Close()
	}
	for _, s := range samplers.clear() {
		_ = s.Close()
	}
	if hwRegistry != nil {
		hwRegistry.CleanUp()
	}
	if err := portaudio.Terminate(); err != nil {
		return newRuntimeError("portaudio.Terminate: %w", err)
	}
	avlog.Printf("bridge: shut down")
	return nil
}

// ListHwAccelerations enumerates every hardware acceleration device type
// the underlying library can create on this machine.
func ListHwAccelerations() ([]hwaccel.DeviceType, error) {
	if hwRegistry == nil {
		return nil, newRuntimeError("bridge not initialized")
	}
	return hwRegistry.ListAvailable(), nil
}

// Allocate returns a zeroed byte buffer of the requested size, for a
// caller that needs to pre-size a buffer for DecodeVideo before it has a
// Go-side slice of its own (e.g. a CGO boundary marshaling into a
// caller-owned region).
func Allocate(size int) ([]byte, error) {
	if size <= 0 {
		return nil, newRuntimeError("invalid allocation size %d", size)
	}
	return make([]byte, size), nil
}

// Free is a no-op placeholder: Go-side buffers are garbage collected.
// Present for symmetry with Allocate and with the original's
// explicit-free boundary, so foreign callers have one call to make
// regardless of which side owns the buffer's lifetime.
func Free(_ []byte) error {
	return nil
}
