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

// Package hwaccel implements the process-wide hardware-acceleration device
// registry described in spec.md §4.1: one shared, reference-counted device
// context per hardware type, so that multiple decoders requesting the same
// type reuse a single underlying context.
//
// Grounded on original_source/core/src/main/cpp/src/decoder/hwaccel.cpp
// (av_hwdevice_iterate_types / av_hwdevice_ctx_create / av_buffer_ref /
// av_buffer_unref) and on the teacher's existing dependency on
// github.com/asticode/go-astiav for every other FFmpeg primitive.
package hwaccel

import (
	"fmt"
	"sync"

	astiav "github.com/asticode/go-astiav"

	"github.com/numq/klarity-go/internal/avlog"
)

// DeviceType mirrors the underlying FFmpeg hardware-device-type enum value,
// per spec.md §6 ("Tag values are the underlying library's enum values.").
type DeviceType int

// None is the absence of hardware acceleration; it is never present in
// ListAvailable's result (spec.md §4.1).
const None DeviceType = DeviceType(astiav.HardwareDeviceTypeNone)

func fromAstiav(t astiav.HardwareDeviceType) DeviceType { return DeviceType(t) }
func (t DeviceType) toAstiav() astiav.HardwareDeviceType { return astiav.HardwareDeviceType(t) }

// String names the device type the way astiav does, for logging.
func (t DeviceType) String() string {
	return t.toAstiav().String()
}

type entry struct {
	ctx  *astiav.HardwareDeviceContext
	refs int
}

// Registry is the process-wide hardware device cache. The zero value is not
// usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	entries map[DeviceType]*entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[DeviceType]*entry)}
}

// ListAvailable enumerates, under a shared lock, every hardware device type
// the underlying library can create. Never includes None.
func (r *Registry) ListAvailable() []DeviceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []DeviceType
	for _, t := range astiav.HardwareDeviceTypes() {
		if t == astiav.HardwareDeviceTypeNone {
			continue
		}
		out = append(out, fromAstiav(t))
	}
	return out
}

// Ref is a reference to a shared hardware device context. Callers must
// Release it exactly once.
type Ref struct {
	Type DeviceType
	ctx  *astiav.HardwareDeviceContext
}

// Context returns the underlying astiav hardware device context to wire
// into a CodecContext.
func (r *Ref) Context() *astiav.HardwareDeviceContext { return r.ctx }

// Request acquires a reference to the shared device context for t, creating
// it on first use. Returns (nil, nil) for None (the decoder caller treats
// this as "no hardware acceleration available for this candidate").
func (reg *Registry) Request(t DeviceType) (*Ref, error) {
	if t == None {
		return nil, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if e, ok := reg.entries[t]; ok {
		e.refs++
		return &Ref{Type: t, ctx: e.ctx}, nil
	}

	ctx, err := astiav.AllocHardwareDeviceContext(t.toAstiav())
	if err != nil || ctx == nil {
		return nil, fmt.Errorf("hwaccel: create device context for %s: %w", t, err)
	}

	reg.entries[t] = &entry{ctx: ctx, refs: 1}

	avlog.Printf("hwaccel: created shared device context for %s", t)

	return &Ref{Type: t, ctx: ctx}, nil
}

// Release drops a reference previously obtained from Request. Releasing one
// reference never invalidates another decoder's usage of the same context;
// the underlying context is freed only when the last reference drops.
func (reg *Registry) Release(ref *Ref) {
	if ref == nil {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	e, ok := reg.entries[ref.Type]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		e.ctx.Free()
		delete(reg.entries, ref.Type)
	}
}

// CleanUp clears the map under an exclusive lock. Terminal: call only at
// process shutdown.
func (reg *Registry) CleanUp() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for t, e := range reg.entries {
		e.ctx.Free()
		delete(reg.entries, t)
	}
}
