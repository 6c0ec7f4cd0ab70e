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

// Package bridge is the process-wide handle-table front door described in
// spec.md §6: every Decoder and Sampler instance is addressed by an
// opaque int64 handle instead of a pointer, and every operation returns
// one of four typed errors so a foreign caller (CGO, a JNI shim, an RPC
// transport) can map failures onto its own exception hierarchy without
// inspecting Go error strings.
//
// Grounded on original_source/jni/jnidecoder/src/decoder_NativeDecoder.cpp's
// handle table (std::unordered_map<jlong, std::shared_ptr<Decoder>>) and
// its handleException boundary, translated from a JNI throw into Go
// wrapped errors.
package bridge

import "fmt"

// DecoderError wraps a failure from internal/avcore/decoder.
type DecoderError struct{ err error }

func (e *DecoderError) Error() string { return fmt.Sprintf("decoder: %v", e.err) }
func (e *DecoderError) Unwrap() error { return e.err }

func newDecoderError(err error) error {
	if err == nil {
		return nil
	}
	return &DecoderError{err: err}
}

// HardwareAccelerationError wraps a hardware-acceleration failure reported
// by internal/avcore/decoder (its HardwareAccelerationError).
type HardwareAccelerationError struct{ err error }

func (e *HardwareAccelerationError) Error() string { return fmt.Sprintf("hardware acceleration: %v", e.err) }
func (e *HardwareAccelerationError) Unwrap() error  { return e.err }

func newHardwareAccelerationError(err error) error {
	if err == nil {
		return nil
	}
	return &HardwareAccelerationError{err: err}
}

// SamplerError wraps a failure from internal/avcore/sampler.
type SamplerError struct{ err error }

func (e *SamplerError) Error() string { return fmt.Sprintf("sampler: %v", e.err) }
func (e *SamplerError) Unwrap() error { return e.err }

func newSamplerError(err error) error {
	if err == nil {
		return nil
	}
	return &SamplerError{err: err}
}

// RuntimeError wraps every other bridge-level failure: invalid handles,
// uninitialized bridge state, bad arguments.
type RuntimeError struct{ err error }

func (e *RuntimeError) Error() string { return fmt.Sprintf("runtime: %v", e.err) }
func (e *RuntimeError) Unwrap() error { return e.err }

func newRuntimeError(format string, args ...any) error {
	return &RuntimeError{err: fmt.Errorf(format, args...)}
}
