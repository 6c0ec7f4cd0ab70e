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

// Package avconfig holds the engine-wide settings document: probing limits,
// thread-count overrides, and the fine-seek iteration cap. Only ThreadCount
// and ProbeSize are passed on to the decoder (by cmd/klarityctl); the other
// fields are loaded and saved but nothing in this module reads them. Grounded on
// e1z0-QAnotherRTSP/src/config.go's AppConfig load/save pair (YAML via
// gopkg.in/yaml.v2, atomic tmp-then-rename writes).
package avconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
)

// EngineConfig is the top-level settings document.
type EngineConfig struct {
	// ThreadCount overrides the per-codec-context thread count. 0 means
	// use the engine default (2, per the original's THREAD_COUNT).
	ThreadCount int `yaml:"thread_count,omitempty"`

	// ProbeSize overrides FFmpeg's stream-probing byte budget. 0 means
	// use the library default.
	ProbeSize int64 `yaml:"probe_size,omitempty"`

	// AnalyzeDurationMicros is a stream-analysis duration budget. It is
	// stored and round-tripped only; the decoder does not read it.
	AnalyzeDurationMicros int64 `yaml:"analyze_duration_micros,omitempty"`

	// MaxFineSeekIterations is a cap for the fine-seek packet-read loop.
	// It is stored and round-tripped only; internal/avcore/decoder always
	// uses its formula-derived cap.
	MaxFineSeekIterations int `yaml:"max_fine_seek_iterations,omitempty"`

	// HardwareAccelerationCandidates lists device-type names (matching
	// the underlying library's names, e.g. "videotoolbox", "vaapi",
	// "cuda"). It is stored and round-tripped only; cmd/klarityctl's
	// -hwaccel flag takes its candidates from the registry's enumeration.
	HardwareAccelerationCandidates []string `yaml:"hardware_acceleration_candidates,omitempty"`
}

var (
	mu      sync.Mutex
	current EngineConfig
	path    string
)

// Load reads an EngineConfig from path, storing both the parsed config and
// the path for a later Save. A missing file is not an error; it yields the
// zero-value config.
func Load(configPath string) (EngineConfig, error) {
	mu.Lock()
	defer mu.Unlock()

	path = configPath

	b, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		current = EngineConfig{}
		return current, nil
	}
	if err != nil {
		return EngineConfig{}, fmt.Errorf("avconfig: read %s: %w", configPath, err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("avconfig: unmarshal %s: %w", configPath, err)
	}

	current = cfg
	return current, nil
}

// Current returns the most recently loaded (or saved) config.
func Current() EngineConfig {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Save writes cfg to the path given to the last Load call, atomically
// (write to a .tmp sibling, then rename over the target).
func Save(cfg EngineConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		return fmt.Errorf("avconfig: Save called before Load")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("avconfig: mkdir %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("avconfig: create %s: %w", tmp, err)
	}

	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("avconfig: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("avconfig: encode close: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("avconfig: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("avconfig: rename %s -> %s: %w", tmp, path, err)
	}

	current = cfg
	return nil
}
