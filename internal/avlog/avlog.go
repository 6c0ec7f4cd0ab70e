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

// Package avlog provides the process-wide logger shared by every avcore
// package, grounded on the teacher's own stdlib-log setup (src/config.go's
// initlog()).
package avlog

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	mu     sync.Mutex
	logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// Init points the shared logger at stderr plus, if dir is non-empty, a
// debug.log file under dir. Safe to call multiple times; later calls replace
// the output.
func Init(dir string, alsoStdout bool) error {
	mu.Lock()
	defer mu.Unlock()

	writers := []io.Writer{os.Stderr}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(dir, "debug.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	if alsoStdout {
		writers = append(writers, os.Stdout)
	}

	logger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Printf logs a formatted message through the shared logger.
func Printf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	l.Printf(format, args...)
}

// Warnf logs a warning-tagged message. The core has no leveled logger (the
// teacher never needed one beyond plain log.Printf); a "warn:" prefix is
// enough to grep for the one warning case the spec calls out (hw accel
// negotiation downgrade, §9 open question 2).
func Warnf(format string, args ...any) {
	Printf("warn: "+format, args...)
}
