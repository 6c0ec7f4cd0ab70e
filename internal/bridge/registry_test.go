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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHandleTableInsertGet(t *testing.T) {
	ht := newHandleTable[string]()

	h1 := ht.insert("a")
	h2 := ht.insert("b")
	assert.NotEqual(t, h1, h2)

	v, ok := ht.get(h1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = ht.get(h2)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestHandleTableGetMissing(t *testing.T) {
	ht := newHandleTable[int]()
	_, ok := ht.get(999)
	assert.False(t, ok)
}

func TestHandleTableRemove(t *testing.T) {
	ht := newHandleTable[int]()
	h := ht.insert(42)

	v, ok := ht.remove(h)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = ht.get(h)
	assert.False(t, ok)

	_, ok = ht.remove(h)
	assert.False(t, ok)
}

func TestHandleTableClearDrainsAll(t *testing.T) {
	ht := newHandleTable[int]()
	ht.insert(1)
	ht.insert(2)
	ht.insert(3)

	got := ht.clear()
	assert.Len(t, got, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, got)

	assert.Empty(t, ht.clear())
	_, ok := ht.get(1)
	assert.False(t, ok)
}

func TestHandleTableHandlesAreUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ht := newHandleTable[int]()
		n := rapid.IntRange(0, 50).Draw(t, "n")

		seen := make(map[int64]bool, n)
		for i := 0; i < n; i++ {
			h := ht.insert(i)
			assert.False(t, seen[h], "handle %d reused", h)
			seen[h] = true
		}
	})
}

func TestHandleTableConcurrentInsert(t *testing.T) {
	ht := newHandleTable[int]()

	var wg sync.WaitGroup
	const goroutines = 16
	const perGoroutine = 50

	handles := make(chan int64, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				handles <- ht.insert(base*perGoroutine + i)
			}
		}(g)
	}
	wg.Wait()
	close(handles)

	seen := make(map[int64]bool)
	for h := range handles {
		assert.False(t, seen[h])
		seen[h] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)
}
