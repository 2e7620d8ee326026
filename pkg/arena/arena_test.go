// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package arena

import (
	"math/rand"
	"testing"
)

func TestArena_AllocFreeRoundTrip(t *testing.T) {
	a := New(Options{Size: 64 * 1024, BlockSize: 4096, ChunkMin: 32})

	h, err := a.Alloc(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Valid() {
		t.Fatalf("expected a valid handle")
	}
	before := a.UsedBytes()
	if before == 0 {
		t.Fatalf("expected non-zero used bytes after alloc")
	}

	buf := a.Bytes(h)
	for i := range buf {
		buf[i] = byte(i)
	}

	a.Free(h)
	if a.UsedBytes() != 0 {
		t.Fatalf("expected used bytes to return to 0 after free, got %d", a.UsedBytes())
	}
}

func TestArena_OversizeRejected(t *testing.T) {
	a := New(Options{Size: 64 * 1024, BlockSize: 4096, ChunkMin: 32})
	if _, err := a.Alloc(5000); err != ErrOversize {
		t.Fatalf("expected ErrOversize, got %v", err)
	}
}

func TestArena_ExhaustionReturnsInvalidHandle(t *testing.T) {
	a := New(Options{Size: 4096, BlockSize: 4096, ChunkMin: 4096})
	h1, err := a.Alloc(100)
	if err != nil || !h1.Valid() {
		t.Fatalf("first alloc should succeed: %v", err)
	}
	h2, err := a.Alloc(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h2.Valid() {
		t.Fatalf("expected arena exhaustion to yield an invalid handle")
	}
}

// TestArena_RandomAllocFreeConserveCapacity drives random-sized alloc/free
// sequences and checks the invariant that used bytes never exceeds the
// arena's capacity and returns to exactly zero once every handle is freed
// — spec.md's "sum(allocated)+sum(free) == usable_capacity" property.
func TestArena_RandomAllocFreeConserveCapacity(t *testing.T) {
	a := New(Options{Size: 256 * 1024, BlockSize: 4096, ChunkMin: 32})
	rng := rand.New(rand.NewSource(42))

	var live []Handle
	for i := 0; i < 5000; i++ {
		if len(live) == 0 || rng.Intn(2) == 0 {
			size := 1 + rng.Intn(4096)
			h, err := a.Alloc(size)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Valid() {
				live = append(live, h)
			}
			if a.UsedBytes() > a.Capacity() {
				t.Fatalf("used bytes %d exceeded capacity %d", a.UsedBytes(), a.Capacity())
			}
		} else {
			idx := rng.Intn(len(live))
			a.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, h := range live {
		a.Free(h)
	}
	if a.UsedBytes() != 0 {
		t.Fatalf("expected 0 used bytes after freeing everything, got %d", a.UsedBytes())
	}
}

func TestArena_DoubleFreeIsNoop(t *testing.T) {
	a := New(Options{Size: 64 * 1024, BlockSize: 4096, ChunkMin: 32})
	h, _ := a.Alloc(64)
	a.Free(h)
	used := a.UsedBytes()
	a.Free(h) // double free: must not go negative or panic
	if a.UsedBytes() != used {
		t.Fatalf("double free changed used bytes: %d -> %d", used, a.UsedBytes())
	}
}

func TestArena_FutexLockSelectable(t *testing.T) {
	a := New(Options{Size: 64 * 1024, BlockSize: 4096, ChunkMin: 32, Lock: LockFutex})
	h, err := a.Alloc(16)
	if err != nil || !h.Valid() {
		t.Fatalf("alloc under futex lock failed: %v", err)
	}
	a.Free(h)
}
