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

package dict

import (
	"fmt"
	"math/rand"
	"testing"

	"nuster-engine/pkg/arena"
)

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	return arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
}

func TestDict_SetGetRoundTrip(t *testing.T) {
	a := newTestArena(t)
	d := New(Options{Arena: a, Lock: arena.LockMutex})

	key := []byte("/a/b/c")
	hash := uint64(123)
	e, err := d.Set(hash, key, 1000, 0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	e.State = Valid

	got, ok := d.Get(hash, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if got != e {
		t.Fatal("expected same entry pointer")
	}

	if _, ok := d.Get(hash, []byte("/other")); ok {
		t.Fatal("expected miss on different key with colliding hash bucket")
	}
}

func TestDict_RehashPreservesAllKeys(t *testing.T) {
	a := newTestArena(t)
	d := New(Options{Arena: a, Lock: arena.LockMutex, InitSize: 4})

	const n = 200
	keys := make([][]byte, n)
	hashes := make([]uint64, n)
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		keys[i] = k
		hashes[i] = rand.Uint64()
		if _, err := d.Set(hashes[i], k, 1, 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
		// Drive the rehash forward a little on every insert, mimicking
		// a housekeeping tick interleaved with traffic.
		d.Rehash(1)
	}
	for d.rehashing() {
		d.Rehash(4)
	}

	for i := 0; i < n; i++ {
		if _, ok := d.Get(hashes[i], keys[i]); !ok {
			t.Fatalf("key %d missing after rehash completed", i)
		}
	}
}

func TestDict_CleanupRemovesInvalidAndExpired(t *testing.T) {
	a := newTestArena(t)
	d := New(Options{Arena: a, Lock: arena.LockMutex})

	e1, _ := d.Set(1, []byte("k1"), 100, 0)
	e1.State = Invalid

	e2, _ := d.Set(2, []byte("k2"), 100, 10)
	e2.State = Valid // expires at 110

	e3, _ := d.Set(3, []byte("k3"), 100, 0)
	e3.State = Valid

	removed := d.Cleanup(1000, 200)
	if removed != 2 {
		t.Fatalf("expected 2 removed (invalid + expired), got %d", removed)
	}
	if _, ok := d.Get(1, []byte("k1")); ok {
		t.Fatal("invalid entry should be gone")
	}
	if _, ok := d.Get(2, []byte("k2")); ok {
		t.Fatal("expired entry should be gone")
	}
	if _, ok := d.Get(3, []byte("k3")); !ok {
		t.Fatal("live entry should remain")
	}
}

func TestDict_InvalidateHappensBeforeMiss(t *testing.T) {
	a := newTestArena(t)
	d := New(Options{Arena: a, Lock: arena.LockMutex})

	e, _ := d.Set(9, []byte("purge-me"), 1, 0)
	e.State = Valid

	if !d.Invalidate(9, []byte("purge-me")) {
		t.Fatal("expected invalidate to find the entry")
	}
	got, ok := d.Get(9, []byte("purge-me"))
	if !ok || got.State != Invalid {
		t.Fatalf("expected subsequent lookup to observe invalid state, got ok=%v state=%v", ok, got)
	}
}

func TestDict_CreateIfAbsentRejectsSecondWriter(t *testing.T) {
	a := newTestArena(t)
	d := New(Options{Arena: a, Lock: arena.LockMutex})

	key := []byte("/a")
	hash := uint64(55)

	e1, created, err := d.CreateIfAbsent(hash, key, 1, 10)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create a new entry")
	}

	e2, created, err := d.CreateIfAbsent(hash, key, 1, 10)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if created {
		t.Fatal("expected second call to observe the CREATING entry and not insert another")
	}
	if e2 != e1 {
		t.Fatal("expected the existing CREATING entry back, not a new one")
	}
	if d.Size() != 1 {
		t.Fatalf("expected exactly one entry in the dict, got %d", d.Size())
	}

	e1.State = Valid
	e3, created, err := d.CreateIfAbsent(hash, key, 2, 10)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if created || e3 != e1 {
		t.Fatal("expected an unexpired VALID entry to also block a new writer")
	}

	e1.State = Invalid
	e4, created, err := d.CreateIfAbsent(hash, key, 3, 10)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created || e4 == e1 {
		t.Fatal("expected an INVALID entry to be replaceable by a new writer")
	}
}

func TestShardedDict_DistributesAndRoundTrips(t *testing.T) {
	a := newTestArena(t)
	sd := NewSharded(4, Options{Arena: a, Lock: arena.LockMutex})

	const n = 500
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k-%d", i))
		h := uint64(i) * 2654435761
		if _, err := sd.Set(h, k, 1, 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if sd.Size() != n {
		t.Fatalf("expected %d entries total, got %d", n, sd.Size())
	}
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k-%d", i))
		h := uint64(i) * 2654435761
		if _, ok := sd.Get(h, k); !ok {
			t.Fatalf("missing key %d", i)
		}
	}
}
