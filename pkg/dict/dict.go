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

// Package dict implements the two-table incrementally-rehashed hash
// dictionary mapping fingerprints to cache entries.
package dict

import (
	"nuster-engine/pkg/arena"
)

const initialTableSize = 16
const loadFactorTrigger = 0.75

type table struct {
	buckets []*Entry
}

func newTable(size int) table {
	return table{buckets: make([]*Entry, size)}
}

func (t *table) index(hash uint64) int {
	return int(hash & uint64(len(t.buckets)-1))
}

// Options configures a Dict.
type Options struct {
	Arena    *arena.Arena
	Lock     arena.LockKind
	InitSize int
}

// Dict is the two-table incremental-rehash dictionary. Only tables[0] is
// served when rehashIdx == -1; otherwise buckets [0, rehashIdx) of
// tables[0] are empty (already migrated) and tables[1] receives both
// migrated chains and new inserts.
type Dict struct {
	mu        arena.Locker
	arena     *arena.Arena
	tables    [2]table
	rehashIdx int64
	size      int64
	used      int64
}

// New creates an empty dict backed by a.
func New(opts Options) *Dict {
	size := opts.InitSize
	if size <= 0 {
		size = initialTableSize
	}
	size = nextPow2(size)
	d := &Dict{
		arena:     opts.Arena,
		tables:    [2]table{newTable(size), {}},
		rehashIdx: -1,
		size:      int64(size),
	}
	d.mu = arena.NewLocker(opts.Lock)
	return d
}

func nextPow2(x int) int {
	p := 1
	for p < x {
		p <<= 1
	}
	return p
}

func (d *Dict) rehashing() bool { return d.rehashIdx != -1 }

// Get probes both tables (if a rehash is in progress) for a full key
// match on (hash, key bytes). It never mutates dict state.
func (d *Dict) Get(hash uint64, key []byte) (*Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getLocked(hash, key)
}

func (d *Dict) getLocked(hash uint64, key []byte) (*Entry, bool) {
	if e := scanBucket(&d.tables[0], hash, key, d.arena); e != nil {
		return e, true
	}
	if d.rehashing() {
		if e := scanBucket(&d.tables[1], hash, key, d.arena); e != nil {
			return e, true
		}
	}
	return nil, false
}

func scanBucket(t *table, hash uint64, key []byte, a *arena.Arena) *Entry {
	if len(t.buckets) == 0 {
		return nil
	}
	for e := t.buckets[t.index(hash)]; e != nil; e = e.next {
		if e.Hash == hash && bytesEqual(e.Key(a), key) {
			return e
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Set allocates and links a new Entry for (hash, key) in state CREATING.
// The caller is expected to be the sole writer for this key until the
// entry transitions to VALID or INVALID — callers must already hold a
// miss verdict from Get under the same critical section in the engine,
// or accept the race (the engine package uses CreateIfAbsent, not Set,
// for CREATE; Set itself only guarantees structural safety of the
// bucket chains).
func (d *Dict) Set(hash uint64, key []byte, now int64, ttl int64) (*Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insertLocked(hash, key, now, ttl)
}

// CreateIfAbsent atomically resolves the at-most-one-writer invariant
// for (hash, key): under a single critical section it checks for a
// live occupant (CREATING, or VALID and not yet expired) and, finding
// none, inserts a fresh CREATING entry in its place. created reports
// which case happened; when false, entry is the existing occupant and
// the caller must not treat itself as that key's writer (it lost the
// race and should fall back to WAIT/BYPASS rather than calling Set and
// leaving two entries live for the same key).
func (d *Dict) CreateIfAbsent(hash uint64, key []byte, now int64, ttl int64) (entry *Entry, created bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.getLocked(hash, key); ok {
		if e.State == Creating || (e.State == Valid && !e.ExpiredAt(now)) {
			return e, false, nil
		}
	}

	e, err := d.insertLocked(hash, key, now, ttl)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// insertLocked allocates and links a new CREATING entry for (hash, key).
// Callers must already hold d.mu.
func (d *Dict) insertLocked(hash uint64, key []byte, now int64, ttl int64) (*Entry, error) {
	e := &Entry{
		State: Creating,
		Hash:  hash,
		CTime: now,
		ATime: now,
	}
	if ttl > 0 {
		e.Expire = now + ttl
	}
	if err := e.SetKey(d.arena, key); err != nil {
		return nil, err
	}

	t := &d.tables[0]
	if d.rehashing() {
		t = &d.tables[1]
	}
	idx := t.index(hash)
	e.next = t.buckets[idx]
	t.buckets[idx] = e
	d.used++

	if !d.rehashing() && float64(d.used) > float64(d.size)*loadFactorTrigger {
		d.startRehash()
	}
	return e, nil
}

// SetFromDisk inserts a pre-populated Entry recovered from the on-disk
// loader directly, bypassing allocation of new key bytes (the caller
// already built e via Entry.SetKey while decoding the file).
func (d *Dict) SetFromDisk(e *Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := &d.tables[0]
	if d.rehashing() {
		t = &d.tables[1]
	}
	idx := t.index(e.Hash)
	e.next = t.buckets[idx]
	t.buckets[idx] = e
	d.used++

	if !d.rehashing() && float64(d.used) > float64(d.size)*loadFactorTrigger {
		d.startRehash()
	}
}

func (d *Dict) startRehash() {
	newSize := len(d.tables[0].buckets) * 2
	d.tables[1] = newTable(newSize)
	d.rehashIdx = 0
}

// Rehash migrates at most quota buckets from tables[0] into tables[1].
// On completion it swaps tables and resets rehashIdx to -1.
func (d *Dict) Rehash(quota int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.rehashing() {
		return
	}
	src := &d.tables[0]
	dst := &d.tables[1]
	n := len(src.buckets)
	migrated := 0
	for migrated < quota && int(d.rehashIdx) < n {
		idx := int(d.rehashIdx)
		e := src.buckets[idx]
		src.buckets[idx] = nil
		for e != nil {
			next := e.next
			di := dst.index(e.Hash)
			e.next = dst.buckets[di]
			dst.buckets[di] = e
			e = next
		}
		d.rehashIdx++
		migrated++
	}
	if int(d.rehashIdx) >= n {
		d.tables[0] = d.tables[1]
		d.tables[1] = table{}
		d.rehashIdx = -1
		d.size = int64(len(d.tables[0].buckets))
	}
}

// Cleanup scans at most quota buckets (across whichever tables are
// live) and unlinks any entry that is INVALID, or EXPIRED with no data
// clients attached. Returns the number of entries removed. Removed
// entries have their key bytes released to the arena and their Data (if
// any) marked invalid, so the data chain's own cleaner reclaims it once
// its last reader detaches.
func (d *Dict) Cleanup(quota int, now int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	scanned := 0
	for ti := range d.tables {
		t := &d.tables[ti]
		for bi := range t.buckets {
			if scanned >= quota {
				return removed
			}
			scanned++
			var prev *Entry
			e := t.buckets[bi]
			for e != nil {
				dead := e.State == Invalid
				if !dead && e.ExpiredAt(now) {
					if e.Data == nil || e.Data.Clients() == 0 {
						dead = true
					}
				}
				if dead {
					if e.Data != nil {
						e.Data.Invalidate()
					}
					next := e.next
					if prev == nil {
						t.buckets[bi] = next
					} else {
						prev.next = next
					}
					e.ReleaseKey(d.arena)
					d.used--
					removed++
					e = next
					continue
				}
				prev = e
				e = e.next
			}
		}
	}
	return removed
}

// Size reports the number of live entries.
func (d *Dict) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}

// ForEach visits every live entry under the dict lock. visit must not
// retain e beyond the call or mutate bucket-chain linkage; it may
// freely read or update entry fields. Used by housekeeping to build the
// data-chain ownership set ahead of a data cleanup tick, and by the
// disk saver/cleaner to find ASYNC/expired candidates.
func (d *Dict) ForEach(visit func(e *Entry)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ti := range d.tables {
		for _, head := range d.tables[ti].buckets {
			for e := head; e != nil; e = e.next {
				visit(e)
			}
		}
	}
}

// Invalidate marks the entry for key as INVALID under the dict lock, so
// any concurrent Get happens-after this Invalidate observes INVALID
// (spec.md's "purge happens-before miss" ordering).
func (d *Dict) Invalidate(hash uint64, key []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.getLocked(hash, key)
	if !ok {
		return false
	}
	e.State = Invalid
	return true
}

// InvalidateByRule marks every entry belonging to ruleUUID as INVALID.
// Used by the purge-by-rule-name operation.
func (d *Dict) InvalidateByRule(ruleUUID int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for ti := range d.tables {
		for _, head := range d.tables[ti].buckets {
			for e := head; e != nil; e = e.next {
				if e.RuleUUID == ruleUUID && e.State == Valid {
					e.State = Invalid
					count++
				}
			}
		}
	}
	return count
}
