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

// Package datachain holds cached response bodies as chains of
// arena-backed byte chunks, linked into one process-global circular
// ring so a single cleaner sweep can reclaim every orphaned body.
package datachain

import (
	"sync/atomic"

	"nuster-engine/pkg/arena"
)

// Element is one contiguous byte run owned by exactly the Data that
// introduced it.
type Element struct {
	handle arena.Handle
	length int
	next   *Element
}

// Info carries the response metadata that rides alongside a body.
type Info struct {
	ContentType      string
	TransferEncoding string
	ContentLength    int64
	Chunked          bool
}

// Data is one cached response body: a singly-linked list of Elements
// plus a reader refcount. An Element's bytes are owned by the Data that
// introduced it; freeing a Data frees all its Elements. A Data with
// clients > 0 is never freed even if marked invalid.
type Data struct {
	clients atomic.Int32
	invalid atomic.Bool

	head *Element
	tail *Element

	Info Info

	next *Data // ring link, guarded by Chain.mu
}

// Attach increments the reader refcount. Call when a context begins
// streaming this Data to a client.
func (d *Data) Attach() { d.clients.Add(1) }

// Detach decrements the reader refcount. Call on client disconnect or
// stream completion.
func (d *Data) Detach() { d.clients.Add(-1) }

// Clients reports the current reader refcount.
func (d *Data) Clients() int32 { return d.clients.Load() }

// Invalidate marks the Data as no longer authoritative. Existing
// readers finish their current chain and then see EOF; the cleaner
// reclaims it once Clients() reaches zero.
func (d *Data) Invalidate() { d.invalid.Store(true) }

// Invalid reports whether the body has been marked invalid.
func (d *Data) Invalid() bool { return d.invalid.Load() }

// Elements walks the chain from head, yielding each element's bytes in
// order. The arena is needed to resolve handles to bytes.
func (d *Data) Elements(a *arena.Arena, yield func([]byte) bool) {
	for e := d.head; e != nil; e = e.next {
		if !yield(a.Bytes(e.handle)[:e.length]) {
			return
		}
	}
}

// Chain is the process-global circular list of Data bodies, plus the
// arena they draw element storage from and the lock guarding ring
// structure mutation (append/free/link). A single writer owns the
// active chain during CREATE; appended Elements become visible to new
// readers only once the owning dict Entry transitions to VALID, which
// happens above this package under the dict/arena lock.
type Chain struct {
	arena *arena.Arena
	mu    arena.Locker

	tail *Data // ring tail; tail.next is head
	size int64
}

// New builds an empty ring drawing element storage from a.
func New(a *arena.Arena, lock arena.LockKind) *Chain {
	return &Chain{arena: a, mu: arena.NewLocker(lock)}
}

// NewData allocates a fresh Data and links it into the ring.
func (c *Chain) NewData() *Data {
	d := &Data{}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tail == nil {
		d.next = d
		c.tail = d
	} else {
		d.next = c.tail.next
		c.tail.next = d
		c.tail = d
	}
	c.size++
	return d
}

// Append copies payload into a fresh Element drawn from the arena and
// links it onto d's tail. Call only from the single writer that owns d
// during CREATE.
func (c *Chain) Append(d *Data, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	h, err := c.arena.Alloc(len(payload))
	if err != nil {
		return err
	}
	if !h.Valid() {
		return arena.ErrFull
	}
	copy(c.arena.Bytes(h), payload)
	e := &Element{handle: h, length: len(payload)}
	if d.tail == nil {
		d.head = e
		d.tail = e
	} else {
		d.tail.next = e
		d.tail = e
	}
	return nil
}

// freeElements releases every Element of d back to the arena. Callers must
// ensure d.Clients() == 0 before calling.
func (c *Chain) freeElements(d *Data) {
	for e := d.head; e != nil; {
		next := e.next
		c.arena.Free(e.handle)
		e = next
	}
	d.head, d.tail = nil, nil
}

// Cleanup walks at most quota ring entries starting after the last scan
// position, freeing any Data that is invalid (or whose owner is gone,
// signaled by the caller via stillOwned returning false) and has no
// attached clients. Returns the number of Data bodies freed.
//
// stillOwned lets the dict tell the chain "no Entry points at this Data
// anymore" without the chain needing to know about dict Entries itself.
func (c *Chain) Cleanup(quota int, stillOwned func(d *Data) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tail == nil {
		return 0
	}
	freed := 0
	scanned := 0
	prev := c.tail
	cur := c.tail.next // ring head
	for scanned < quota {
		scanned++
		next := cur.next
		reclaim := cur.Clients() == 0 && (cur.Invalid() || (stillOwned != nil && !stillOwned(cur)))
		if reclaim {
			c.freeElements(cur)
			c.size--
			if cur == next {
				// last element in the ring
				c.tail = nil
				return freed + 1
			}
			prev.next = next
			if cur == c.tail {
				c.tail = prev
			}
			freed++
			cur = next
			continue
		}
		prev = cur
		cur = next
		if cur == c.tail.next {
			break
		}
	}
	// Resume the next scan at the first entry this one did not reach.
	c.tail = prev
	return freed
}

// Size reports the number of Data bodies currently in the ring.
func (c *Chain) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
