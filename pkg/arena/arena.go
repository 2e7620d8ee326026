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
	"errors"
	"sync/atomic"
)

// Sizing bounds, matching the clamp range spec'd for the slab arena.
const (
	MinBlockSize = 4 * 1024        // 4 KiB
	MaxBlockSize = 1 * 1024 * 1024 // 1 MiB
	MinChunkSize = 32
)

// ErrOversize is returned by Alloc when size exceeds the arena's block size.
var ErrOversize = errors.New("arena: allocation exceeds block size")

// ErrFull is returned by callers wrapping Alloc once they observe it
// came back with the zero Handle (Alloc itself reports exhaustion as
// (Handle{}, nil); every call site must check h.Valid() and translate
// that into an error rather than storing the invalid handle).
var ErrFull = errors.New("arena: exhausted")

// Handle is an opaque reference into arena-owned memory. It carries no
// raw pointer; all access goes back through the owning Arena, so a Handle
// outlives nothing once Free(h) is called and must not be reused.
type Handle struct {
	block int32
	class int8
	slot  int32
}

// Valid reports whether h refers to anything (the zero Handle is invalid,
// since block indices are offset by one so Handle{} can mean "nothing").
func (h Handle) Valid() bool { return h.block != 0 }

// block tracks one slab block: which size class it's carved into (or -1
// if unused), a freelist/empty/full membership via index-based intrusive
// lists (no raw pointers, per the arena's encapsulation contract), and a
// per-chunk-bit occupancy bitmap.
type block struct {
	class  int8 // -1: unused/empty
	prev   int32
	next   int32
	inList int8 // which list this block currently belongs to, for bookkeeping only
	bitmap []uint64
	used   int32 // number of occupied chunks in this block
}

const (
	listNone = iota
	listClass
	listEmpty
	listFull
)

// Arena is a fixed-capacity slab allocator: a byte region is partitioned
// into equal-size blocks, each block subdivided into equal chunks of one
// size class. Allocation rounds up to the smallest class able to hold the
// request; blocks migrate between a per-class partial list, an empty
// list and a full list as chunks come and go.
//
// All mutation happens under a single Locker (see lock.go): the arena's
// hot path is O(1) bitmap work, so a single lock beats per-class
// striping at this granularity (matching the source arena's rationale).
type Arena struct {
	mu Locker

	region    []byte
	blockSize int
	chunkMin  int
	numClass  int // chunk classes: chunkMin*2^0 .. blockSize

	blocks     []block
	classHead  []int32 // head index per class partial-list, -1 = empty
	emptyHead  int32
	fullHead   int32
	allocated  int32 // blocks carved out of the high-water mark so far
	maxBlocks  int32

	usedBytes atomic.Int64 // bytes currently handed out, for Stats
}

// Options configures arena construction.
type Options struct {
	// Size is the total arena capacity in bytes (clamped to a multiple
	// of BlockSize).
	Size int
	// BlockSize is clamped to [MinBlockSize, MaxBlockSize] and rounded
	// up to a power of two. Zero selects MinBlockSize.
	BlockSize int
	// ChunkMin is the smallest allocation granularity, rounded up to a
	// multiple of MinChunkSize. Zero selects MinChunkSize.
	ChunkMin int
	// Lock selects the shared-context lock implementation.
	Lock LockKind
}

// New builds an Arena honoring Options' sizing policy.
func New(opts Options) *Arena {
	blockSize := opts.BlockSize
	if blockSize < MinBlockSize {
		blockSize = MinBlockSize
	}
	if blockSize > MaxBlockSize {
		blockSize = MaxBlockSize
	}
	blockSize = nextPow2(blockSize)

	chunkMin := opts.ChunkMin
	if chunkMin < MinChunkSize {
		chunkMin = MinChunkSize
	}
	chunkMin = roundUp(chunkMin, MinChunkSize)
	if chunkMin > blockSize {
		chunkMin = blockSize
	}

	size := opts.Size
	if size < blockSize {
		size = blockSize
	}
	numBlocks := size / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}

	numClass := 0
	for c := chunkMin; c < blockSize; c <<= 1 {
		numClass++
	}
	numClass++ // final class == blockSize itself

	a := &Arena{
		mu:        NewLocker(opts.Lock),
		region:    make([]byte, numBlocks*blockSize),
		blockSize: blockSize,
		chunkMin:  chunkMin,
		numClass:  numClass,
		blocks:    make([]block, numBlocks),
		classHead: make([]int32, numClass),
		emptyHead: -1,
		fullHead:  -1,
		maxBlocks: int32(numBlocks),
	}
	for i := range a.classHead {
		a.classHead[i] = -1
	}
	for i := range a.blocks {
		a.blocks[i] = block{class: -1, prev: -1, next: -1}
	}
	return a
}

func (a *Arena) classSize(class int) int {
	return a.chunkMin << uint(class)
}

// classFor returns the smallest chunk class able to hold size bytes, or
// -1 if size exceeds the block size.
func (a *Arena) classFor(size int) int {
	if size <= 0 {
		size = 1
	}
	if size > a.blockSize {
		return -1
	}
	c := 0
	for a.classSize(c) < size {
		c++
	}
	return c
}

// Alloc reserves size bytes and returns a Handle, or ErrOversize if size
// exceeds the arena's block size, or (Handle{}, nil) — the zero, invalid
// Handle — if the arena is exhausted.
func (a *Arena) Alloc(size int) (Handle, error) {
	class := a.classFor(size)
	if class < 0 {
		return Handle{}, ErrOversize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	blockIdx := a.classHead[class]
	if blockIdx < 0 {
		blockIdx = a.popEmpty()
		if blockIdx < 0 {
			blockIdx = a.growFromHighWaterMark()
			if blockIdx < 0 {
				return Handle{}, nil
			}
		}
		a.initBlockForClass(blockIdx, class)
	}

	b := &a.blocks[blockIdx]
	slot := a.firstFreeBit(b, class)
	if slot < 0 {
		// Should not happen: a block only stays on the class list while
		// it has free chunks. Defensive: move to full and retry once.
		a.unlinkClass(blockIdx, class)
		a.pushFull(blockIdx)
		return a.Alloc(size)
	}
	a.setBit(b, slot)
	b.used++
	a.usedBytes.Add(int64(a.classSize(class)))

	bitsNeeded := a.blockSize / a.classSize(class)
	if int(b.used) == bitsNeeded {
		a.unlinkClass(blockIdx, class)
		a.pushFull(blockIdx)
	}

	return Handle{block: blockIdx + 1, class: int8(class), slot: int32(slot)}, nil
}

// Free releases a Handle previously returned by Alloc. Freeing an
// invalid Handle or double-freeing is a no-op (defensive; callers are
// expected to free exactly once).
func (a *Arena) Free(h Handle) {
	if h.block == 0 {
		return
	}
	blockIdx := h.block - 1
	class := int(h.class)

	a.mu.Lock()
	defer a.mu.Unlock()

	if blockIdx < 0 || int(blockIdx) >= len(a.blocks) {
		return
	}
	b := &a.blocks[blockIdx]
	if b.class != int8(class) {
		return // stale/double free against a recycled block
	}
	if !a.testBit(b, int(h.slot)) {
		return // double free
	}
	wasFull := a.isFull(b, class)
	a.clearBit(b, int(h.slot))
	b.used--
	a.usedBytes.Add(-int64(a.classSize(class)))

	if wasFull {
		a.unlinkFull(blockIdx)
		if class == a.numClass-1 {
			// Degenerate class: one block == one chunk. Freeing the
			// single chunk always returns the block straight to empty.
			a.pushEmpty(blockIdx)
			b.class = -1
			return
		}
		a.pushClass(blockIdx, class)
	}

	if b.used == 0 {
		a.unlinkClass(blockIdx, class)
		a.pushEmpty(blockIdx)
		b.class = -1
	}
}

// Bytes returns a byte slice view over the chunk backing h. The slice's
// length is the chunk's class size, not the originally requested size;
// callers that need the exact length must track it themselves (the Data
// Chain's Element does, via its own length field).
func (a *Arena) Bytes(h Handle) []byte {
	if h.block == 0 {
		return nil
	}
	blockIdx := int(h.block - 1)
	class := int(h.class)
	chunkSize := a.classSize(class)
	base := blockIdx*a.blockSize + int(h.slot)*chunkSize
	return a.region[base : base+chunkSize]
}

// UsedBytes reports bytes currently allocated out of the arena.
func (a *Arena) UsedBytes() int64 { return a.usedBytes.Load() }

// Capacity reports the arena's total usable byte capacity.
func (a *Arena) Capacity() int64 { return int64(len(a.region)) }

// --- internal bookkeeping: index-based intrusive lists ---

func (a *Arena) growFromHighWaterMark() int32 {
	if a.allocated >= a.maxBlocks {
		return -1
	}
	idx := a.allocated
	a.allocated++
	return idx
}

func (a *Arena) popEmpty() int32 {
	idx := a.emptyHead
	if idx < 0 {
		return -1
	}
	a.emptyHead = a.blocks[idx].next
	if a.emptyHead >= 0 {
		a.blocks[a.emptyHead].prev = -1
	}
	a.blocks[idx].prev, a.blocks[idx].next = -1, -1
	return idx
}

func (a *Arena) pushEmpty(idx int32) {
	a.blocks[idx].prev = -1
	a.blocks[idx].next = a.emptyHead
	if a.emptyHead >= 0 {
		a.blocks[a.emptyHead].prev = idx
	}
	a.emptyHead = idx
	a.blocks[idx].inList = listEmpty
}

func (a *Arena) pushFull(idx int32) {
	a.blocks[idx].prev = -1
	a.blocks[idx].next = a.fullHead
	if a.fullHead >= 0 {
		a.blocks[a.fullHead].prev = idx
	}
	a.fullHead = idx
	a.blocks[idx].inList = listFull
}

func (a *Arena) unlinkFull(idx int32) {
	a.unlinkGeneric(idx, &a.fullHead)
}

func (a *Arena) pushClass(idx int32, class int) {
	a.blocks[idx].prev = -1
	a.blocks[idx].next = a.classHead[class]
	if a.classHead[class] >= 0 {
		a.blocks[a.classHead[class]].prev = idx
	}
	a.classHead[class] = idx
	a.blocks[idx].inList = listClass
}

func (a *Arena) unlinkClass(idx int32, class int) {
	a.unlinkGeneric(idx, &a.classHead[class])
}

func (a *Arena) unlinkGeneric(idx int32, head *int32) {
	b := &a.blocks[idx]
	if b.prev >= 0 {
		a.blocks[b.prev].next = b.next
	} else if *head == idx {
		*head = b.next
	}
	if b.next >= 0 {
		a.blocks[b.next].prev = b.prev
	}
	b.prev, b.next = -1, -1
}

func (a *Arena) initBlockForClass(idx int32, class int) {
	b := &a.blocks[idx]
	b.class = int8(class)
	b.used = 0
	bitsNeeded := a.blockSize / a.classSize(class)
	words := (bitsNeeded + 63) / 64
	if cap(b.bitmap) < words {
		b.bitmap = make([]uint64, words)
	} else {
		b.bitmap = b.bitmap[:words]
		for i := range b.bitmap {
			b.bitmap[i] = 0
		}
	}
	a.pushClass(idx, class)
}

func (a *Arena) firstFreeBit(b *block, class int) int {
	bitsNeeded := a.blockSize / a.classSize(class)
	for w := 0; w < len(b.bitmap); w++ {
		word := b.bitmap[w]
		if word == ^uint64(0) {
			continue
		}
		for bit := 0; bit < 64; bit++ {
			pos := w*64 + bit
			if pos >= bitsNeeded {
				return -1
			}
			if word&(1<<uint(bit)) == 0 {
				return pos
			}
		}
	}
	return -1
}

func (a *Arena) setBit(b *block, slot int)   { b.bitmap[slot/64] |= 1 << uint(slot%64) }
func (a *Arena) clearBit(b *block, slot int) { b.bitmap[slot/64] &^= 1 << uint(slot%64) }
func (a *Arena) testBit(b *block, slot int) bool {
	return b.bitmap[slot/64]&(1<<uint(slot%64)) != 0
}
func (a *Arena) isFull(b *block, class int) bool {
	return int(b.used) == a.blockSize/a.classSize(class)
}

func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return x + 1
}

func roundUp(x, multiple int) int {
	return (x + multiple - 1) / multiple * multiple
}
