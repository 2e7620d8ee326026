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
	"nuster-engine/pkg/arena"
	"nuster-engine/pkg/datachain"
)

// State is an entry's lifecycle stage.
type State int

const (
	Creating State = iota
	Valid
	Invalid
	Expired
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Entry is one cache record. Its metadata lives as an ordinary Go value
// under GC; only the variable-length key bytes are drawn from an Arena,
// since a dict entry's size varies with key length and the arena is
// what bounds total cache memory. The response body lives in a separate
// Data chain (pkg/datachain), reached through the Data field.
type Entry struct {
	State State

	Hash uint64
	key  arena.Handle
	klen int

	Data        *datachain.Data // nil iff entry is disk-only or still creating
	Expire      int64           // absolute unix seconds, 0 == never
	CTime       int64
	ATime       int64
	HeaderLen   int
	Host        string
	Path        string
	RuleUUID int
	DiskFile string // non-empty iff persisted

	// Access counts reads falling in each of the four auto-extend
	// sub-intervals of [ctime, expire]; see engine's extend logic.
	Access [4]uint32

	ETag         string
	LastModified string

	ContentType      string
	TransferEncoding string
	ContentLength    int64
	Chunked          bool

	next *Entry // bucket-chain link
}

// SetKey copies key into an arena-owned buffer, releasing any
// previously held key bytes first.
func (e *Entry) SetKey(a *arena.Arena, key []byte) error {
	if e.key.Valid() {
		a.Free(e.key)
	}
	if len(key) == 0 {
		e.key = arena.Handle{}
		e.klen = 0
		return nil
	}
	h, err := a.Alloc(len(key))
	if err != nil {
		return err
	}
	if !h.Valid() {
		return arena.ErrFull
	}
	copy(a.Bytes(h), key)
	e.key = h
	e.klen = len(key)
	return nil
}

// Key returns the entry's key bytes as currently stored in the arena.
func (e *Entry) Key(a *arena.Arena) []byte {
	if !e.key.Valid() {
		return nil
	}
	return a.Bytes(e.key)[:e.klen]
}

// ReleaseKey returns the key's arena storage. Called by cleanup once an
// entry is unlinked from its bucket.
func (e *Entry) ReleaseKey(a *arena.Arena) {
	if e.key.Valid() {
		a.Free(e.key)
		e.key = arena.Handle{}
		e.klen = 0
	}
}

// ExpiredAt reports whether the entry's TTL has elapsed as of now.
func (e *Entry) ExpiredAt(now int64) bool {
	return e.Expire != 0 && now >= e.Expire
}
