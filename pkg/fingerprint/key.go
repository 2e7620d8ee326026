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

package fingerprint

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

// ErrKeyBuild covers the KeyBuildError case from the error-handling
// design: a request path never crashes on a malformed component, it
// degrades to BYPASS instead.
var ErrKeyBuild = errors.New("fingerprint: key build failed")

// Key is a built, comparable cache key: two keys are equal iff their
// bytes are equal. A Key owns its backing array so it's safe to retain
// across goroutines/ticks independent of the request that produced it.
type Key []byte

// Equal reports byte-for-byte equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// BuildKey concatenates the requested components, each separated by sep,
// in declared order. Absent components (e.g. a missing header) emit an
// empty slot rather than shifting the separators, so a key's shape
// depends only on the rule's component list, never on which headers
// happened to be present.
func BuildKey(pre *Prebuilt, components []Component, req Request) (Key, error) {
	if pre == nil {
		return nil, ErrKeyBuild
	}
	var buf []byte
	for i, c := range components {
		if i > 0 {
			buf = append(buf, sep)
		}
		switch c.Type {
		case Method:
			buf = append(buf, pre.Method...)
		case Scheme:
			buf = append(buf, pre.Scheme...)
		case Host:
			buf = append(buf, pre.Host...)
		case URI:
			buf = append(buf, pre.URI...)
		case Path:
			buf = append(buf, pre.Path...)
		case Delimiter:
			if pre.HasQuery {
				buf = append(buf, '?')
			}
		case Query:
			buf = append(buf, pre.Query...)
		case Param:
			buf = append(buf, paramValue(pre.Query, c.Name)...)
		case Header:
			buf = append(buf, req.Header(c.Name)...)
		case Cookie:
			buf = append(buf, req.Cookie(c.Name)...)
		case Body:
			buf = append(buf, pre.Body...)
		default:
			return nil, ErrKeyBuild
		}
	}
	out := make(Key, len(buf))
	copy(out, buf)
	return out, nil
}

// Hash computes the stable 64-bit mixing hash of a built key. The same
// bytes always produce the same hash across process restarts (xxhash is
// a pure function of its input, no per-process seed).
func Hash(key Key) uint64 {
	return xxhash.Sum64(key)
}
