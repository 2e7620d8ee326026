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

// Package fingerprint builds cache keys from a request and hashes them
// into fingerprints, the (hash, key-bytes) pairs the dict is keyed on.
//
// The host proxy's HTTP message pipeline, TLS termination and ACL
// expression engine are out of scope: this package consumes them through
// the narrow Request and ACL capabilities below.
package fingerprint

// Request is the minimal view of an HTTP message the fingerprint engine
// needs. The host proxy's own message representation (legacy or HTX, per
// DESIGN NOTES) implements this once, instead of the dual code paths the
// source maintains per representation.
type Request interface {
	Method() string
	Scheme() string
	Host() string
	// URI is the request-target: path plus '?'+query when present.
	URI() string
	Path() string
	// Query is the portion after '?', excluding the '?' itself. Empty
	// string if the request has no query.
	Query() string
	Header(name string) string
	Cookie(name string) string
	Body() []byte
	StatusCode() int
}

// ACL is the host's acceptance-predicate capability: given a request and
// a direction flag (response phase vs request phase), it reports whether
// a rule's condition matches. The CORE never implements ACL syntax.
type ACL func(req Request, isResponse bool) bool
