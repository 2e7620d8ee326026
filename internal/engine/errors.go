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

package engine

import "errors"

// Error kinds. None of these ever propagate back to the HTTP pipeline
// as a hard failure — the request path degrades to BYPASS and lets the
// upstream response traverse. Only management endpoints (PURGE, stats)
// surface them as explicit status codes.
var (
	// ErrConfig is fatal at startup; the process refuses to start.
	ErrConfig = errors.New("engine: configuration error")

	// ErrArenaFull marks the in-flight entry INVALID and transitions the
	// context to BYPASS; callers should bump an abort counter.
	ErrArenaFull = errors.New("engine: arena exhausted")

	// ErrKeyBuild mirrors fingerprint.ErrKeyBuild at the engine layer.
	ErrKeyBuild = errors.New("engine: key build failed")

	// ErrUpstreamFailure marks the entry and its Data invalid; readers
	// already attached drain their current chain and then see EOF.
	ErrUpstreamFailure = errors.New("engine: upstream failure")

	// ErrDiskIO is local to persistence: the entry stays memory-only and
	// is retried on the next housekeeping tick.
	ErrDiskIO = errors.New("engine: disk I/O error")

	// ErrPurgeNotFound is surfaced as HTTP 404 from the PURGE handler.
	ErrPurgeNotFound = errors.New("engine: purge target not found")
)
