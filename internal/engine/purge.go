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

import "nuster-engine/pkg/fingerprint"

// PurgeByKey locates the entry for one rule's fingerprint of req and
// marks it INVALID under the dict lock. It is idempotent: purging an
// already-invalid or absent key is not an error here (the HTTP layer
// decides whether a repeat purge should still answer 200 or 404 per
// spec's "PurgeNotFound surfaced as HTTP 404" policy — see PurgeResult).
func (e *Engine) PurgeByKey(r *Rule, req fingerprint.Request) PurgeResult {
	pre := fingerprint.Prebuild(req)
	key, err := fingerprint.BuildKey(pre, r.Components, req)
	if err != nil {
		return PurgeResult{Found: false}
	}
	hash := fingerprint.Hash(key)
	found := e.Dict.Invalidate(hash, key)
	return PurgeResult{Found: found}
}

// PurgeByRuleName invalidates every entry belonging to the named rule,
// used by a broader purge pattern than a single key.
func (e *Engine) PurgeByRuleName(name string) PurgeResult {
	r, ok := e.RuleByName(name)
	if !ok {
		return PurgeResult{Found: false}
	}
	count := e.Dict.InvalidateByRule(r.UUID)
	return PurgeResult{Found: count > 0, Count: count}
}

// PurgeResult reports whether a purge found anything to invalidate.
// Found == false should be surfaced as ErrPurgeNotFound (HTTP 404) by
// the HTTP-facing layer; Found == true on a repeated purge of an
// already-invalid key is intentional (idempotence: N consecutive
// purges behave like one, and the API layer still reports success).
type PurgeResult struct {
	Found bool
	Count int
}
