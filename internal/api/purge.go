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

package api

import (
	"net/http"

	"nuster-engine/internal/engine"
)

// PurgeHandler matches a request whose method equals the configured
// purge token and invalidates the corresponding entry or rule.
//
// Two purge shapes are supported, mirroring spec.md §6's "path matches
// the configured pattern" plus the rule-scoped broader purge
// supplemented from the original renderer:
//   - a request with a "rule" query parameter purges every entry owned
//     by that rule (PurgeByRuleName);
//   - otherwise the request is treated as a normal cacheable request
//     and purged by its own computed key against every rule in turn
//     (PurgeByKey), matching the first rule whose key matches.
type PurgeHandler struct {
	eng         *engine.Engine
	purgeMethod string
}

// NewPurgeHandler builds a handler bound to eng's rules, answering only
// requests whose method equals purgeMethod (default "PURGE").
func NewPurgeHandler(eng *engine.Engine, purgeMethod string) *PurgeHandler {
	if purgeMethod == "" {
		purgeMethod = "PURGE"
	}
	return &PurgeHandler{eng: eng, purgeMethod: purgeMethod}
}

func (h *PurgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !matchesPurgeMethod(r, h.purgeMethod) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if ruleName := r.URL.Query().Get("rule"); ruleName != "" {
		res := h.eng.PurgeByRuleName(ruleName)
		if !res.Found {
			http.Error(w, engine.ErrPurgeNotFound.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	req := purgeRequest{newHTTPRequest(r)}
	var found bool
	for _, rule := range h.eng.Rules {
		if !rule.Enabled {
			continue
		}
		if res := h.eng.PurgeByKey(rule, req); res.Found {
			found = true
			break
		}
	}
	if !found {
		http.Error(w, engine.ErrPurgeNotFound.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// purgeRequest presents a purge request to key building as the GET it
// invalidates, so a rule whose key includes the method computes the
// same key the cached GET stored.
type purgeRequest struct{ *httpRequest }

func (purgeRequest) Method() string { return http.MethodGet }
