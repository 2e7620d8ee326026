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
	"net/http/httptest"
	"strings"
	"testing"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/telemetry"
	"nuster-engine/pkg/arena"
	"nuster-engine/pkg/datachain"
	"nuster-engine/pkg/dict"
	"nuster-engine/pkg/fingerprint"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	a := arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
	d := dict.New(dict.Options{Arena: a, Lock: arena.LockMutex})
	c := datachain.New(a, arena.LockMutex)
	eng := engine.New(a, d, c)
	eng.AddRule(&engine.Rule{
		UUID:       1,
		Name:       "r1",
		Enabled:    true,
		Components: []fingerprint.Component{{Type: fingerprint.Method}, {Type: fingerprint.Host}, {Type: fingerprint.URI}},
	})
	return eng
}

func TestPurgeHandler_RejectsWrongMethod(t *testing.T) {
	eng := newTestEngine(t)
	h := NewPurgeHandler(eng, "PURGE")

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestPurgeHandler_NotFoundWhenNoEntry(t *testing.T) {
	eng := newTestEngine(t)
	h := NewPurgeHandler(eng, "PURGE")

	req := httptest.NewRequest("PURGE", "http://example.com/a", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPurgeHandler_FindsAndInvalidatesEntry(t *testing.T) {
	eng := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	adapted := newHTTPRequest(req)
	rule := eng.Rules[0]
	pre := fingerprint.Prebuild(adapted)
	key, err := fingerprint.BuildKey(pre, rule.Components, adapted)
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	hash := fingerprint.Hash(key)
	entry, err := eng.Dict.Set(hash, key, 100, 0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	entry.State = dict.Valid
	entry.RuleUUID = rule.UUID

	h := NewPurgeHandler(eng, "PURGE")
	purgeReq := httptest.NewRequest("PURGE", "http://example.com/a", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, purgeReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if entry.State != dict.Invalid {
		t.Fatalf("expected entry invalidated, got state %v", entry.State)
	}
}

func TestPurgeHandler_ByRuleName(t *testing.T) {
	eng := newTestEngine(t)
	rule := eng.Rules[0]
	entry, err := eng.Dict.Set(42, []byte("k"), 100, 0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	entry.State = dict.Valid
	entry.RuleUUID = rule.UUID

	h := NewPurgeHandler(eng, "PURGE")
	req := httptest.NewRequest("PURGE", "http://example.com/anything?rule=r1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if entry.State != dict.Invalid {
		t.Fatal("expected entry invalidated by rule name")
	}
}

func TestStatsHandler_RendersText(t *testing.T) {
	a := arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
	stats := telemetry.New(a)
	stats.IncReqTotal()

	h := NewStatsHandler(stats, false)
	req := httptest.NewRequest(http.MethodGet, "http://example.com/nuster-stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "req_total: 1") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
