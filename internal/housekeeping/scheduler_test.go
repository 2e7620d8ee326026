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

package housekeeping

import (
	"testing"
	"time"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/persist"
	"nuster-engine/pkg/arena"
	"nuster-engine/pkg/datachain"
	"nuster-engine/pkg/dict"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	a := arena.New(arena.Options{Size: 1 << 20, BlockSize: 4096, Lock: arena.LockMutex})
	d := dict.New(dict.Options{Arena: a, Lock: arena.LockMutex})
	c := datachain.New(a, arena.LockMutex)
	return engine.New(a, d, c)
}

func TestScheduler_DiskRoundTrip(t *testing.T) {
	root := t.TempDir()
	eng := newTestEngine(t)
	r := &engine.Rule{UUID: 1, Name: "r", Enabled: true, TTL: 0, Disk: engine.DiskAsync}
	eng.AddRule(r)

	entry, err := eng.Dict.Set(42, []byte("k"), 100, 0)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	entry.State = dict.Valid
	entry.RuleUUID = r.UUID
	entry.Data = eng.Chain.NewData()
	if err := eng.Chain.Append(entry.Data, []byte("payload")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sched, err := New(eng, Config{DiskRoot: root, TickInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sched.flushEntry(entry); err != nil {
		t.Fatalf("flushEntry: %v", err)
	}
	if entry.DiskFile == "" {
		t.Fatal("expected entry to record a disk file path")
	}

	loader, err := persist.NewLoader(root)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	if loader.Remaining() != 1 {
		t.Fatalf("expected 1 persisted file, got %d", loader.Remaining())
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}
	c.setDefaults()
	if c.DictCleaner != 100 || c.DataCleaner != 100 || c.DiskCleaner != 100 {
		t.Fatalf("expected default quotas of 100, got %+v", c)
	}
	if c.TickInterval != time.Second {
		t.Fatalf("expected default 1s tick interval, got %v", c.TickInterval)
	}
}
