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

package config

import (
	"testing"

	"nuster-engine/pkg/fingerprint"
)

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"64M", 64 << 20},
		{"1G", 1 << 30},
		{"1m", 1 << 20},
		{"1024m", 1024 << 20},
	}

	for _, c := range cases {
		got, err := ParseSize(c.in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseSize(%q) = %d, want %d", c.in, got, c.want)
		}
	}

	if _, err := ParseSize("nope"); err == nil {
		t.Fatal("expected error for unit-less size")
	}
	if _, err := ParseSize(""); err == nil {
		t.Fatal("expected error for empty size")
	}
}

func TestParseSize_ClampsBelowFloor(t *testing.T) {
	got, err := ParseSize("0M")
	if err != nil {
		t.Fatalf("ParseSize(0M): %v", err)
	}
	if got != 1<<20 {
		t.Fatalf("ParseSize(0M) = %d, want the 1 MiB floor", got)
	}
	if _, err := ParseSize("1s"); err == nil {
		t.Fatal("expected error for unknown size unit")
	}
}

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"30s", 30},
		{"5m", 300},
		{"2h", 7200},
		{"1d", 86400},
	}
	for _, c := range cases {
		got, err := ParseTTL(c.in)
		if err != nil {
			t.Fatalf("ParseTTL(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseTTL(%q) = %d, want %d", c.in, got, c.want)
		}
	}
	if _, err := ParseTTL("30x"); err == nil {
		t.Fatal("expected error for unknown ttl unit")
	}
}

func TestParseKey(t *testing.T) {
	components, err := ParseKey("method.host.uri.header_Accept.cookie_sid.param_id")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	want := []fingerprint.ComponentType{
		fingerprint.Method, fingerprint.Host, fingerprint.URI,
		fingerprint.Header, fingerprint.Cookie, fingerprint.Param,
	}
	if len(components) != len(want) {
		t.Fatalf("got %d components, want %d", len(components), len(want))
	}
	for i, c := range components {
		if c.Type != want[i] {
			t.Fatalf("component %d: got %v, want %v", i, c.Type, want[i])
		}
	}
	if components[3].Name != "Accept" || components[4].Name != "sid" || components[5].Name != "id" {
		t.Fatalf("named components not captured: %+v", components)
	}

	if _, err := ParseKey("bogus"); err == nil {
		t.Fatal("expected error for unknown component")
	}
}

func TestParseGlobal(t *testing.T) {
	g, err := ParseGlobal("nuster cache on data-size 64M dir /var/cache dict-cleaner 50")
	if err != nil {
		t.Fatalf("ParseGlobal: %v", err)
	}
	if g.Mode != "cache" || !g.Enabled {
		t.Fatalf("unexpected mode/enabled: %+v", g)
	}
	if g.DataSize != 64<<20 {
		t.Fatalf("DataSize = %d", g.DataSize)
	}
	if g.Dir != "/var/cache" || g.Housekeeping.DiskRoot != "/var/cache" {
		t.Fatalf("dir not wired into housekeeping config: %+v", g)
	}
	if g.Housekeeping.DictCleaner != 50 {
		t.Fatalf("dict-cleaner = %d", g.Housekeeping.DictCleaner)
	}
	if g.PurgeMethod != "PURGE" {
		t.Fatalf("expected default purge method, got %q", g.PurgeMethod)
	}

	off, err := ParseGlobal("nuster nosql off")
	if err != nil {
		t.Fatalf("ParseGlobal off: %v", err)
	}
	if off.Enabled {
		t.Fatal("expected disabled global")
	}
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("nuster rule static key method.host.uri ttl 1h code 200,203 disk async etag on extend 10,20,30", 1)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if r.Name != "static" || r.TTL != 3600 {
		t.Fatalf("unexpected name/ttl: %+v", r)
	}
	if len(r.Codes) != 2 || r.Codes[0] != 200 || r.Codes[1] != 203 {
		t.Fatalf("codes = %v", r.Codes)
	}
	if !r.ETag {
		t.Fatal("expected etag on")
	}
}

func TestParseRule_ExtendPercentages(t *testing.T) {
	r, err := ParseRule("nuster rule hot key method.host.uri extend 10,20,30", 2)
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if !r.ExtendEnabled {
		t.Fatal("expected extend enabled")
	}
	if r.Extend.Sum() != 60 {
		t.Fatalf("extend sum = %d", r.Extend.Sum())
	}
}

func TestParseRule_RejectsOversizedExtend(t *testing.T) {
	if _, err := ParseRule("nuster rule bad key method extend 50,40,30", 3); err == nil {
		t.Fatal("expected error for extend percentages summing over 100")
	}
}

func TestBuild_FullBlock(t *testing.T) {
	block := `
# a comment, ignored
nuster cache on data-size 2M dict-cleaner 10
nuster rule r1 key method.host.uri ttl 1m
nuster rule r2 key method.path ttl 30s disk sync
`
	built, err := Build(block)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Engine == nil || built.Scheduler == nil {
		t.Fatal("expected engine and scheduler to be built")
	}
	if len(built.Engine.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(built.Engine.Rules))
	}
	if built.Engine.Rules[0].UUID == built.Engine.Rules[1].UUID {
		t.Fatal("expected distinct rule UUIDs")
	}
}

func TestBuild_DisabledGlobalSkipsEngine(t *testing.T) {
	built, err := Build("nuster cache off")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Engine != nil {
		t.Fatal("expected no engine for a disabled filter")
	}
}
