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
	"fmt"
	"strings"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/housekeeping"
	"nuster-engine/pkg/arena"
	"nuster-engine/pkg/datachain"
	"nuster-engine/pkg/dict"
)

// Built is the fully wired result of parsing a configuration block: an
// Engine ready to drive request contexts plus the Scheduler that
// should be started alongside it. A fatal parse error here is the
// host's cue to abort startup, per spec.md §6's "configuration errors
// are fatal".
type Built struct {
	Global    Global
	Engine    *engine.Engine
	Scheduler *housekeeping.Scheduler
}

// Build parses a full directive block (one global "nuster cache|nosql"
// line followed by zero or more "nuster rule" lines) and wires an
// Engine and Scheduler from it. Blank lines and lines starting with
// "#" are ignored, matching the host's own comment convention.
func Build(block string) (*Built, error) {
	var globalLine string
	var ruleLines []string
	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "nuster" && fields[1] == "rule" {
			ruleLines = append(ruleLines, line)
			continue
		}
		if globalLine != "" {
			return nil, fmt.Errorf("config: more than one global nuster cache|nosql directive")
		}
		globalLine = line
	}
	if globalLine == "" {
		return nil, fmt.Errorf("config: missing global nuster cache|nosql directive")
	}

	g, err := ParseGlobal(globalLine)
	if err != nil {
		return nil, err
	}
	if !g.Enabled {
		return &Built{Global: g}, nil
	}
	if g.DataSize == 0 {
		g.DataSize = minSizeBytes
	}

	a := arena.New(arena.Options{Size: int(g.DataSize), Lock: arena.LockMutex})
	store := dict.New(dict.Options{Arena: a, Lock: arena.LockMutex})
	chain := datachain.New(a, arena.LockMutex)
	eng := engine.New(a, store, chain)

	for i, line := range ruleLines {
		r, err := ParseRule(line, i+1)
		if err != nil {
			return nil, err
		}
		eng.AddRule(r)
	}

	sched, err := housekeeping.New(eng, g.Housekeeping)
	if err != nil {
		return nil, err
	}
	return &Built{Global: g, Engine: eng, Scheduler: sched}, nil
}
