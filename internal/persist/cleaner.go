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

package persist

import (
	"os"
	"path/filepath"
	"strings"
)

// Cleaner walks root's tree in bounded batches across ticks, the same
// cyclic-cursor shape as the dict's bucket cleaner: when the queue
// empties it is refilled from a fresh directory walk rather than kept
// open, so files created since the last refill are eventually visited.
type Cleaner struct {
	root  string
	queue []string
}

// NewCleaner builds an empty cleaner; call Tick to refill and sweep.
func NewCleaner(root string) *Cleaner {
	return &Cleaner{root: root}
}

func (c *Cleaner) refill() {
	_ = filepath.WalkDir(c.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		c.queue = append(c.queue, path)
		return nil
	})
}

// Tick visits at most quota files, removing any for which stillValid
// returns false (dict entry gone or expired). Returns the number
// removed.
func (c *Cleaner) Tick(quota int, stillValid func(path string) bool) int {
	if len(c.queue) == 0 {
		c.refill()
	}
	if quota > len(c.queue) {
		quota = len(c.queue)
	}
	batch := c.queue[:quota]
	c.queue = c.queue[quota:]

	removed := 0
	for _, path := range batch {
		if stillValid != nil && stillValid(path) {
			continue
		}
		if err := Remove(path); err == nil {
			removed++
		}
	}
	return removed
}
