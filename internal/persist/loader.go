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

// Loader walks root's directory tree once to enumerate candidate
// files, then hands out at most N per Next call so startup recovery
// never blocks the event loop for longer than one housekeeping tick's
// budget (disk-loader option).
type Loader struct {
	root    string
	pending []string
}

// NewLoader indexes root's tree. Missing root is not an error: disk
// persistence is simply empty on first run.
func NewLoader(root string) (*Loader, error) {
	l := &Loader{root: root}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".tmp") {
			return nil
		}
		l.pending = append(l.pending, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Remaining reports how many files are still queued.
func (l *Loader) Remaining() int { return len(l.pending) }

// Next decodes up to quota files from the pending queue. A file that
// fails to decode (checksum/format failure) is skipped via onBadFile
// rather than aborting the whole batch.
func (l *Loader) Next(quota int, onBadFile func(path string, err error)) []*Record {
	if quota > len(l.pending) {
		quota = len(l.pending)
	}
	batch := l.pending[:quota]
	l.pending = l.pending[quota:]

	out := make([]*Record, 0, quota)
	for _, path := range batch {
		f, err := os.Open(path)
		if err != nil {
			if onBadFile != nil {
				onBadFile(path, err)
			}
			continue
		}
		rec, err := Decode(f)
		f.Close()
		if err != nil {
			if onBadFile != nil {
				onBadFile(path, err)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}
