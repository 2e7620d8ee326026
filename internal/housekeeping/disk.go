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
	"log"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/persist"
	"nuster-engine/pkg/dict"
)

// diskLoaderLoop walks the persistence root in disk-loader-sized
// batches per tick until the initial index is drained; afterward the
// tick is a no-op, matching spec.md's "at startup" recovery scope.
func (s *Scheduler) diskLoaderLoop() {
	s.runTicker(func() {
		if s.loader == nil || s.loader.Remaining() == 0 {
			return
		}
		recs := s.loader.Next(s.cfg.DiskLoader, func(path string, err error) {
			log.Printf("housekeeping: skipping unreadable persisted entry %s: %v", path, err)
		})
		for _, rec := range recs {
			entry := &dict.Entry{
				State:        dict.Valid,
				Hash:         rec.Hash,
				Expire:       rec.Expire,
				HeaderLen:    int(rec.HeaderLen),
				RuleUUID:     int(rec.RuleUUID),
				Host:         rec.Host,
				Path:         rec.Path,
				DiskFile:     "", // set below once we know the final path
				ETag:         rec.ETag,
				LastModified: rec.LastModified,

				ContentType:      rec.ContentType,
				TransferEncoding: rec.TransferEncoding,
				ContentLength:    rec.ContentLength,
				Chunked:          rec.Chunked,
			}
			if err := entry.SetKey(s.eng.Arena, rec.Key); err != nil {
				log.Printf("housekeeping: dropping recovered entry: %v", err)
				continue
			}
			s.eng.Dict.SetFromDisk(entry)
		}
	})
}

// diskSaverLoop visits VALID entries whose rule asks for ASYNC disk
// persistence and that have no file yet, and flushes them.
func (s *Scheduler) diskSaverLoop() {
	s.runTicker(func() {
		if s.cfg.DiskRoot == "" {
			return
		}
		visited := 0
		var candidates []*dict.Entry
		s.eng.Dict.ForEach(func(e *dict.Entry) {
			if visited >= s.cfg.DiskSaver || e.State != dict.Valid || e.DiskFile != "" {
				return
			}
			r, ok := s.eng.RuleByUUID(e.RuleUUID)
			if !ok || r.Disk != engine.DiskAsync {
				return
			}
			candidates = append(candidates, e)
			visited++
		})
		for _, e := range candidates {
			if err := s.flushEntry(e); err != nil {
				log.Printf("housekeeping: async save failed: %v", err)
			}
		}
	})
}

// flushEntry encodes an entry's body and metadata and persists it,
// recording the resulting path on the entry.
func (s *Scheduler) flushEntry(e *dict.Entry) error {
	rec := &persist.Record{
		Hash:             e.Hash,
		Expire:           e.Expire,
		HeaderLen:        uint32(e.HeaderLen),
		RuleUUID:         int32(e.RuleUUID),
		ETag:             e.ETag,
		LastModified:     e.LastModified,
		Host:             e.Host,
		Path:             e.Path,
		Key:              e.Key(s.eng.Arena),
		ContentType:      e.ContentType,
		TransferEncoding: e.TransferEncoding,
		ContentLength:    e.ContentLength,
		Chunked:          e.Chunked,
	}
	if e.Data != nil {
		var body []byte
		e.Data.Elements(s.eng.Arena, func(b []byte) bool {
			body = append(body, b...)
			return true
		})
		rec.Body = body
	}
	path, err := persist.Write(s.cfg.DiskRoot, e.Hash, rec)
	if err != nil {
		return err
	}
	e.DiskFile = path
	return nil
}

// diskCleanerLoop visits at most disk-cleaner files per tick, removing
// any whose dict entry is gone or expired.
func (s *Scheduler) diskCleanerLoop() {
	s.runTicker(func() {
		if s.cln == nil {
			return
		}
		live := make(map[string]bool)
		now := s.now()
		s.eng.Dict.ForEach(func(e *dict.Entry) {
			if e.DiskFile != "" && e.State == dict.Valid && !e.ExpiredAt(now) {
				live[e.DiskFile] = true
			}
		})
		removed := s.cln.Tick(s.cfg.DiskCleaner, func(path string) bool {
			return live[path]
		})
		if removed > 0 {
			log.Printf("housekeeping: disk cleanup removed %d files", removed)
		}
	})
}
