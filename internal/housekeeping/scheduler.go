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

// Package housekeeping drives the periodic tick that performs bounded
// work across dict rehash/cleanup, data cleanup, and disk
// loader/saver/cleaner, the way the source's Worker drives commit and
// eviction loops from one ticker per concern.
package housekeeping

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/persist"
	"nuster-engine/pkg/datachain"
	"nuster-engine/pkg/dict"
)

// Config holds the per-tick quotas spec.md's options table exposes, one
// field per housekeeping concern.
type Config struct {
	DictCleaner  int
	DataCleaner  int
	DiskCleaner  int
	DiskLoader   int
	DiskSaver    int
	TickInterval time.Duration

	// DiskRoot enables persistence when non-empty; spec.md's `dir`
	// option absent disables disk entirely.
	DiskRoot string
}

func (c *Config) setDefaults() {
	if c.DictCleaner <= 0 {
		c.DictCleaner = 100
	}
	if c.DataCleaner <= 0 {
		c.DataCleaner = 100
	}
	if c.DiskCleaner <= 0 {
		c.DiskCleaner = 100
	}
	if c.DiskLoader <= 0 {
		c.DiskLoader = 100
	}
	if c.DiskSaver <= 0 {
		c.DiskSaver = 100
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

// nowFn is swappable in tests so a tick can be driven at an arbitrary
// simulated time instead of wall-clock time.
type nowFn func() int64

// Scheduler is the housekeeping loop owner: one designated worker runs
// it, per spec.md's "housekeeping tick runs on one designated worker".
type Scheduler struct {
	eng    *engine.Engine
	cfg    Config
	now    nowFn
	loader *persist.Loader
	cln    *persist.Cleaner

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// New builds a Scheduler over eng. If cfg.DiskRoot is set, the on-disk
// tree is indexed immediately so Start's first loader tick has
// something to drain.
func New(eng *engine.Engine, cfg Config) (*Scheduler, error) {
	cfg.setDefaults()
	s := &Scheduler{
		eng:      eng,
		cfg:      cfg,
		now:      func() int64 { return time.Now().Unix() },
		stopChan: make(chan struct{}),
	}
	if cfg.DiskRoot != "" {
		loader, err := persist.NewLoader(cfg.DiskRoot)
		if err != nil {
			return nil, err
		}
		s.loader = loader
		s.cln = persist.NewCleaner(cfg.DiskRoot)
	}
	return s, nil
}

// Start launches one goroutine per housekeeping concern, mirroring the
// source's one-goroutine-per-loop Worker shape generalized from two
// loops to the full set spec.md names.
func (s *Scheduler) Start() {
	loops := []func(){s.dictLoop, s.dataLoop}
	if s.cfg.DiskRoot != "" {
		loops = append(loops, s.diskLoaderLoop, s.diskSaverLoop, s.diskCleanerLoop)
	}
	s.wg.Add(len(loops))
	for _, loop := range loops {
		loop := loop
		go func() {
			defer s.wg.Done()
			loop()
		}()
	}
}

// Stop signals every loop to exit and waits for them to drain.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapUint32(&s.stopped, 0, 1) {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runTicker(tick func()) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tick()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) dictLoop() {
	s.runTicker(func() {
		s.eng.Dict.Rehash(s.cfg.DictCleaner)
		removed := s.eng.Dict.Cleanup(s.cfg.DictCleaner, s.now())
		if removed > 0 {
			log.Printf("housekeeping: dict cleanup removed %d entries", removed)
		}
	})
}

// dataLoop builds the set of Data bodies still referenced by a live
// dict entry, then asks the data chain to reclaim anything invalid or
// orphaned outside that set with no attached readers.
func (s *Scheduler) dataLoop() {
	s.runTicker(func() {
		owned := make(map[*datachain.Data]bool)
		s.eng.Dict.ForEach(func(e *dict.Entry) {
			if e.Data != nil && e.State == dict.Valid {
				owned[e.Data] = true
			}
		})
		freed := s.eng.Chain.Cleanup(s.cfg.DataCleaner, func(d *datachain.Data) bool {
			return owned[d]
		})
		if freed > 0 {
			log.Printf("housekeeping: data cleanup freed %d bodies", freed)
		}
	})
}
