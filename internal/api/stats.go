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

	"nuster-engine/internal/telemetry"
)

// StatsHandler renders the plain-text counters summary at the
// configured stats URI.
type StatsHandler struct {
	stats       *telemetry.Stats
	diskEnabled bool
}

// NewStatsHandler builds a handler over stats; diskEnabled controls
// the rendered persistence line.
func NewStatsHandler(stats *telemetry.Stats, diskEnabled bool) *StatsHandler {
	return &StatsHandler{stats: stats, diskEnabled: diskEnabled}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_ = telemetry.Render(w, h.stats.Snapshot(), h.diskEnabled)
}
