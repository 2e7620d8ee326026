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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/telemetry"
)

// Server is the management-surface HTTP server: PURGE handling plus
// the stats text endpoint and, if configured, a Prometheus /metrics
// mount. It mirrors the teacher's Server/RegisterRoutes/ListenAndServe
// split, generalized from a single /check+/release pair to the
// engine's PURGE and stats surfaces.
type Server struct {
	eng         *engine.Engine
	stats       *telemetry.Stats
	purgeMethod string
	statsURI    string
	metricsAddr string
	diskEnabled bool
}

// Config carries the externally-configured surface options.
type Config struct {
	PurgeMethod string
	StatsURI    string // e.g. "/nuster-stats"; empty disables the stats route
	MetricsAddr string // non-empty starts a standalone Prometheus listener
	DiskEnabled bool
}

// NewServer builds a Server over eng and stats.
func NewServer(eng *engine.Engine, stats *telemetry.Stats, cfg Config) *Server {
	if cfg.PurgeMethod == "" {
		cfg.PurgeMethod = "PURGE"
	}
	return &Server{
		eng:         eng,
		stats:       stats,
		purgeMethod: cfg.PurgeMethod,
		statsURI:    cfg.StatsURI,
		metricsAddr: cfg.MetricsAddr,
		diskEnabled: cfg.DiskEnabled,
	}
}

// RegisterRoutes wires PURGE handling onto every path ("/") and the
// stats URI, if configured, onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/", NewPurgeHandler(s.eng, s.purgeMethod))
	if s.statsURI != "" {
		mux.Handle(s.statsURI, NewStatsHandler(s.stats, s.diskEnabled))
	}
}

// ListenAndServe starts the management HTTP server on addr, and, if a
// metrics address is configured, a second standalone listener serving
// only /metrics — matching the teacher's churn.startMetricsEndpoint
// "tiny dedicated server" pattern rather than mounting it on the main
// mux, so metrics scraping never contends with PURGE/stats traffic.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	if s.metricsAddr != "" {
		s.startMetricsListener()
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func (s *Server) startMetricsListener() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(telemetry.NewPromCollector(s.stats, s.diskEnabled))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:         s.metricsAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		_ = metricsServer.ListenAndServe()
	}()
}
