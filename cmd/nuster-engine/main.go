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

// Command nuster-engine runs the cache/nosql CORE as a standalone
// demo process: it parses a directive-style configuration file,
// builds the engine and housekeeping scheduler, and serves the PURGE
// and stats HTTP surfaces until an OS signal asks it to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nuster-engine/internal/api"
	"nuster-engine/internal/config"
	"nuster-engine/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a directive-style configuration file (nuster cache|nosql ... / nuster rule ...)")
	httpAddr := flag.String("http_addr", ":8080", "HTTP listen address for PURGE and stats (e.g., :8080)")
	metricsAddr := flag.String("metrics_addr", "", "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("nuster-engine: -config is required")
	}
	raw, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalf("nuster-engine: reading config: %v", err)
	}

	built, err := config.Build(string(raw))
	if err != nil {
		// Configuration errors are fatal at startup, matching spec's
		// "configuration errors are fatal" exit policy.
		log.Fatalf("nuster-engine: %v", err)
	}
	if built.Engine == nil {
		fmt.Printf("nuster-engine: filter %q is disabled; nothing to serve\n", built.Global.Mode)
		return
	}

	stats := telemetry.New(built.Engine.Arena)
	built.Engine.Stats = stats

	built.Scheduler.Start()

	srv := api.NewServer(built.Engine, stats, api.Config{
		PurgeMethod: built.Global.PurgeMethod,
		StatsURI:    built.Global.URI,
		MetricsAddr: *metricsAddr,
		DiskEnabled: built.Global.Dir != "",
	})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         *httpAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("nuster-engine %s filter listening on %s\n", built.Global.Mode, *httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("nuster-engine: could not listen on %s: %v", *httpAddr, err)
		}
	}()

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(telemetry.NewPromCollector(stats, built.Global.Dir != ""))
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, metricsMux); err != nil {
				log.Printf("nuster-engine: metrics listener on %s: %v", *metricsAddr, err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("\nnuster-engine: shutting down...")
	built.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("nuster-engine: server shutdown failed: %v", err)
	}
	fmt.Println("nuster-engine: stopped.")
}
