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

package telemetry

import "github.com/prometheus/client_golang/prometheus"

// PromCollector adapts a *Stats into a prometheus.Collector, rebuilding
// the gauge/counter set from a fresh Snapshot on every scrape instead
// of keeping Prometheus vectors in sync with every Inc* call — the
// counters already live as atomics on Stats, this just surfaces them.
type PromCollector struct {
	stats       *Stats
	diskEnabled bool

	usedMem  *prometheus.Desc
	capacity *prometheus.Desc
	reqTotal *prometheus.Desc
	reqHit   *prometheus.Desc
	reqFetch *prometheus.Desc
	reqAbort *prometheus.Desc
	ruleReq  *prometheus.Desc
}

// NewPromCollector builds a collector over stats. Register it with a
// prometheus.Registry (or prometheus.MustRegister) to expose it on a
// /metrics endpoint.
func NewPromCollector(stats *Stats, diskEnabled bool) *PromCollector {
	return &PromCollector{
		stats:       stats,
		diskEnabled: diskEnabled,
		usedMem:     prometheus.NewDesc("nuster_used_mem_bytes", "Bytes currently allocated from the data arena", nil, nil),
		capacity:    prometheus.NewDesc("nuster_arena_capacity_bytes", "Total data arena capacity", nil, nil),
		reqTotal:    prometheus.NewDesc("nuster_req_total", "Total requests seen by the engine", nil, nil),
		reqHit:      prometheus.NewDesc("nuster_req_hit_total", "Requests served from cache", nil, nil),
		reqFetch:    prometheus.NewDesc("nuster_req_fetch_total", "Requests that required a fetch", nil, nil),
		reqAbort:    prometheus.NewDesc("nuster_req_abort_total", "Requests aborted mid-stream", nil, nil),
		ruleReq:     prometheus.NewDesc("nuster_rule_requests_total", "Requests observed per rule, by outcome", []string{"rule", "outcome"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *PromCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.usedMem
	ch <- c.capacity
	ch <- c.reqTotal
	ch <- c.reqHit
	ch <- c.reqFetch
	ch <- c.reqAbort
	ch <- c.ruleReq
}

// Collect implements prometheus.Collector.
func (c *PromCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.usedMem, prometheus.GaugeValue, float64(snap.UsedMem))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(snap.Capacity))
	ch <- prometheus.MustNewConstMetric(c.reqTotal, prometheus.CounterValue, float64(snap.ReqTotal))
	ch <- prometheus.MustNewConstMetric(c.reqHit, prometheus.CounterValue, float64(snap.ReqHit))
	ch <- prometheus.MustNewConstMetric(c.reqFetch, prometheus.CounterValue, float64(snap.ReqFetch))
	ch <- prometheus.MustNewConstMetric(c.reqAbort, prometheus.CounterValue, float64(snap.ReqAbort))
	for name, rc := range snap.Rules {
		ch <- prometheus.MustNewConstMetric(c.ruleReq, prometheus.CounterValue, float64(rc.Hit), name, "hit")
		ch <- prometheus.MustNewConstMetric(c.ruleReq, prometheus.CounterValue, float64(rc.Fetch), name, "fetch")
	}
}
