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

// Package config parses the host proxy's directive lines (global
// "nuster cache|nosql on|off [options...]" and per-proxy "nuster rule
// <name> [options...]") into engine.Rule and housekeeping.Config
// values, mirroring the vsa demo's flag-wiring in
// cmd/ratelimiter-api/main.go but over directive tokens instead of
// process flags.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

const minSizeBytes = 1 << 20 // 1 MiB, spec's size-DSL floor

// ParseSize parses the size DSL: an integer followed by one of
// m|M|g|G (MiB/GiB). Values below 1 MiB clamp to 1 MiB.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("config: empty size")
	}
	n, unit, err := splitTrailingUnit(s, "mMgG")
	if err != nil {
		return 0, fmt.Errorf("config: bad size %q: %w", s, err)
	}
	var mult int64
	switch unit {
	case "m", "M":
		mult = 1 << 20
	case "g", "G":
		mult = 1 << 30
	default:
		return 0, fmt.Errorf("config: bad size unit in %q", s)
	}
	bytes := n * mult
	if bytes < minSizeBytes {
		bytes = minSizeBytes
	}
	return bytes, nil
}

// ParseTTL parses the TTL DSL: an integer followed by one of s|m|h|d.
func ParseTTL(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("config: empty ttl")
	}
	n, unit, err := splitTrailingUnit(s, "smhd")
	if err != nil {
		return 0, fmt.Errorf("config: bad ttl %q: %w", s, err)
	}
	var mult int64
	switch unit {
	case "s":
		mult = 1
	case "m":
		mult = 60
	case "h":
		mult = 3600
	case "d":
		mult = 86400
	default:
		return 0, fmt.Errorf("config: bad ttl unit in %q", s)
	}
	return n * mult, nil
}

// splitTrailingUnit splits s into a leading integer and a trailing
// single-byte unit drawn from allowed, e.g. "64M" -> (64, "M", nil).
func splitTrailingUnit(s string, allowed string) (int64, string, error) {
	if len(s) < 2 {
		return 0, "", fmt.Errorf("too short")
	}
	unit := s[len(s)-1:]
	if !strings.Contains(allowed, unit) {
		return 0, "", fmt.Errorf("unrecognized unit %q", unit)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, "", err
	}
	if n < 0 {
		return 0, "", fmt.Errorf("negative value %d", n)
	}
	return n, unit, nil
}
