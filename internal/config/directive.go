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
	"strconv"
	"strings"

	"nuster-engine/internal/engine"
	"nuster-engine/internal/housekeeping"
)

// Global carries the options recognized under "nuster cache|nosql
// on|off [options...]".
type Global struct {
	Mode     string // "cache" or "nosql"
	Enabled  bool
	DataSize int64
	DictSize int64

	Dir         string
	URI         string
	PurgeMethod string

	Housekeeping housekeeping.Config
}

func newGlobal(mode string) Global {
	return Global{
		Mode:        mode,
		PurgeMethod: "PURGE",
	}
}

// ParseGlobal parses one "nuster cache|nosql <on|off> [options...]"
// directive line.
func ParseGlobal(line string) (Global, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "nuster" {
		return Global{}, fmt.Errorf("config: malformed global directive %q", line)
	}
	mode := fields[1]
	if mode != "cache" && mode != "nosql" {
		return Global{}, fmt.Errorf("config: unknown filter %q (want cache|nosql)", mode)
	}
	g := newGlobal(mode)
	switch fields[2] {
	case "on":
		g.Enabled = true
	case "off":
		g.Enabled = false
		return g, nil
	default:
		return Global{}, fmt.Errorf("config: expected on|off, got %q", fields[2])
	}

	opts, err := tokenizeOptions(fields[3:])
	if err != nil {
		return Global{}, err
	}
	for _, o := range opts {
		switch o.key {
		case "data-size":
			if g.DataSize, err = ParseSize(o.val); err != nil {
				return Global{}, err
			}
		case "dict-size":
			if g.DictSize, err = ParseSize(o.val); err != nil {
				return Global{}, err
			}
		case "dir":
			g.Dir = o.val
			g.Housekeeping.DiskRoot = o.val
		case "uri":
			g.URI = o.val
		case "purge-method":
			g.PurgeMethod = o.val
		case "dict-cleaner":
			if g.Housekeeping.DictCleaner, err = atoi(o.val); err != nil {
				return Global{}, err
			}
		case "data-cleaner":
			if g.Housekeeping.DataCleaner, err = atoi(o.val); err != nil {
				return Global{}, err
			}
		case "disk-cleaner":
			if g.Housekeeping.DiskCleaner, err = atoi(o.val); err != nil {
				return Global{}, err
			}
		case "disk-loader":
			if g.Housekeeping.DiskLoader, err = atoi(o.val); err != nil {
				return Global{}, err
			}
		case "disk-saver":
			if g.Housekeeping.DiskSaver, err = atoi(o.val); err != nil {
				return Global{}, err
			}
		default:
			return Global{}, fmt.Errorf("config: unrecognized global option %q", o.key)
		}
	}
	return g, nil
}

// ParseRule parses one "nuster rule <name> [options...]" directive
// line into an engine.Rule. uuid is the caller-assigned identity (rule
// UUIDs are unique per declared instance even when names repeat, per
// internal/engine/rule.go).
func ParseRule(line string, uuid int) (*engine.Rule, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "nuster" || fields[1] != "rule" {
		return nil, fmt.Errorf("config: malformed rule directive %q", line)
	}
	r := &engine.Rule{UUID: uuid, Name: fields[2], Enabled: true}

	opts, err := tokenizeOptions(fields[3:])
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		switch o.key {
		case "key":
			if r.Components, err = ParseKey(o.val); err != nil {
				return nil, err
			}
		case "ttl":
			if r.TTL, err = ParseTTL(o.val); err != nil {
				return nil, err
			}
		case "code":
			if r.Codes, err = parseCodes(o.val); err != nil {
				return nil, err
			}
		case "disk":
			if r.Disk, err = parseDiskMode(o.val); err != nil {
				return nil, err
			}
		case "etag":
			if r.ETag, err = parseOnOff(o.val); err != nil {
				return nil, err
			}
		case "last-modified":
			if r.LastModified, err = parseOnOff(o.val); err != nil {
				return nil, err
			}
		case "extend":
			if err := parseExtend(r, o.val); err != nil {
				return nil, err
			}
		case "if", "unless":
			// ACL expression text is compiled by the host's ACL engine,
			// which sets r.ACL after parsing the expression named here;
			// nothing for this parser to do with the value.
		default:
			return nil, fmt.Errorf("config: unrecognized rule option %q", o.key)
		}
	}
	if !r.Extend.Valid() {
		return nil, fmt.Errorf("config: rule %q extend percentages sum over 100", r.Name)
	}
	return r, nil
}

func parseCodes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	codes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("config: bad status code %q: %w", p, err)
		}
		codes = append(codes, n)
	}
	return codes, nil
}

func parseDiskMode(s string) (engine.DiskMode, error) {
	switch s {
	case "off":
		return engine.DiskOff, nil
	case "only":
		return engine.DiskOnly, nil
	case "sync":
		return engine.DiskSync, nil
	case "async":
		return engine.DiskAsync, nil
	default:
		return 0, fmt.Errorf("config: unknown disk mode %q", s)
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("config: expected on|off, got %q", s)
	}
}

// parseExtend handles "extend on|off|n1,n2,n3": bare on/off toggles
// ExtendEnabled while leaving the percentages at their zero value;
// three comma-separated percentages both enable auto-extend and set
// them.
func parseExtend(r *engine.Rule, s string) error {
	switch s {
	case "off":
		r.ExtendEnabled = false
		return nil
	case "on":
		r.ExtendEnabled = true
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("config: extend wants on|off|n1,n2,n3, got %q", s)
	}
	var pct [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 100 {
			return fmt.Errorf("config: bad extend percentage %q", p)
		}
		pct[i] = uint8(n)
	}
	r.Extend = pct
	r.ExtendEnabled = true
	return nil
}

type option struct {
	key string
	val string
}

// tokenizeOptions walks the remaining directive fields, pairing each
// recognized flag-like token with the value that follows it. Tokens
// are consumed two at a time ("key value"), matching the teacher's
// flag.String-style "name then value" shape generalized from process
// flags to directive words.
func tokenizeOptions(fields []string) ([]option, error) {
	var opts []option
	for i := 0; i < len(fields); {
		key := fields[i]
		if i+1 >= len(fields) {
			return nil, fmt.Errorf("config: option %q missing a value", key)
		}
		opts = append(opts, option{key: key, val: fields[i+1]})
		i += 2
	}
	return opts, nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: expected integer, got %q", s)
	}
	return n, nil
}
