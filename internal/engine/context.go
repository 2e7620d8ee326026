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

package engine

import (
	"strconv"
	"time"

	"nuster-engine/pkg/dict"
	"nuster-engine/pkg/fingerprint"
)

// Context drives one request through the state machine. It is not
// safe for concurrent use; one Context belongs to exactly one
// in-flight request/response pair, matching the host's single-threaded
// per-worker request dispatch.
type Context struct {
	eng *Engine
	req fingerprint.Request

	State          State
	TerminalStatus int // valid when State == Done and no body should stream

	pre   *fingerprint.Prebuilt
	stash *fingerprint.Stash

	rule  *Rule
	entry *dict.Entry

	now int64
}

// NewContext starts a fresh context in state INIT for req, evaluated as
// of now (unix seconds). Passing now explicitly (rather than calling
// time.Now() internally) keeps the state machine deterministic for
// property tests.
func NewContext(e *Engine, req fingerprint.Request, now int64) *Context {
	return &Context{eng: e, req: req, now: now}
}

func isCacheableMethod(method string) bool {
	switch method {
	case "GET", "HEAD":
		return true
	default:
		return false
	}
}

// Init runs the request-phase classification: method check, then rule
// iteration building/stashing each rule's fingerprint and probing the
// dict, stopping at the first hit or first accepting miss.
func (c *Context) Init() {
	c.eng.bumpReqTotal()

	if !isCacheableMethod(c.req.Method()) {
		c.State = Bypass
		return
	}

	c.pre = fingerprint.Prebuild(c.req)
	c.stash = fingerprint.NewStash()
	c.State = Init

	for _, r := range c.eng.Rules {
		if c.State != Init {
			return
		}
		if !r.Enabled {
			continue
		}
		key, err := fingerprint.BuildKey(c.pre, r.Components, c.req)
		if err != nil {
			continue // malformed component on this rule; try the next rule
		}
		hash := fingerprint.Hash(key)
		c.stash.Put(r.UUID, fingerprint.Fingerprint{Hash: hash, Key: key})

		if entry, ok := c.eng.Dict.Get(hash, key); ok {
			if entry.State == dict.Valid && entry.ExpiredAt(c.now) {
				// A read in the auto-extend grace window may push expire
				// forward; if it does, the entry is served as a hit below.
				maybeExtend(r, entry, c.now)
			}
			if entry.State == dict.Valid && !entry.ExpiredAt(c.now) {
				verdict := evaluateConditional(c.req, entry.ETag, entry.LastModified)
				if verdict.terminal {
					c.State = Done
					c.TerminalStatus = verdict.status
					return
				}
				maybeExtend(r, entry, c.now)
				c.rule = r
				c.entry = entry
				if entry.Data != nil {
					c.State = Hit
				} else if entry.DiskFile != "" {
					c.State = HitDisk
				} else {
					// VALID but neither a memory body nor a disk file
					// (a disk entry whose file vanished); fall through
					// as a miss.
				}
				if c.State != Init {
					c.eng.bumpHit()
					return
				}
			} else if entry.State == dict.Creating {
				// Another writer already owns this key; joining it as
				// a second writer would leave two VALID entries behind
				// once both finish. Bow out instead of racing Set.
				c.rule = r
				c.State = Wait
				return
			}
			// INVALID or EXPIRED: treat as miss, continue below.
		}

		if r.Test(c.req, false) {
			c.rule = r
			c.State = Pass
			return
		}
	}

	if c.State == Init {
		c.State = Bypass
	}
}

// AttachData marks the HIT entry's body as read by this context.
// Callers must call Detach when streaming finishes or the client
// disconnects.
func (c *Context) AttachData() {
	if c.entry != nil && c.entry.Data != nil {
		c.entry.Data.Attach()
	}
}

// Detach releases a HIT/CREATE body reference.
func (c *Context) Detach() {
	if c.entry != nil && c.entry.Data != nil {
		c.entry.Data.Detach()
	}
}

// synthesizeETag builds an etag from the fingerprint hash, a body
// length and a timestamp when upstream didn't supply one.
func synthesizeETag(hash uint64, length int64, now int64) string {
	return `"` + strconv.FormatUint(hash, 16) + "-" + strconv.FormatInt(length, 16) + "-" + strconv.FormatInt(now, 16) + `"`
}

func formatHTTPDate(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format(httpTimeFormat)
}

const httpTimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// ProcessResponseHeaders runs the response-phase decision. If the
// context is still INIT (header phase never matched a rule on the
// request alone), rules are re-tested against the response. If the
// context is PASS, the response is validated against the matched
// rule's status allowlist and, on acceptance, an entry and a fresh Data
// body are allocated and the context moves to CREATE.
func (c *Context) ProcessResponseHeaders(status int, upstreamETag, upstreamLastModified string, contentLength int64) error {
	if c.State == Init {
		for _, r := range c.eng.Rules {
			if !r.Enabled || !r.AcceptsStatus(status) {
				continue
			}
			if r.Test(c.req, true) {
				c.rule = r
				c.State = Pass
				break
			}
		}
		if c.State != Pass {
			c.State = Bypass
			return nil
		}
	}

	if c.State != Pass {
		return nil
	}
	if !c.rule.AcceptsStatus(status) {
		c.State = Bypass
		return nil
	}

	fp, ok := c.stash.Get(c.rule.UUID)
	if !ok {
		c.State = Bypass
		return ErrKeyBuild
	}

	etag := upstreamETag
	if etag == "" && c.rule.ETag {
		etag = synthesizeETag(fp.Hash, contentLength, c.now)
	}
	lastModified := upstreamLastModified
	if lastModified == "" && c.rule.LastModified {
		lastModified = formatHTTPDate(c.now)
	}

	entry, created, err := c.eng.Dict.CreateIfAbsent(fp.Hash, fp.Key, c.now, c.rule.TTL)
	if err != nil {
		c.State = Bypass
		c.eng.bumpAbort()
		return ErrArenaFull
	}
	if !created {
		// Another writer raced ahead and claimed this key between our
		// INIT-phase lookup and now; don't insert a second entry.
		c.State = Wait
		return nil
	}
	entry.RuleUUID = c.rule.UUID
	entry.ETag = etag
	entry.LastModified = lastModified
	entry.Host = c.pre.Host
	entry.Path = c.pre.Path
	entry.ContentLength = contentLength

	entry.Data = c.eng.Chain.NewData()
	c.entry = entry
	c.State = Create
	c.eng.bumpFetch()
	return nil
}

// AppendChunk forwards one payload chunk into the entry's Data body
// during CREATE. On arena exhaustion the entry and its Data are
// invalidated and the context moves to BYPASS, per the error-handling
// design: the request path never hard-fails, it degrades.
func (c *Context) AppendChunk(payload []byte) error {
	if c.State != Create {
		return nil
	}
	if err := c.eng.Chain.Append(c.entry.Data, payload); err != nil {
		c.entry.State = dict.Invalid
		c.entry.Data.Invalidate()
		c.entry.Data = nil
		c.State = Bypass
		c.eng.bumpAbort()
		return ErrArenaFull
	}
	return nil
}

// EndMessage completes the CREATE phase: the entry transitions to
// VALID and the context to DONE. This method only performs the
// in-memory transition and writes nothing to disk. The housekeeping
// saver later writes DiskAsync entries; nothing in this module writes a
// DiskSync or DiskOnly entry to disk when its message ends, and the
// memory body of such an entry is kept.
func (c *Context) EndMessage() {
	if c.State != Create {
		return
	}
	c.entry.State = dict.Valid
	c.State = Done
}

// Abort marks an in-flight CREATE as failed (upstream error or client
// disconnect mid-CREATE): the entry and its Data become INVALID.
func (c *Context) Abort() {
	if c.entry != nil {
		c.entry.State = dict.Invalid
		if c.entry.Data != nil {
			c.entry.Data.Invalidate()
		}
	}
	c.State = InvalidState
}

// Rule returns the rule this context matched, if any.
func (c *Context) Rule() *Rule { return c.rule }

// Entry returns the dict entry this context is attached to, if any.
func (c *Context) Entry() *dict.Entry { return c.entry }
