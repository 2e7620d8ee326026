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

// Package api exposes the engine's PURGE and stats surfaces over
// net/http, the same thin-handler-over-a-core-store shape the
// teacher's api.Server uses for /check and /release.
package api

import (
	"io"
	"net/http"
	"strings"

	"nuster-engine/pkg/fingerprint"
)

// httpRequest adapts *http.Request to fingerprint.Request, buffering
// the body once so repeated Body() calls during key-building don't
// drain the underlying reader.
type httpRequest struct {
	r        *http.Request
	scheme   string
	bodyOnce []byte
	bodyRead bool
}

func newHTTPRequest(r *http.Request) *httpRequest {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return &httpRequest{r: r, scheme: scheme}
}

func (h *httpRequest) Method() string { return h.r.Method }
func (h *httpRequest) Scheme() string { return h.scheme }
func (h *httpRequest) Host() string   { return h.r.Host }
func (h *httpRequest) URI() string    { return h.r.URL.RequestURI() }
func (h *httpRequest) Path() string   { return h.r.URL.Path }
func (h *httpRequest) Query() string  { return h.r.URL.RawQuery }

func (h *httpRequest) Header(name string) string { return h.r.Header.Get(name) }

func (h *httpRequest) Cookie(name string) string {
	c, err := h.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *httpRequest) Body() []byte {
	if h.bodyRead {
		return h.bodyOnce
	}
	h.bodyRead = true
	if h.r.Body == nil {
		return nil
	}
	b, _ := io.ReadAll(h.r.Body)
	h.bodyOnce = b
	return b
}

func (h *httpRequest) StatusCode() int { return 0 }

// matchesPurgeMethod reports whether r's method equals the configured
// purge token, case-insensitively as HTTP methods conventionally are
// compared.
func matchesPurgeMethod(r *http.Request, purgeMethod string) bool {
	return strings.EqualFold(r.Method, purgeMethod)
}

var _ fingerprint.Request = (*httpRequest)(nil)
