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

package fingerprint

import "strings"

// Prebuilt holds the request fields every rule might reference, captured
// once per stream so repeated BuildKey calls (one per rule) don't
// re-derive them. Copies are taken so later mutation of the underlying
// request (e.g. buffer reuse by the host) can't corrupt a stashed key.
type Prebuilt struct {
	Method           string
	Scheme           string
	Host             string
	URI              string
	Path             string
	HasQuery         bool
	Query            string
	Cookie           string
	ContentType      string
	TransferEncoding string
	Body             []byte
}

// Prebuild extracts and stabilizes the fields BuildKey needs from req.
// Call once per stream before iterating rules.
func Prebuild(req Request) *Prebuilt {
	uri := req.URI()
	query := req.Query()
	return &Prebuilt{
		Method:           req.Method(),
		Scheme:           req.Scheme(),
		Host:             req.Host(),
		URI:              uri,
		Path:             req.Path(),
		HasQuery:         query != "",
		Query:            query,
		Cookie:           req.Header("Cookie"),
		ContentType:      req.Header("Content-Type"),
		TransferEncoding: req.Header("Transfer-Encoding"),
		Body:             append([]byte(nil), req.Body()...),
	}
}

// paramValue scans a query string (k=v&k2=v2...) for name and returns its
// value, or "" if absent.
func paramValue(query, name string) string {
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, found := strings.Cut(pair, "=")
		if found && k == name {
			return v
		}
		if !found && k == name {
			return ""
		}
	}
	return ""
}
