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
	"strings"

	"nuster-engine/pkg/fingerprint"
)

// ParseKey parses the `.`-separated key DSL, e.g.
// "method.scheme.host.uri.header_Accept.cookie_sid", into the ordered
// component list build_key iterates.
func ParseKey(s string) ([]fingerprint.Component, error) {
	if s == "" {
		return nil, fmt.Errorf("config: empty key")
	}
	parts := strings.Split(s, ".")
	components := make([]fingerprint.Component, 0, len(parts))
	for _, p := range parts {
		c, err := parseComponent(p)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, nil
}

func parseComponent(tok string) (fingerprint.Component, error) {
	if name, ok := strings.CutPrefix(tok, "param_"); ok {
		return fingerprint.Component{Type: fingerprint.Param, Name: name}, nil
	}
	if name, ok := strings.CutPrefix(tok, "header_"); ok {
		return fingerprint.Component{Type: fingerprint.Header, Name: name}, nil
	}
	if name, ok := strings.CutPrefix(tok, "cookie_"); ok {
		return fingerprint.Component{Type: fingerprint.Cookie, Name: name}, nil
	}
	switch tok {
	case "method":
		return fingerprint.Component{Type: fingerprint.Method}, nil
	case "scheme":
		return fingerprint.Component{Type: fingerprint.Scheme}, nil
	case "host":
		return fingerprint.Component{Type: fingerprint.Host}, nil
	case "uri":
		return fingerprint.Component{Type: fingerprint.URI}, nil
	case "path":
		return fingerprint.Component{Type: fingerprint.Path}, nil
	case "delimiter":
		return fingerprint.Component{Type: fingerprint.Delimiter}, nil
	case "query":
		return fingerprint.Component{Type: fingerprint.Query}, nil
	case "body":
		return fingerprint.Component{Type: fingerprint.Body}, nil
	default:
		return fingerprint.Component{}, fmt.Errorf("config: unrecognized key component %q", tok)
	}
}
