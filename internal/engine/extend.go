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

import "nuster-engine/pkg/dict"

// subInterval classifies now's position within [ctime, expire] into one
// of four sub-intervals whose lengths are (100-e0-e1-e2)%, e0%, e1%,
// e2% of the TTL, in that order. Reads after expire (in the grace
// window) are attributed to sub-interval 3, same as reads in the last
// configured slice, since the grace window is defined relative to e2.
func subInterval(ext Extend, ctime, expire, now int64) int {
	if expire <= ctime {
		return 0
	}
	ttl := expire - ctime
	e0 := int64(ext[0])
	e1 := int64(ext[1])
	e2 := int64(ext[2])

	bound1 := ctime + ttl*(100-e0-e1-e2)/100
	bound2 := ctime + ttl*(100-e1-e2)/100
	bound3 := ctime + ttl*(100-e2)/100

	switch {
	case now < bound1:
		return 0
	case now < bound2:
		return 1
	case now < bound3:
		return 2
	default:
		return 3
	}
}

// maybeExtend implements spec's auto-TTL-extend read-path hook: bump
// the access counter for now's sub-interval, and if now falls in the
// grace window [expire, expire+e2%*TTL] with access[3] >= access[2] >=
// access[1], push expire forward by one full TTL and roll counters.
func maybeExtend(r *Rule, e *dict.Entry, now int64) {
	if !r.ExtendEnabled || r.TTL <= 0 {
		return
	}
	idx := subInterval(r.Extend, e.CTime, e.Expire, now)
	e.Access[idx]++

	graceEnd := e.Expire + r.TTL*int64(r.Extend[2])/100
	if now < e.Expire || now > graceEnd {
		return
	}
	if e.Access[3] >= e.Access[2] && e.Access[2] >= e.Access[1] {
		e.Expire += r.TTL
		e.Access = [4]uint32{}
	}
}
