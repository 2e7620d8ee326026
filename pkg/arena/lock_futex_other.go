//go:build !linux

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

package arena

import "runtime"

// newFutexLock falls back to a spin/yield ticketLock off Linux: no real
// futex syscall is available, so waiters spin with cooperative yielding
// and race for the lock in no defined order.
func newFutexLock() Locker {
	return &ticketLock{}
}

func parkWait(word *int32) {
	runtime.Gosched()
}

func wakeAll(word *int32) {
	// Nothing to wake explicitly; spinners will observe the CAS on their
	// next scheduling quantum.
}
