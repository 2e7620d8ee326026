//go:build linux

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

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

func newFutexLock() Locker {
	return &ticketLock{}
}

// parkWait blocks the calling goroutine on the futex word until a waker
// calls FUTEX_WAKE on it, or the word no longer reads 1 (lost the race,
// skip the syscall).
func parkWait(word *int32) {
	if atomic.LoadInt32(word) != 1 {
		return
	}
	_ = unix.FutexWait(word, 1, nil)
}

// wakeAll wakes every goroutine parked on word's futex.
func wakeAll(word *int32) {
	_, _ = unix.FutexWake(word, 1<<30)
}
