/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package primitive

import "sync"

// Mutex implements the same abstract Locker interface as *sync.Mutex so a
// CondVar can consume either. The original distinguishes a debug
// error-checking pthread mutex from a release plain one; Go's runtime
// mutex already panics on an unlock of an unlocked mutex in both build
// modes, so there is nothing left to add for the "debug" variant and
// Mutex is a thin, documented alias in spirit rather than a reimplementation.
type Mutex struct {
	mu sync.Mutex
}

// Lock acquires the mutex.
func (m *Mutex) Lock() { m.mu.Lock() }

// Unlock releases the mutex. Like sync.Mutex, unlocking an already-unlocked
// Mutex panics — the Go-native equivalent of the original's debug
// error-checking pthread mutex.
func (m *Mutex) Unlock() { m.mu.Unlock() }

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool { return m.mu.TryLock() }
