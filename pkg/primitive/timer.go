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

import (
	"sync"
	"time"
)

// Timer fires a callback once or repeatedly after a timeout, ported from
// AppInfrastructure/Common/source/Timer.cpp. Per spec.md §9's open
// question, the recurring variant's next deadline is computed by
// `nextTimeout += interval` after the callback returns, advancing from the
// previous deadline rather than from the time of return — preserved here exactly as in
// the original, so a callback slower than interval causes catch-up fires
// on the next tick rather than a drift-free but skipped tick.
type Timer struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewOneShot starts a timer that invokes f once after timeout unless
// Cancel is called first.
func NewOneShot(timeout time.Duration, f func()) *Timer {
	t := &Timer{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(t.done)
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			if f != nil {
				f()
			}
		case <-t.stop:
		}
	}()
	return t
}

// NewRecurring starts a timer that invokes f every interval until Cancel
// is called.
func NewRecurring(interval time.Duration, f func()) *Timer {
	t := &Timer{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(t.done)
		nextTimeout := time.Now().Add(interval)
		for {
			remaining := time.Until(nextTimeout)
			if remaining < 0 {
				remaining = 0
			}
			timer := time.NewTimer(remaining)
			select {
			case <-timer.C:
				if f != nil {
					f()
				}
				nextTimeout = nextTimeout.Add(interval)
			case <-t.stop:
				timer.Stop()
				return
			}
		}
	}()
	return t
}

// Cancel stops the timer. If the action is currently executing, Cancel
// blocks until it finishes, matching the original destructor's behavior.
// Calling Cancel more than once is safe; only the first call has effect.
func (t *Timer) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}
