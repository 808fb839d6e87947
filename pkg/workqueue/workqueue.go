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

// Package workqueue implements the daemon's single-reader, multi-writer
// tagged work queue of spec.md §4.8/§5, ported from
// daemon/lib/source/DobbyWorkQueue.cpp in the original source.
package workqueue

import (
	"sync"
	"time"
)

// Func is a unit of work posted to the queue.
type Func func()

type item struct {
	tag  uint64
	fn   Func
}

// WorkQueue is a FIFO owned by a single "event loop" goroutine (the one
// that calls Run/RunFor/RunUntil). Other goroutines post work onto it with
// PostWork (fire-and-forget) or DoWork (block until it has run).
type WorkQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []item
	ctr   uint64

	completeMu   sync.Mutex
	completeCond *sync.Cond
	completed    uint64

	runningMu sync.Mutex
	running   bool
	exit      bool
}

// New returns an empty WorkQueue.
func New() *WorkQueue {
	q := &WorkQueue{}
	q.cond = sync.NewCond(&q.mu)
	q.completeCond = sync.NewCond(&q.completeMu)
	return q
}

func (q *WorkQueue) onEventLoop() bool {
	q.runningMu.Lock()
	defer q.runningMu.Unlock()
	return q.running
}

// DoWork enqueues work and blocks until it has executed, returning true.
// Called from the event-loop goroutine itself, work runs inline instead of
// being queued, preventing a self-deadlock.
func (q *WorkQueue) DoWork(work Func) bool {
	if q.onEventLoop() {
		work()
		return true
	}

	tag := q.enqueue(work)

	q.completeMu.Lock()
	for q.completed < tag {
		q.completeCond.Wait()
	}
	q.completeMu.Unlock()
	return true
}

// PostWork enqueues work and returns immediately without waiting for it to
// run.
func (q *WorkQueue) PostWork(work Func) bool {
	q.enqueue(work)
	return true
}

func (q *WorkQueue) enqueue(work Func) uint64 {
	q.mu.Lock()
	q.ctr++
	tag := q.ctr
	q.queue = append(q.queue, item{tag: tag, fn: work})
	q.mu.Unlock()
	q.cond.Signal()
	return tag
}

// Exit unblocks Run/RunFor/RunUntil.
func (q *WorkQueue) Exit() {
	q.mu.Lock()
	q.exit = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Run runs the event loop until Exit is called, then returns true.
func (q *WorkQueue) Run() bool {
	return q.RunUntil(time.Time{})
}

// RunFor runs the event loop for the given duration or until Exit is
// called, whichever is sooner.
func (q *WorkQueue) RunFor(d time.Duration) bool {
	return q.RunUntil(time.Now().Add(d))
}

// RunUntil runs the event loop until the deadline passes or Exit is
// called. A zero deadline means run forever. Returns true iff Exit was
// called (as opposed to timing out).
func (q *WorkQueue) RunUntil(deadline time.Time) bool {
	q.runningMu.Lock()
	q.running = true
	q.runningMu.Unlock()

	q.mu.Lock()
	for {
		for len(q.queue) > 0 {
			it := q.queue[0]
			q.queue = q.queue[1:]
			q.mu.Unlock()

			if it.fn != nil {
				it.fn()
			}

			q.completeMu.Lock()
			q.completed = it.tag
			q.completeMu.Unlock()
			q.completeCond.Broadcast()

			q.mu.Lock()
		}

		if q.exit {
			break
		}

		if deadline.IsZero() {
			q.cond.Wait()
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if !q.waitWithTimeout(remaining) {
			break
		}
	}

	// No drain here: run_for/run_until exit on timeout regardless of
	// pending work, unlike Flush's unbounded drain-wait. Whatever is
	// still queued runs on the next Run/RunFor/RunUntil call.
	exited := q.exit
	q.exit = false
	q.mu.Unlock()

	q.runningMu.Lock()
	q.running = false
	q.runningMu.Unlock()

	return exited
}

// waitWithTimeout waits on q.cond (q.mu held) until woken or remaining
// elapses; returns false on timeout. q.mu is held both on entry and exit.
func (q *WorkQueue) waitWithTimeout(remaining time.Duration) bool {
	woken := make(chan struct{})
	timer := time.AfterFunc(remaining, func() {
		q.mu.Lock()
		close(woken)
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	for len(q.queue) == 0 && !q.exit {
		select {
		case <-woken:
			return false
		default:
		}
		q.cond.Wait()
	}
	return true
}
