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

// ThreadedDispatcher runs a FIFO of closures on a single dedicated
// goroutine, the Go shape of AICommon::ThreadedDispatcher. No other
// package in this module uses it; pkg/nsenter runs its own locked
// goroutine instead.
type ThreadedDispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	done    chan struct{}

	inWorkerMu sync.Mutex
	inWorker   bool
}

// NewThreadedDispatcher starts the worker goroutine and returns the
// dispatcher.
func NewThreadedDispatcher() *ThreadedDispatcher {
	d := &ThreadedDispatcher{
		running: true,
		done:    make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *ThreadedDispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && d.running {
			d.cond.Wait()
		}
		if !d.running {
			d.mu.Unlock()
			return
		}
		f := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.setInWorker(true)
		f()
		d.setInWorker(false)
	}
}

func (d *ThreadedDispatcher) setInWorker(v bool) {
	d.inWorkerMu.Lock()
	d.inWorker = v
	d.inWorkerMu.Unlock()
}

// Post enqueues f for asynchronous execution and returns immediately.
func (d *ThreadedDispatcher) Post(f func()) {
	d.mu.Lock()
	d.queue = append(d.queue, f)
	d.mu.Unlock()
	d.cond.Signal()
}

// Sync enqueues a sentinel and blocks until everything posted before this
// call has executed. Called from within the dispatcher's own goroutine it
// returns immediately, avoiding a self-deadlock.
func (d *ThreadedDispatcher) Sync() {
	if d.InvokedFromDispatcherThread() {
		return
	}
	wait := make(chan struct{})
	d.Post(func() { close(wait) })
	<-wait
}

// Flush drains the queue and stops the worker goroutine, blocking
// unboundedly until it exits.
func (d *ThreadedDispatcher) Flush() {
	d.Post(func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	})
	<-d.done
}

// Stop flips the running flag without draining the remaining queue and
// joins the worker goroutine; unlike Flush it does not wait for pending
// work.
func (d *ThreadedDispatcher) Stop() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	d.cond.Signal()
	<-d.done
}

// InvokedFromDispatcherThread reports whether the calling goroutine is
// currently executing a closure posted to this dispatcher — used to avoid
// deadlocking in re-entrant cleanup (e.g. a callback that calls Sync on
// its own dispatcher).
func (d *ThreadedDispatcher) InvokedFromDispatcherThread() bool {
	d.inWorkerMu.Lock()
	defer d.inWorkerMu.Unlock()
	return d.inWorker
}
