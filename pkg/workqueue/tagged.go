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

package workqueue

import "sync"

// TaggedQueue extends WorkQueue with the original's "debounce" idiom: work
// posted under a user tag replaces any not-yet-run work already queued
// under that same tag, so only the most recent call wins. This is the
// daemon's container-state poll-loop use of DobbyWorkQueue, additive to
// spec.md's plain tagged FIFO.
type TaggedQueue struct {
	*WorkQueue

	mu         sync.Mutex
	generation map[string]uint64 // user tag -> generation still pending
}

// NewTagged returns an empty TaggedQueue.
func NewTagged() *TaggedQueue {
	return &TaggedQueue{WorkQueue: New(), generation: map[string]uint64{}}
}

// PostTaggedWork posts work under userTag. If work posted earlier under the
// same userTag has not yet run, it is superseded: when the FIFO reaches
// that earlier slot it is skipped as a no-op, and only this call's work
// executes.
func (q *TaggedQueue) PostTaggedWork(userTag string, work Func) bool {
	q.mu.Lock()
	myGeneration := q.generation[userTag] + 1
	q.generation[userTag] = myGeneration
	q.mu.Unlock()

	return q.PostWork(func() {
		q.mu.Lock()
		current := q.generation[userTag]
		q.mu.Unlock()
		if current != myGeneration {
			return // superseded by a later PostTaggedWork call
		}
		work()
	})
}

// CancelTaggedWork prevents any not-yet-run work posted under userTag from
// executing.
func (q *TaggedQueue) CancelTaggedWork(userTag string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	// Bump rather than delete, so a later PostTaggedWork cannot reuse the
	// generation of work that is still queued.
	q.generation[userTag]++
}
