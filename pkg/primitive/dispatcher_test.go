package primitive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThreadedDispatcherPostRunsInOrder(t *testing.T) {
	d := NewThreadedDispatcher()
	defer d.Stop()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		d.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	d.Sync()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestThreadedDispatcherInvokedFromDispatcherThread(t *testing.T) {
	d := NewThreadedDispatcher()
	defer d.Stop()

	var insideWorker, outsideWorker bool
	outsideWorker = d.InvokedFromDispatcherThread()
	d.Post(func() {
		insideWorker = d.InvokedFromDispatcherThread()
	})
	d.Sync()

	assert.False(t, outsideWorker)
	assert.True(t, insideWorker)
}

func TestThreadedDispatcherSyncFromWorkerDoesNotDeadlock(t *testing.T) {
	d := NewThreadedDispatcher()
	defer d.Stop()

	done := make(chan struct{})
	d.Post(func() {
		d.Sync() // must not deadlock when called re-entrantly
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sync from within dispatcher goroutine deadlocked")
	}
}

func TestThreadedDispatcherStopDoesNotDrain(t *testing.T) {
	d := NewThreadedDispatcher()

	block := make(chan struct{})
	started := make(chan struct{})
	d.Post(func() {
		close(started)
		<-block
	})
	<-started

	var ran bool
	d.Post(func() { ran = true })

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()

	close(block)
	<-stopped
	assert.False(t, ran, "Stop should not drain queued work")
}

func TestThreadedDispatcherFlushDrains(t *testing.T) {
	d := NewThreadedDispatcher()

	var mu sync.Mutex
	ran := []int{}
	for i := 0; i < 3; i++ {
		i := i
		d.Post(func() {
			mu.Lock()
			ran = append(ran, i)
			mu.Unlock()
		})
	}
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, ran)
}
