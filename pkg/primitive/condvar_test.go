package primitive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForZeroChecksOnce(t *testing.T) {
	c := NewCondVar()
	var mu sync.Mutex
	mu.Lock()
	defer mu.Unlock()

	assert.False(t, c.WaitFor(&mu, 0, func() bool { return false }))
	assert.True(t, c.WaitFor(&mu, 0, func() bool { return true }))
}

func TestWaitForWakesOnNotify(t *testing.T) {
	c := NewCondVar()
	var mu sync.Mutex
	ready := false

	go func() {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		ready = true
		mu.Unlock()
		c.NotifyAll()
	}()

	mu.Lock()
	defer mu.Unlock()
	ok := c.WaitFor(&mu, time.Second, func() bool { return ready })
	assert.True(t, ok)
}

func TestWaitForTimesOut(t *testing.T) {
	c := NewCondVar()
	var mu sync.Mutex
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	ok := c.WaitFor(&mu, 20*time.Millisecond, func() bool { return false })
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
