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

package logpump

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// EpollLoop is the single-thread, edge-triggered poll loop the daemon
// runs one instance of to drive every container's Pump (spec.md §4.7,
// §5: "a single thread; all sinks are driven by that thread's
// callbacks").
type EpollLoop struct {
	epfd int

	mu      sync.Mutex
	sources map[int]source
}

type source struct {
	onReadable func() error
	onHangup   func()
}

// NewEpollLoop creates the epoll instance.
func NewEpollLoop() (*EpollLoop, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("epoll_create1: %w", err))
	}
	return &EpollLoop{epfd: fd, sources: map[int]source{}}, nil
}

// Register implements PollLoop: adds fd edge-triggered for
// EPOLLIN|EPOLLHUP.
func (l *EpollLoop) Register(fd int, onReadable func() error, onHangup func()) error {
	l.mu.Lock()
	l.sources[fd] = source{onReadable: onReadable, onHangup: onHangup}
	l.mu.Unlock()

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLHUP | unix.EPOLLET, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("epoll_ctl add %d: %w", fd, err))
	}
	return nil
}

// Unregister removes fd from the poll set.
func (l *EpollLoop) Unregister(fd int) error {
	l.mu.Lock()
	delete(l.sources, fd)
	l.mu.Unlock()

	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("epoll_ctl del %d: %w", fd, err))
	}
	return nil
}

// RunOnce blocks for at most timeoutMillis waiting for events and
// dispatches every ready fd's callbacks once; a negative timeout blocks
// indefinitely. Callers typically loop calling RunOnce(-1) on a dedicated
// goroutine for the process lifetime.
func (l *EpollLoop) RunOnce(timeoutMillis int) error {
	events := make([]unix.EpollEvent, 32)
	n, err := unix.EpollWait(l.epfd, events, timeoutMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("epoll_wait: %w", err))
	}

	for i := 0; i < n; i++ {
		ev := events[i]
		fd := int(ev.Fd)

		l.mu.Lock()
		src, ok := l.sources[fd]
		l.mu.Unlock()
		if !ok {
			continue
		}

		if ev.Events&unix.EPOLLIN != 0 {
			if err := src.onReadable(); err != nil {
				pumpLog.WithField("fd", fd).WithError(err).Warn("pump read callback failed")
			}
		}
		if ev.Events&unix.EPOLLHUP != 0 {
			src.onHangup()
		}
	}
	return nil
}

// Close closes the epoll instance.
func (l *EpollLoop) Close() error {
	return unix.Close(l.epfd)
}
