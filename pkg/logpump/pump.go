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
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// readBufSize is the fixed-size buffer the pump reads into on each
// EPOLLIN wakeup, matching the original's fixed-size read loop.
const readBufSize = 4096

// Pump binds one Sink to one container's controlling ptty fd, registering
// itself as an edge-triggered poll source (spec.md §4.7). A pump's sink
// write is mutexed so a synchronous DumpToLog flush can never interleave
// with the poll-loop callback's own write.
type Pump struct {
	mu          sync.Mutex
	sink        Sink
	ptty        *os.File
	controlConn io.Closer // non-nil control connection closed alongside ptty on hangup
	bytesRead   int64

	onUnregister func()
}

// New returns a Pump over ptty writing to sink. controlConn may be nil;
// if set, it is closed alongside ptty when EPOLLHUP fires.
func New(ptty *os.File, sink Sink, controlConn io.Closer) *Pump {
	return &Pump{ptty: ptty, sink: sink, controlConn: controlConn}
}

// Fd returns the ptty file descriptor this pump polls, for registration
// with an external poll loop.
func (p *Pump) Fd() int {
	return int(p.ptty.Fd())
}

// OnReadable is the poll loop's EPOLLIN callback: read in a fixed-size
// buffer loop until EAGAIN, forwarding every chunk read to the sink under
// the pump's lock.
func (p *Pump) OnReadable() error {
	buf := make([]byte, readBufSize)
	for {
		n, err := unix.Read(p.Fd(), buf)
		if n > 0 {
			p.mu.Lock()
			p.bytesRead += int64(n)
			_, werr := p.sink.Write(buf[:n])
			p.mu.Unlock()
			if werr != nil {
				return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("logpump: sink write: %w", werr))
			}
		}
		if err == unix.EAGAIN {
			return nil
		}
		if err != nil {
			return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("logpump: read ptty: %w", err))
		}
		if n == 0 {
			return nil
		}
	}
}

// OnHangup is the poll loop's EPOLLHUP callback: it removes the pump from
// the poll loop (via the onUnregister hook set by RegisterWith) and
// closes both the ptty and any control connection.
func (p *Pump) OnHangup() {
	if p.onUnregister != nil {
		p.onUnregister()
	}
	p.ptty.Close()
	if p.controlConn != nil {
		p.controlConn.Close()
	}
	p.sink.Close()
}

// DumpToLog synchronously flushes any currently-available ptty data to
// the sink; it's the ttrpc-exposed entry point a control connection calls
// for an on-demand log snapshot. It takes the same lock OnReadable does,
// so a flush and a poll-loop callback can never interleave.
func (p *Pump) DumpToLog() error {
	return p.OnReadable()
}

// BytesWritten reports how many bytes have been read from the ptty so
// far, for tests and diagnostics.
func (p *Pump) BytesWritten() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytesRead
}

// PollLoop is the minimal registration surface a Pump needs from its host
// event loop (spec.md §4.7: "registered on an external poll loop").
type PollLoop interface {
	Register(fd int, onReadable func() error, onHangup func()) error
	Unregister(fd int) error
}

// RegisterWith wires p into loop: onReadable/onHangup are bound to
// p.OnReadable/p.OnHangup, and p.onUnregister is set so OnHangup can
// remove itself from loop before closing its fds.
func (p *Pump) RegisterWith(loop PollLoop) error {
	p.onUnregister = func() { _ = loop.Unregister(p.Fd()) }
	return loop.Register(p.Fd(), p.OnReadable, p.OnHangup)
}
