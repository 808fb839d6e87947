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

// Package logpump is the container-stdio LoggingPump of spec.md §4.7: a
// per-container poll source over the container's controlling ptty that
// forwards bytes to one of {size-capped file, journald stream, dev/null},
// unregistering itself on hangup. Grounded on
// rdkPlugins/Logging/source/{FileSink,JournaldSink,NullSink,LoggingPlugin}.cpp.
package logpump

import (
	"io"
	"os"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
)

var pumpLog = dobbylog.New("info")

// Unlimited is the sentinel size_limit value meaning "no cap" (the
// original's SSIZE_MAX).
const Unlimited int64 = -1

// Sink is one logging backend a Pump writes bytes to.
type Sink interface {
	io.Writer
	io.Closer
}

// devNullSink discards everything by writing to /dev/null. FileSink does
// not use it; FileSink keeps its own /dev/null handle for its fallback.
type devNullSink struct {
	f *os.File
}

// NewDevNullSink opens /dev/null for writing.
func NewDevNullSink() (Sink, error) {
	f, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	return &devNullSink{f: f}, nil
}

func (s *devNullSink) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *devNullSink) Close() error                { return s.f.Close() }

// FileSink writes to a file up to sizeLimit bytes; once the limit is hit,
// further writes are redirected to /dev/null and a "limit hit" line is
// logged exactly once (spec.md §8's testable property).
type FileSink struct {
	mu         sync.Mutex
	file       *os.File
	devNull    *os.File
	written    int64
	sizeLimit  int64
	limitLogged bool
	containerID string
}

// NewFileSink opens path (creating/truncating it) with the given size
// cap; Unlimited disables the cap. If path cannot be opened, the sink
// falls back to /dev/null immediately rather than failing construction,
// mirroring FileSink's constructor ("couldn't open output file, send to
// /dev/null to avoid blocking").
func NewFileSink(containerID, path string, sizeLimit int64) (*FileSink, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}

	f, ferr := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if ferr != nil {
		pumpLog.WithField("container", containerID).WithField("path", path).WithError(ferr).Warn("failed to open container logfile, sending to /dev/null")
		f = nil
	}

	return &FileSink{
		file:        f,
		devNull:     devNull,
		sizeLimit:   sizeLimit,
		containerID: containerID,
	}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return s.devNull.Write(p)
	}

	if s.sizeLimit == Unlimited || s.written+int64(len(p)) <= s.sizeLimit {
		n, err := s.file.Write(p)
		s.written += int64(n)
		return n, err
	}

	// Partial write up to the cap, then redirect the remainder to
	// /dev/null so the stream keeps draining without growing the file.
	remaining := s.sizeLimit - s.written
	var n int
	var err error
	if remaining > 0 {
		n, err = s.file.Write(p[:remaining])
		s.written += int64(n)
	}
	if err == nil {
		if _, derr := s.devNull.Write(p[remaining:]); derr != nil {
			err = derr
		}
	}

	if !s.limitLogged {
		s.limitLogged = true
		pumpLog.WithField("container", s.containerID).WithField("limit", s.sizeLimit).Warn("container log file hit its size limit, further output redirected to /dev/null")
	}
	return len(p), err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.file != nil {
		err = s.file.Close()
	}
	if derr := s.devNull.Close(); derr != nil && err == nil {
		err = derr
	}
	return err
}

// JournaldSink writes through a pre-opened stream fd (the journal's
// sd_journal_stream_fd()-equivalent connection), at a fixed syslog
// priority.
type JournaldSink struct {
	stream   *os.File
	priority int
}

// NewJournaldSink wraps an already-open stream fd; priority is 0-7
// (syslog severity), per spec.md §3.
func NewJournaldSink(stream *os.File, priority int) *JournaldSink {
	return &JournaldSink{stream: stream, priority: priority}
}

func (s *JournaldSink) Write(p []byte) (int, error) { return s.stream.Write(p) }
func (s *JournaldSink) Close() error                { return s.stream.Close() }
