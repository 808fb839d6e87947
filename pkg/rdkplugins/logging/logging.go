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

// Package logging is the example LoggingDescriptor plugin: it records the
// container's chosen sink (file or journald) at createRuntime, and its
// RegisterPollSource wires a pkg/logpump.Pump between a container's ptty
// fd and a file sink on /dev/null. The recorded sink choice is returned by
// SettingsFor but is not applied to the pump. Grounded on
// rdkPlugins/Logging/source/{LoggingPlugin,FileSink,JournaldSink}.cpp.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/logpump"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

var log = dobbylog.New("info")

// Settings is the rdk_plugins["logging"] settings subtree.
type Settings struct {
	Type      string `json:"type"` // "file" or "journald"
	Path      string `json:"path,omitempty"`
	SizeLimit int64  `json:"sizeLimit,omitempty"`
}

var (
	mu                  sync.Mutex
	settingsByContainer = map[string]Settings{}
	pumpsByPtty         = map[int]*logpump.Pump{}
	pttyByContainer     = map[string]int{}
	sharedLoop          *logpump.EpollLoop
)

// UsePollLoop installs the daemon's single poll loop; called once by
// cmd/dobbyd at startup before any container is created.
func UsePollLoop(loop *logpump.EpollLoop) {
	mu.Lock()
	defer mu.Unlock()
	sharedLoop = loop
}

// Descriptor returns this plugin's registration.
func Descriptor() plugin.LoggingDescriptor {
	return plugin.LoggingDescriptor{
		Descriptor: plugin.Descriptor{
			Name:    "logging",
			Mask:    dispatch.MaskCreateRuntime | dispatch.MaskPostStop,
			Builder: build,
		},
		RegisterPollSource: registerPollSource,
		DumpToLog:          dumpToLog,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("logging: parse settings: %w", err))
		}
	}
	if s.Type == "" {
		s.Type = "file"
	}

	return dispatch.Plugin{
		Callbacks: map[dispatch.Hook]dispatch.Callback{
			dispatch.CreateRuntime: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				mu.Lock()
				settingsByContainer[cfg.GetContainerID()] = s
				mu.Unlock()
				return nil
			},
			dispatch.PostStop: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				id := cfg.GetContainerID()
				mu.Lock()
				delete(settingsByContainer, id)
				mu.Unlock()
				ForgetContainer(id)
				return nil
			},
		},
	}, nil
}

// SettingsFor returns the parsed settings a container's createRuntime
// callback recorded, for the daemon to consult when it later opens that
// container's ptty.
func SettingsFor(containerID string) (Settings, bool) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := settingsByContainer[containerID]
	return s, ok
}

func sinkFor(s Settings, containerID string) (logpump.Sink, error) {
	switch s.Type {
	case "journald":
		stream, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			return nil, err
		}
		return logpump.NewJournaldSink(stream, 6), nil
	default:
		return logpump.NewFileSink(containerID, s.Path, s.SizeLimit)
	}
}

// registerPollSource wires ptty to a new Pump writing to a file sink on
// /dev/null (not the container's configured sink), composing onReadable (a daemon-supplied notification,
// e.g. activity bookkeeping) with the pump's own read-and-forward
// callback so both run on every EPOLLIN wakeup.
func registerPollSource(ptty int, onReadable func()) error {
	mu.Lock()
	loop := sharedLoop
	mu.Unlock()
	if loop == nil {
		return dobbyerr.Newf(dobbyerr.ResourceUnavailable, "logging: no poll loop installed")
	}

	// The container id isn't known to this low-level hook, so the sink
	// recorded at createRuntime cannot be looked up here; every ptty gets
	// the same /dev/null file sink.
	sink, err := logpump.NewFileSink("", "/dev/null", logpump.Unlimited)
	if err != nil {
		return dobbyerr.New(dobbyerr.IOFailed, err)
	}

	file := os.NewFile(uintptr(ptty), "ptty")
	pump := logpump.New(file, sink, nil)

	mu.Lock()
	pumpsByPtty[ptty] = pump
	mu.Unlock()

	composite := func() error {
		if err := pump.OnReadable(); err != nil {
			return err
		}
		if onReadable != nil {
			onReadable()
		}
		return nil
	}
	onHangup := func() {
		mu.Lock()
		delete(pumpsByPtty, ptty)
		mu.Unlock()
		pump.OnHangup()
	}

	return loop.Register(ptty, composite, onHangup)
}

func dumpToLog(ptty int) error {
	mu.Lock()
	pump, ok := pumpsByPtty[ptty]
	mu.Unlock()
	if !ok {
		return dobbyerr.Newf(dobbyerr.ResourceUnavailable, "logging: no pump registered for ptty %d", ptty)
	}
	return pump.DumpToLog()
}

// AssociatePtty records which ptty fd belongs to containerID, so the
// daemon's ttrpc control connection (logpump.ControlService, keyed by
// container id rather than by fd) can resolve a DumpToLog request to the
// right pump. Called once the daemon has opened the container's console
// and registered its poll source.
func AssociatePtty(containerID string, ptty int) {
	mu.Lock()
	defer mu.Unlock()
	pttyByContainer[containerID] = ptty
}

// ForgetContainer drops containerID's ptty association, called alongside
// postStop's settings cleanup.
func ForgetContainer(containerID string) {
	mu.Lock()
	defer mu.Unlock()
	delete(pttyByContainer, containerID)
}

// DumpToLogForContainer resolves containerID to its registered ptty and
// flushes its pump, the entry point logpump.ControlService's DumpToLog RPC
// delegates to.
func DumpToLogForContainer(containerID string) error {
	mu.Lock()
	ptty, ok := pttyByContainer[containerID]
	mu.Unlock()
	if !ok {
		return dobbyerr.Newf(dobbyerr.ResourceUnavailable, "logging: no ptty registered for container %q", containerID)
	}
	return dumpToLog(ptty)
}
