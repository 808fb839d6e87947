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

// dobbyd is the long-lived daemon of spec.md §5: it owns the single
// WorkQueue event loop and the single epoll-based LoggingPump poll loop
// every container's logging plugin registers against, outliving any one
// hook invocation (those run as one-shot cmd/dobby-hook processes).
// Grounded on daemon/lib/source/DobbyWorkQueue.cpp's event-loop-owner
// shape and the plugin search-path/loglevel settings idiom of
// plugins/hook-injector and plugins/device-injector's flag/yaml config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/logpump"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/logging"
	"github.com/rdkcentral/Dobby-sub004/pkg/version"
	"github.com/rdkcentral/Dobby-sub004/pkg/workqueue"
)

// settings is the daemon's YAML configuration file shape.
type settings struct {
	PluginPath      string `json:"pluginPath"`
	LogLevel        string `json:"logLevel"`
	ContainerPollMS int    `json:"containerPollMs"`
	ControlSocket   string `json:"controlSocket"`
}

func defaultSettings() settings {
	return settings{
		PluginPath:      "/usr/lib/rdk/plugins",
		LogLevel:        "info",
		ContainerPollMS: 1000,
		ControlSocket:   "/run/dobbyd/control.sock",
	}
}

func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, err
	}
	return s, nil
}

func main() {
	configPath := flag.String("config", "", "path to the daemon's YAML settings file")
	printVersion := flag.Bool("version", false, "print the daemon's version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.GetFromBuildInfo())
		return
	}

	s, err := loadSettings(*configPath)
	if err != nil {
		dobbylog.New("info").WithField("config", *configPath).Fatalf("failed to load daemon settings: %v", err)
	}

	log := dobbylog.New(s.LogLevel)

	registry := plugin.NewRegistry()
	if err := rdkplugins.RegisterBuiltins(registry); err != nil {
		log.Fatalf("failed to register built-in plugins: %v", err)
	}
	if err := registry.Scan(s.PluginPath); err != nil {
		log.WithField("path", s.PluginPath).WithError(err).Warn("plugin scan failed, continuing with built-ins only")
	}

	loop, err := logpump.NewEpollLoop()
	if err != nil {
		log.Fatalf("failed to create logging poll loop: %v", err)
	}
	defer loop.Close()
	logging.UsePollLoop(loop)

	go runPollLoop(loop, log)

	ctrlCtx, stopControl := context.WithCancel(context.Background())
	defer stopControl()
	if _, err := startControlServer(ctrlCtx, s.ControlSocket); err != nil {
		log.WithField("socket", s.ControlSocket).WithError(err).Warn("control socket unavailable, DumpToLog RPC disabled")
	}

	wq := workqueue.NewTagged()
	stopPolling := startContainerPoll(wq, s.ContainerPollMS, log)
	defer stopPolling()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("shutting down")
		stopControl()
		wq.Exit()
	}()

	log.WithField("pluginPath", s.PluginPath).WithField("version", version.GetFromBuildInfo()).Info("dobbyd started")
	wq.Run()
}

// runPollLoop drives loop forever on its own goroutine, matching spec.md
// §4.7's "a single thread; all sinks are driven by that thread's
// callbacks" — this goroutine is that thread.
func runPollLoop(loop *logpump.EpollLoop, log interface{ Warnf(string, ...any) }) {
	for {
		if err := loop.RunOnce(-1); err != nil {
			log.Warnf("logging poll loop iteration failed: %v", err)
		}
	}
}

// startContainerPoll posts a debounced tick onto wq on every interval,
// exercising TaggedQueue's "only the latest debounce wins" semantics the
// way the original's container-state poll loop relies on it. Returns a
// stop function. The tick itself is a placeholder for whatever
// container-lifecycle reconciliation the daemon wants to run inline with
// the rest of its event-loop-owned state.
func startContainerPoll(wq *workqueue.TaggedQueue, intervalMS int, log interface{ Debug(...any) }) func() {
	if intervalMS <= 0 {
		intervalMS = 1000
	}
	ticker := time.NewTicker(time.Duration(intervalMS) * time.Millisecond)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				wq.PostTaggedWork("container-poll", func() {
					log.Debug("container poll tick")
				})
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}
