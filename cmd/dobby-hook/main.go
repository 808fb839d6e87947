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

// dobby-hook is the HookEntry of spec.md §4: the binary the OCI runtime's
// hooks[] array execs once per lifecycle hook point. It reads the
// runtime's state blob on stdin, re-parses the bundle's config.json,
// drives the Dispatcher for the one requested hook point, and persists
// any mutations back to the bundle. Grounded on skel.go's
// decode-stdin/dispatch/encode-stdout shape, rewritten against the OCI
// hook contract (argv is the hook name; the wire format is plain runtime
// state, not NRI's Request/Result pair).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins"
	"github.com/rdkcentral/Dobby-sub004/pkg/version"
)

var (
	searchPath   string
	logLevel     string
	printVersion bool
	log          *logrus.Logger
)

func main() {
	flag.StringVar(&searchPath, "plugin-path", "/usr/lib/rdk/plugins", "directory to scan for plugin .so files")
	flag.StringVar(&logLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.BoolVar(&printVersion, "version", false, "print the hook framework's version and exit")
	flag.Parse()

	if printVersion {
		fmt.Println(version.GetFromBuildInfo())
		return
	}

	log = dobbylog.New(logLevel)

	if flag.NArg() < 1 {
		log.Error("missing hook name argument")
		os.Exit(1)
	}
	hook := dispatch.Hook(flag.Arg(0))
	if !hook.Valid() {
		log.Errorf("unknown hook point %q", hook)
		os.Exit(1)
	}

	if err := run(hook); err != nil {
		log.WithField("hook", hook).Error(err)
		if hook.Policy() == dispatch.FailFast {
			os.Exit(1)
		}
		// Continue-on-error hooks are merely logged: the runtime expects
		// teardown hooks to always "succeed" from its perspective (spec.md §7).
	}
}

// run is HookEntry's control flow (spec.md §2): decode the runtime's
// stdin state blob, load the bundle config, build the plugin set declared
// in rdk_plugins, run the dispatcher, and persist any mutations.
func run(hook dispatch.Hook) error {
	var state config.RuntimeState
	if err := json.NewDecoder(os.Stdin).Decode(&state); err != nil {
		return err
	}

	cfg, err := config.Load(state)
	if err != nil {
		return err
	}

	registry := plugin.NewRegistry()
	if err := rdkplugins.RegisterBuiltins(registry); err != nil {
		return err
	}
	if err := registry.Scan(searchPath); err != nil {
		log.WithField("path", searchPath).WithError(err).Warn("plugin scan failed, continuing with built-ins only")
	}

	settings := map[string][]byte{}
	for _, name := range cfg.PluginNames() {
		raw, ok := cfg.PluginSettings(name)
		if !ok {
			continue
		}
		settings[name] = raw
	}

	plugins, err := registry.Build(settings)
	if err != nil {
		return err
	}

	if err := dispatch.Run(hook, plugins, cfg, state); err != nil {
		return err
	}

	return cfg.Save()
}
