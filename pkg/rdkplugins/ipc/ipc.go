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

// Package ipc is an example rdk_plugins implementation exercising
// ConfigMutationAPI.AddEnvironmentVar/AddMount for the D-Bus proxy
// environment a container needs to reach the host's bus daemons, grounded
// on rdkPlugins/Common/source/DobbyRdkPluginProxy.cpp. The proxy process
// itself (the actual D-Bus filtering/forwarding) is out of scope per the
// framework's Non-goals; this plugin only wires the environment and bind
// mount a real proxy would rely on.
package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

// Settings is the rdk_plugins["ipc"] settings subtree.
type Settings struct {
	EnableDbusSystem     bool   `json:"enableDbusSystem,omitempty"`
	EnableDbusSession    bool   `json:"enableDbusSession,omitempty"`
	EnableIDMapping      bool   `json:"enableIdMapping,omitempty"`
	SystemBusSocketPath  string `json:"systemBusSocketPath,omitempty"`
	SessionBusSocketPath string `json:"sessionBusSocketPath,omitempty"`
}

// Descriptor returns this plugin's registration.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "ipc",
		Mask:    dispatch.MaskCreateContainer,
		Builder: build,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("ipc: parse settings: %w", err))
		}
	}

	return dispatch.Plugin{
		Callbacks: map[dispatch.Hook]dispatch.Callback{
			dispatch.CreateContainer: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onCreateContainer(cfg, s)
			},
		},
	}, nil
}

func onCreateContainer(cfg *config.ContainerConfig, s Settings) error {
	if s.EnableDbusSystem && s.SystemBusSocketPath != "" {
		if err := cfg.AddMount(s.SystemBusSocketPath, s.SystemBusSocketPath, "bind", []string{"bind", "rw"}); err != nil {
			return err
		}
		if err := cfg.AddEnvironmentVar("DBUS_SYSTEM_BUS_ADDRESS=unix:path=" + s.SystemBusSocketPath); err != nil {
			return err
		}
	}

	if s.EnableDbusSession && s.SessionBusSocketPath != "" {
		if err := cfg.AddMount(s.SessionBusSocketPath, s.SessionBusSocketPath, "bind", []string{"bind", "rw"}); err != nil {
			return err
		}
		if err := cfg.AddEnvironmentVar("DBUS_SESSION_BUS_ADDRESS=unix:path=" + s.SessionBusSocketPath); err != nil {
			return err
		}
	}

	if s.EnableIDMapping {
		if err := cfg.AddEnvironmentVar("DBUS_ID_MAPPING=1"); err != nil {
			return err
		}
	}

	return nil
}
