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

// Package gpu is an example rdk_plugins implementation exercising
// CgroupService's vendor-limit path (the one cgroups/v3 has no model for)
// and the bind-mount-back step via pkg/nsenter. Grounded on
// rdkPlugins/GPU/source/GpuPlugin.cpp.
package gpu

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/cgroup"
	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/nsenter"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

var log = dobbylog.New("info")

const controller = "gpu"

// Settings is the rdk_plugins["gpu"] settings subtree.
type Settings struct {
	MemoryLimitBytes uint64   `json:"gpuMemLimit,omitempty"`
	Devices          []string `json:"devices,omitempty"`
}

var (
	mu       sync.Mutex
	bindings = map[string]*cgroup.Binding{}
)

// Descriptor returns this plugin's registration.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "gpu",
		Mask:    dispatch.MaskCreateRuntime | dispatch.MaskPostStop,
		Builder: build,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("gpu: parse settings: %w", err))
		}
	}

	return dispatch.Plugin{
		Callbacks: map[dispatch.Hook]dispatch.Callback{
			dispatch.CreateRuntime: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onCreateRuntime(cfg, s)
			},
			dispatch.PostStop: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onPostStop(cfg)
			},
		},
	}, nil
}

func onCreateRuntime(cfg *config.ContainerConfig, s Settings) error {
	containerID := cfg.GetContainerID()
	pid, err := cfg.GetContainerPID()
	if err != nil {
		return err
	}

	limit := cgroup.NoLimit
	if s.MemoryLimitBytes != 0 {
		limit = s.MemoryLimitBytes
	}

	binding, err := cgroup.SetupVendorLimits(controller, containerID, pid, map[string]uint64{
		"gpu.limit_in_bytes": limit,
	})
	if err != nil {
		return err
	}

	if err := cfg.CallInNamespace(pid, nsenter.Mnt, func() error {
		return cgroup.BindMountBack(binding)
	}); err != nil {
		return err
	}

	for _, dev := range s.Devices {
		if err := cfg.AddMount(dev, dev, "bind", []string{"bind", "rw"}); err != nil {
			return err
		}
	}

	mu.Lock()
	bindings[containerID] = binding
	mu.Unlock()

	log.WithField("container", containerID).WithField("limit", limit).Info("gpu cgroup bound")
	return nil
}

func onPostStop(cfg *config.ContainerConfig) error {
	containerID := cfg.GetContainerID()

	mu.Lock()
	binding, ok := bindings[containerID]
	delete(bindings, containerID)
	mu.Unlock()
	if !ok {
		return nil
	}

	return cgroup.Teardown(binding)
}
