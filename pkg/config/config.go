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

// Package config is the ContainerConfig and ConfigMutationAPI of spec.md
// §3/§4.3: the in-memory, singly-owned view of a bundle's config.json that
// plugins mutate during a hook invocation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/opencontainers/runtime-tools/generate"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// RuntimeState is the subset of the OCI runtime's stdin state blob the
// framework needs to act: container id, bundle directory, and the
// container's pid once the runtime has assigned one.
type RuntimeState struct {
	ID          string            `json:"id"`
	Pid         int               `json:"pid,omitempty"`
	Bundle      string            `json:"bundle"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// PreservedFD is a file descriptor a plugin asked the framework to carry
// into the container via add_file_descriptor.
type PreservedFD struct {
	Plugin      string
	File        *os.File
	ContainerFD int
}

// ContainerConfig is the authoritative in-memory bundle config of spec.md
// §3. It wraps a runtime-tools Generator the way the teacher's NRI adapter
// wraps its UnderlyingGenerator, plus the rdk_plugins subtree and preserved
// fd set the OCI spec itself has no room for.
type ContainerConfig struct {
	mu    sync.Mutex
	gen   generate.Generator
	state RuntimeState

	rdkPlugins map[string]json.RawMessage
	files      []PreservedFD
}

// rdkEnvelope lets us round-trip the rdk_plugins subtree, which
// runtime-spec's Spec type has no field for, alongside the rest of
// config.json.
type rdkEnvelope struct {
	RDKPlugins map[string]json.RawMessage `json:"rdk_plugins,omitempty"`
}

// Load parses <bundle>/config.json into a ContainerConfig scoped to state.
func Load(state RuntimeState) (*ContainerConfig, error) {
	path := filepath.Join(state.Bundle, "config.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("read %s: %w", path, err))
	}

	var spec specs.Spec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("parse %s: %w", path, err))
	}

	var envelope rdkEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("parse rdk_plugins in %s: %w", path, err))
	}
	if envelope.RDKPlugins == nil {
		envelope.RDKPlugins = map[string]json.RawMessage{}
	}

	return &ContainerConfig{
		gen:        generate.NewFromSpec(&spec),
		state:      state,
		rdkPlugins: envelope.RDKPlugins,
	}, nil
}

// Save writes the (possibly mutated) config, including the rdk_plugins
// subtree, back to <bundle>/config.json.
func (c *ContainerConfig) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(c.gen.Config)
	if err != nil {
		return dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("marshal config: %w", err))
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("re-parse config for merge: %w", err))
	}
	pluginsRaw, err := json.Marshal(c.rdkPlugins)
	if err != nil {
		return dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("marshal rdk_plugins: %w", err))
	}
	merged["rdk_plugins"] = pluginsRaw

	out, err := json.MarshalIndent(merged, "", "\t")
	if err != nil {
		return dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("marshal merged config: %w", err))
	}

	path := filepath.Join(c.state.Bundle, "config.json")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// Spec returns the underlying OCI spec. Callers must not retain it across
// a mutation without re-fetching; ContainerConfig's lock only guards the
// mutator methods, not ad-hoc field access by a caller holding this
// pointer.
func (c *ContainerConfig) Spec() *specs.Spec {
	return c.gen.Config
}

// PluginSettings returns the rdk_plugins subtree for name, or false if the
// container's config does not declare that plugin.
func (c *ContainerConfig) PluginSettings(name string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.rdkPlugins[name]
	return raw, ok
}

// PluginNames returns every plugin name present in the rdk_plugins
// subtree, in the map's (unspecified) iteration order; callers that need a
// stable order should sort or consult the dispatcher, which orders by
// dependency rather than by this list.
func (c *ContainerConfig) PluginNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.rdkPlugins))
	for name := range c.rdkPlugins {
		names = append(names, name)
	}
	return names
}

// RootFS returns the absolute path to the bundle's root filesystem.
func (c *ContainerConfig) RootFS() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	root := c.gen.Config.Root.Path
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(c.state.Bundle, root)
}

// GetContainerID returns the hostname field, which spec.md §3 designates
// as the id used for host-side resources (cgroup path, netfilter tags).
func (c *ContainerConfig) GetContainerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen.Config.Hostname
}

// GetContainerPID returns the pid from the runtime state blob, failing if
// the runtime has not assigned one yet (true at postInstallation and
// preCreation).
func (c *ContainerConfig) GetContainerPID() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Pid == 0 {
		return 0, dobbyerr.Newf(dobbyerr.ResourceUnavailable, "container %q has no pid yet", c.state.ID)
	}
	return c.state.Pid, nil
}
