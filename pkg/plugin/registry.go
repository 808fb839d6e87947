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

// Package plugin is the PluginRegistry of spec.md §4.2: it discovers
// dynamically loaded plugin objects under a search path and exposes their
// descriptors to the Dispatcher, rejecting duplicate names at load time
// and leaving dependency-name resolution to dispatch time.
package plugin

import (
	"path/filepath"
	goplugin "plugin"
	"sort"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
)

var registryLog = dobbylog.New("info")

// Descriptor is the symbol every plugin .so must export under the name
// "Descriptor": its identity, the hook points it implements, its
// dependency list, and a factory returning the dispatch.Plugin that binds
// its callbacks. Builder receives the plugin-specific settings subtree
// (from rdk_plugins) verbatim so each plugin can decode its own shape.
type Descriptor struct {
	Name         string
	Mask         dispatch.Mask
	Dependencies []string
	Builder      func(settings []byte) (dispatch.Plugin, error)
}

// LoggingDescriptor specializes Descriptor for the single logging plugin a
// container may select (spec.md §4.2): in addition to the normal hook
// callbacks it exposes poll-source registration and a synchronous flush
// entry point, both implemented by pkg/logpump.
type LoggingDescriptor struct {
	Descriptor
	RegisterPollSource func(ptty int, onReadable func()) error
	DumpToLog          func(ptty int) error
}

// Registry holds the plugins discovered from one or more search paths.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Descriptor
	logging map[string]LoggingDescriptor
}

// NewRegistry returns an empty registry; use Scan to populate it.
func NewRegistry() *Registry {
	return &Registry{
		plugins: map[string]Descriptor{},
		logging: map[string]LoggingDescriptor{},
	}
}

// Scan opens every "*.so" file directly under dir and reads its exported
// "Descriptor" symbol (a *Descriptor or *LoggingDescriptor). A duplicate
// name across any previously scanned path is rejected with
// dobbyerr.PluginFailure, matching spec.md §4.2's "a duplicate name is
// rejected" rule.
func (r *Registry) Scan(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.so"))
	if err != nil {
		return dobbyerr.New(dobbyerr.IOFailed, err)
	}
	sort.Strings(matches)

	for _, path := range matches {
		if err := r.load(path); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) load(path string) error {
	handle, err := goplugin.Open(path)
	if err != nil {
		return dobbyerr.New(dobbyerr.PluginFailure, err)
	}

	sym, err := handle.Lookup("Descriptor")
	if err != nil {
		return dobbyerr.WithPlugin(dobbyerr.PluginFailure, path, "", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch d := sym.(type) {
	case *LoggingDescriptor:
		if err := r.registerLocked(d.Name); err != nil {
			return err
		}
		r.logging[d.Name] = *d
		r.plugins[d.Name] = d.Descriptor
	case *Descriptor:
		if err := r.registerLocked(d.Name); err != nil {
			return err
		}
		r.plugins[d.Name] = *d
	default:
		return dobbyerr.Newf(dobbyerr.PluginFailure, "plugin %s: exported Descriptor has unexpected type %T", path, sym)
	}

	registryLog.WithField("path", path).Info("loaded plugin")
	return nil
}

func (r *Registry) registerLocked(name string) error {
	if _, dup := r.plugins[name]; dup {
		return dobbyerr.Newf(dobbyerr.PluginFailure, "duplicate plugin name %q", name)
	}
	return nil
}

// Register adds an in-process Descriptor without going through Scan/.so
// loading — used by cmd/dobby-hook's built-in plugins and by tests.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.registerLocked(d.Name); err != nil {
		return err
	}
	r.plugins[d.Name] = d
	return nil
}

// RegisterLogging adds an in-process LoggingDescriptor the same way
// Register does for a plain Descriptor.
func (r *Registry) RegisterLogging(d LoggingDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.registerLocked(d.Name); err != nil {
		return err
	}
	r.logging[d.Name] = d
	r.plugins[d.Name] = d.Descriptor
	return nil
}

// Descriptors returns every loaded descriptor, keyed by name.
func (r *Registry) Descriptors() map[string]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Descriptor, len(r.plugins))
	for k, v := range r.plugins {
		out[k] = v
	}
	return out
}

// LoggingPlugin returns the registered logging descriptor named name, and
// whether it was found. Spec.md §4.2: at most one logging plugin is
// active for a given container — callers resolve which one via the
// container's rdk_plugins selection, not via this registry.
func (r *Registry) LoggingPlugin(name string) (LoggingDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.logging[name]
	return d, ok
}

// Build resolves every plugin named in names (in the rdk_plugins subtree
// of the container's config) against the registry, invokes each
// Descriptor's Builder with its settings, and returns the resulting
// dispatch.Plugin set ready to hand to dispatch.Run. A name with no
// matching Descriptor is a dobbyerr.PluginNotFound error, per spec.md
// §4.2's "an unresolved name is an error on the first hook invocation
// that would use it".
func (r *Registry) Build(settings map[string][]byte) ([]dispatch.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)

	plugins := make([]dispatch.Plugin, 0, len(names))
	for _, name := range names {
		d, ok := r.plugins[name]
		if !ok {
			return nil, dobbyerr.Newf(dobbyerr.PluginNotFound, "plugin %q declared in config has no implementation", name)
		}
		built, err := d.Builder(settings[name])
		if err != nil {
			return nil, dobbyerr.WithPlugin(dobbyerr.PluginFailure, name, "", err)
		}
		if built.Name == "" {
			built.Name = d.Name
		}
		if built.Mask == 0 {
			built.Mask = d.Mask
		}
		if built.Dependencies == nil {
			built.Dependencies = d.Dependencies
		}
		plugins = append(plugins, built)
	}
	return plugins, nil
}
