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

// Package dobbyerr defines the error kinds shared by the hook-dispatch core.
package dobbyerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way the runtime's hook-exit-code contract
// cares about: whether it is fatal to the current hook invocation and
// whether a retry or teardown path should treat it as expected.
type Kind string

const (
	// ConfigInvalid means the parsed bundle config is missing or malformed.
	ConfigInvalid Kind = "config-invalid"
	// PluginNotFound means a dependency or config name has no implementation.
	PluginNotFound Kind = "plugin-not-found"
	// PluginCycle means the dependency graph has a cycle.
	PluginCycle Kind = "plugin-cycle"
	// PluginFailure means a plugin callback returned an error.
	PluginFailure Kind = "plugin-failure"
	// ResourceUnavailable means a loop device, cgroup controller, or binary
	// the framework depends on is absent.
	ResourceUnavailable Kind = "resource-unavailable"
	// SyscallFailed means a mount/setns/open-class syscall failed.
	SyscallFailed Kind = "syscall-failed"
	// IOFailed means a read/write on a bundle file failed.
	IOFailed Kind = "io-failed"
)

// Error is a classified error carrying the plugin and hook context needed
// to correlate with the runtime's own logs.
type Error struct {
	Kind   Kind
	Plugin string
	Hook   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Plugin != "" && e.Hook != "":
		return fmt.Sprintf("%s: plugin %q at hook %q: %v", e.Kind, e.Plugin, e.Hook, e.Err)
	case e.Plugin != "":
		return fmt.Sprintf("%s: plugin %q: %v", e.Kind, e.Plugin, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a Kind and no plugin/hook context.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Newf is like New but formats a message instead of wrapping an error.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithPlugin wraps err with a Kind and plugin/hook context.
func WithPlugin(kind Kind, plugin, hook string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Plugin: plugin, Hook: hook, Err: err}
}

// KindOf returns the Kind carried by err, or "" if err was not produced by
// this package (directly or through wrapping).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
