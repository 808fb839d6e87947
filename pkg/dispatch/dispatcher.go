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

package dispatch

import (
	"fmt"
	"strings"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// Callback is a single plugin's hook implementation: it receives the
// shared, mutable ContainerConfig and returns an error on failure. Callers
// must treat the config as the single owner of its data for the duration
// of the call; the Dispatcher never invokes two callbacks concurrently.
type Callback func(cfg *config.ContainerConfig, state config.RuntimeState) error

// Plugin is the Dispatcher's view of one registered plugin: its name,
// dependencies, and the set of hook callbacks it implements, keyed by
// Hook. Selection for a hook is by Mask alone; a plugin need not populate
// every hook, and a selected plugin with no Callbacks entry for the hook
// is skipped by Run as a no-op success.
type Plugin struct {
	Name         string
	Dependencies []string
	Mask         Mask
	Callbacks    map[Hook]Callback
}

// Result is one plugin's outcome at one hook invocation.
type Result struct {
	Plugin string
	Err    error
}

// AggregateError collects every plugin failure at a continue-on-error hook
// point. A fail-fast hook point never produces one of these: it returns
// the single failing plugin's error directly.
type AggregateError struct {
	Hook    Hook
	Results []Result
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dispatch: %d plugin(s) failed at hook %q:", len(e.Results), e.Hook)
	for _, r := range e.Results {
		fmt.Fprintf(&b, "\n  %s: %v", r.Plugin, r.Err)
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Results))
	for _, r := range e.Results {
		errs = append(errs, r.Err)
	}
	return errs
}

// PlanHook returns the execution order for hook among the plugins in plugins
// that implement it: those whose Mask includes hook.Bit(), topologically
// sorted over the dependency subgraph induced by that selection, reversed
// for the teardown hooks.
func PlanHook(hook Hook, plugins []Plugin) ([]string, error) {
	if !hook.Valid() {
		return nil, dobbyerr.Newf(dobbyerr.ConfigInvalid, "dispatch: unknown hook point %q", hook)
	}

	selected := make(map[string]Plugin, len(plugins))
	var nodes []Node
	for _, p := range plugins {
		if p.Mask&hook.Bit() == 0 {
			continue
		}
		selected[p.Name] = p
		nodes = append(nodes, Node{Name: p.Name, Dependencies: p.Dependencies})
	}

	// Drop dependency edges pointing outside the selected set; those
	// plugins simply don't participate in this hook's plan.
	for i, n := range nodes {
		var kept []string
		for _, d := range n.Dependencies {
			if _, ok := selected[d]; ok {
				kept = append(kept, d)
			}
		}
		nodes[i].Dependencies = kept
	}

	order, err := Plan(nodes)
	if err != nil {
		return nil, err
	}

	if hook.Reverse() {
		order = reversed(order)
	}
	return order, nil
}

// Run executes hook's plan against cfg: it selects and orders the
// plugins per PlanHook, then invokes each one's callback for hook in turn,
// honoring hook's fail-fast/continue-on-error policy (spec.md §4.1).
func Run(hook Hook, plugins []Plugin, cfg *config.ContainerConfig, state config.RuntimeState) error {
	order, err := PlanHook(hook, plugins)
	if err != nil {
		return err
	}

	byName := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		byName[p.Name] = p
	}

	var results []Result
	for _, name := range order {
		p := byName[name]
		cb, ok := p.Callbacks[hook]
		if !ok {
			// Declared in the mask but no callback registered for this
			// hook: treat as a no-op success, matching the "default
			// implementations return success" shape of spec.md §9.
			continue
		}

		err := cb(cfg, state)
		if err == nil {
			continue
		}
		wrapped := dobbyerr.WithPlugin(dobbyerr.PluginFailure, name, string(hook), err)

		if hook.Policy() == FailFast {
			return wrapped
		}
		results = append(results, Result{Plugin: name, Err: wrapped})
	}

	if len(results) == 0 {
		return nil
	}
	return &AggregateError{Hook: hook, Results: results}
}
