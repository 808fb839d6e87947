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
	"strings"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

// Node is the minimal view of a plugin the planner needs: its name and the
// names of plugins it depends on (that must run before it). Ported from
// DobbyRdkPluginDependencySolver's addPlugin/addDependency pair, but
// reduced to a single call (no separate vertex/edge registration step is
// needed in Go).
type Node struct {
	Name         string
	Dependencies []string
}

// Plan topologically sorts nodes by their Dependencies using Kahn's
// algorithm, breaking ties by insertion order so that identical input
// always produces identical output (spec.md §4.1's stability
// requirement). It returns a dobbyerr.PluginCycle error naming the cycle
// if one exists, and a dobbyerr.PluginNotFound error if a dependency names
// a node not present in the input.
func Plan(nodes []Node) ([]string, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.Name]; dup {
			return nil, dobbyerr.Newf(dobbyerr.PluginFailure, "dispatch: duplicate plugin name %q in plan input", n.Name)
		}
		index[n.Name] = i
	}

	// indegree[i] counts dependencies of nodes[i] not yet emitted;
	// dependents[i] lists the nodes that depend on nodes[i], so that when
	// nodes[i] is emitted we can decrement their indegree.
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, dep := range n.Dependencies {
			depIdx, ok := index[dep]
			if !ok {
				return nil, dobbyerr.Newf(dobbyerr.PluginNotFound, "dispatch: plugin %q depends on unknown plugin %q", n.Name, dep)
			}
			indegree[i]++
			dependents[depIdx] = append(dependents[depIdx], i)
		}
	}

	// ready is a FIFO seeded with zero-indegree nodes in index (insertion)
	// order; since dependents[*] is also populated in index order, nodes
	// become ready in index order too, so a plain queue preserves
	// insertion-order ties without needing to re-sort on each pop.
	var ready []int
	for i := range nodes {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	var order []string
	emitted := make([]bool, len(nodes))
	for len(ready) > 0 {
		idx := ready[0]
		ready = ready[1:]

		order = append(order, nodes[idx].Name)
		emitted[idx] = true

		for _, dep := range dependents[idx] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []string
		for i, n := range nodes {
			if !emitted[i] {
				stuck = append(stuck, n.Name)
			}
		}
		return nil, dobbyerr.Newf(dobbyerr.PluginCycle, "dispatch: dependency cycle among plugins [%s]", strings.Join(stuck, ", "))
	}

	return order, nil
}

// reversed returns a new slice with order's elements reversed, leaving
// order untouched.
func reversed(order []string) []string {
	out := make([]string, len(order))
	for i, name := range order {
		out[len(order)-1-i] = name
	}
	return out
}
