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

// Package dispatch is the plugin dispatcher of spec.md §4.1: for a given
// hook point it selects the plugins that implement it, topologically
// sorts them by declared dependency, and invokes their callbacks in order
// (or reverse order for teardown hooks), honoring each hook point's
// fail-fast or continue-on-error policy.
package dispatch

// Hook identifies one of the eight lifecycle hook points.
type Hook string

const (
	PostInstallation Hook = "postInstallation"
	PreCreation      Hook = "preCreation"
	CreateRuntime    Hook = "createRuntime"
	CreateContainer  Hook = "createContainer"
	StartContainer   Hook = "startContainer"
	PostStart        Hook = "postStart"
	PostHalt         Hook = "postHalt"
	PostStop         Hook = "postStop"
)

// Mask is a bitmask over the hook points a plugin implements.
type Mask uint16

const (
	MaskPostInstallation Mask = 1 << iota
	MaskPreCreation
	MaskCreateRuntime
	MaskCreateContainer
	MaskStartContainer
	MaskPostStart
	MaskPostHalt
	MaskPostStop
)

var hookBits = map[Hook]Mask{
	PostInstallation: MaskPostInstallation,
	PreCreation:      MaskPreCreation,
	CreateRuntime:    MaskCreateRuntime,
	CreateContainer:  MaskCreateContainer,
	StartContainer:   MaskStartContainer,
	PostStart:        MaskPostStart,
	PostHalt:         MaskPostHalt,
	PostStop:         MaskPostStop,
}

// Bit returns the Mask bit corresponding to h.
func (h Hook) Bit() Mask {
	return hookBits[h]
}

// Valid reports whether h is one of the eight recognised hook points.
func (h Hook) Valid() bool {
	_, ok := hookBits[h]
	return ok
}

// Policy is a hook point's failure-handling policy.
type Policy int

const (
	// FailFast stops at the first plugin failure and reports it as the
	// aggregate; no further plugins in the plan are invoked.
	FailFast Policy = iota
	// ContinueOnError invokes every selected plugin regardless of earlier
	// failures and aggregates all of them.
	ContinueOnError
)

// reverse reports whether h runs its plan in reverse dependency order
// (the teardown hooks).
func (h Hook) reverse() bool {
	return h == PostHalt || h == PostStop
}

// policy returns h's failure-handling policy per spec.md §4.1's table.
func (h Hook) policy() Policy {
	switch h {
	case PostStart, PostHalt, PostStop:
		return ContinueOnError
	default:
		return FailFast
	}
}

// Policy returns h's failure-handling policy.
func (h Hook) Policy() Policy {
	return h.policy()
}

// Reverse reports whether h executes its plan in reverse dependency order.
func (h Hook) Reverse() bool {
	return h.reverse()
}
