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

// Package rdkplugins wires the example plugin implementations under its
// subpackages into a pkg/plugin.Registry, shared by cmd/dobby-hook (which
// runs one hook invocation per process) and cmd/dobbyd (which needs the
// logging plugin's LoggingDescriptor to drive its poll loop).
package rdkplugins

import (
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/gpu"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/ipc"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/logging"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/minidump"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/multicastsockets"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/networking"
)

// RegisterBuiltins registers every example plugin directly, statically
// linked, so a bundle can declare them without a matching .so existing
// on a Registry.Scan search path.
func RegisterBuiltins(r *plugin.Registry) error {
	if err := r.Register(networking.Descriptor()); err != nil {
		return err
	}
	if err := r.Register(gpu.Descriptor()); err != nil {
		return err
	}
	if err := r.Register(ipc.Descriptor()); err != nil {
		return err
	}
	if err := r.Register(multicastsockets.Descriptor()); err != nil {
		return err
	}
	if err := r.Register(minidump.Descriptor()); err != nil {
		return err
	}
	if err := r.RegisterLogging(logging.Descriptor()); err != nil {
		return err
	}
	return nil
}
