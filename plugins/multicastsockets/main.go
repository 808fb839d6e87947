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

// Command multicastsockets builds as a Go plugin (-buildmode=plugin): pkg/plugin's
// Registry.Scan loads this .so and looks up the exported "Descriptor"
// symbol below. All real logic lives in pkg/rdkplugins/multicastsockets so the same
// implementation can also be linked in statically by cmd/dobby-hook's
// built-in registry.
package main

import (
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/multicastsockets"
)

var descriptor = multicastsockets.Descriptor()

// Descriptor is the symbol pkg/plugin.Registry.Scan looks up.
var Descriptor = &descriptor
