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

// Package netinfo resolves an allocated container IP address over D-Bus,
// the one in-scope sliver of the otherwise out-of-scope D-Bus admin/IPC
// surface (spec.md §1): a networking plugin allocates and exposes a
// container's address via a well-known bus name, and later plugins
// (firewall rule construction) ask for it by container id instead of
// re-deriving it from config.
package netinfo

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

const (
	busName    = "com.rdk.dobby.NetworkingPlugin"
	objectPath = "/com/rdk/dobby/NetworkingPlugin"
	method     = busName + ".GetIPAddress"
)

// Resolver looks up a container's allocated network info over the system
// bus. It does not fall back on its own: when the bus call fails,
// GetIPAddress returns the error, and callers use the package-level
// Fallback to read the networking plugin's <rootfs>/dobbyaddress file.
type Resolver struct {
	conn *dbus.Conn
}

// NewResolver connects to the host's D-Bus system bus.
func NewResolver() (*Resolver, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, dobbyerr.New(dobbyerr.ResourceUnavailable, fmt.Errorf("connect to system bus: %w", err))
	}
	return &Resolver{conn: conn}, nil
}

// Close releases the bus connection.
func (r *Resolver) Close() error {
	return r.conn.Close()
}

// GetIPAddress asks the networking plugin's bus object for containerID's
// allocated address. Returns the host-order numeric IPv4 and the veth
// name, the same pair dobbyaddress encodes.
func (r *Resolver) GetIPAddress(containerID string) (uint32, string, error) {
	obj := r.conn.Object(busName, dbus.ObjectPath(objectPath))

	var ipv4 uint32
	var veth string
	err := obj.Call(method, 0, containerID).Store(&ipv4, &veth)
	if err != nil {
		return 0, "", dobbyerr.New(dobbyerr.ResourceUnavailable, fmt.Errorf("dbus call %s(%s): %w", method, containerID, err))
	}
	return ipv4, veth, nil
}

// Fallback reads the networking plugin's dobbyaddress file directly via
// cfg, used when the bus call in GetIPAddress fails (daemon not up yet,
// or the lookup happens from a hook process that never holds a bus
// connection open).
func Fallback(cfg *config.ContainerConfig) (config.NetworkInfo, error) {
	return cfg.GetContainerNetworkInfo()
}
