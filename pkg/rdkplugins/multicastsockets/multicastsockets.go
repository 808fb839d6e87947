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

// Package multicastsockets is an example rdk_plugins implementation
// exercising ConfigMutationAPI.AddFileDescriptor end to end: it opens one
// UDP socket per declared entry on the host side and preserves it into
// the container, exposing its container-side fd number through an
// environment variable the containerized application reads at startup.
// Grounded on plugins/MulticastSockets/source/MulticastSocketsPlugin.cpp.
package multicastsockets

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

var log = dobbylog.New("info")

// Socket is one multicast socket the container wants preopened.
type Socket struct {
	Name     string `json:"name"`
	Address  string `json:"ip"`
	Port     int    `json:"port"`
	IsServer bool   `json:"isServer"`
}

// Settings is the rdk_plugins["multicastsockets"] settings subtree.
type Settings struct {
	Sockets []Socket `json:"sockets,omitempty"`
}

// Descriptor returns this plugin's registration.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "multicastsockets",
		Mask:    dispatch.MaskCreateRuntime,
		Builder: build,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("multicastsockets: parse settings: %w", err))
		}
	}

	return dispatch.Plugin{
		Callbacks: map[dispatch.Hook]dispatch.Callback{
			dispatch.CreateRuntime: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onCreateRuntime(cfg, s)
			},
		},
	}, nil
}

func onCreateRuntime(cfg *config.ContainerConfig, s Settings) error {
	for _, sock := range s.Sockets {
		if err := preopen(cfg, sock); err != nil {
			return err
		}
	}
	return nil
}

func preopen(cfg *config.ContainerConfig, sock Socket) error {
	addr := &net.UDPAddr{IP: net.ParseIP(sock.Address), Port: sock.Port}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return dobbyerr.WithPlugin(dobbyerr.ResourceUnavailable, "multicastsockets", "", fmt.Errorf("open socket %q: %w", sock.Name, err))
	}

	file, err := conn.File()
	conn.Close() // file holds its own dup; the listener itself is no longer needed
	if err != nil {
		return dobbyerr.WithPlugin(dobbyerr.SyscallFailed, "multicastsockets", "", fmt.Errorf("dup socket %q: %w", sock.Name, err))
	}
	defer file.Close()

	containerFD, err := cfg.AddFileDescriptor("multicastsockets", int(file.Fd()))
	if err != nil {
		return err
	}

	role := "CLIENT"
	if sock.IsServer {
		role = "SERVER"
	}
	envName := fmt.Sprintf("MCAST_%s_SOCKET_%s_FD", role, strings.ToUpper(sock.Name))
	if err := cfg.AddEnvironmentVar(envName + "=" + strconv.Itoa(containerFD)); err != nil {
		return err
	}

	log.WithField("socket", sock.Name).WithField("fd", containerFD).Info("preopened multicast socket")
	return nil
}
