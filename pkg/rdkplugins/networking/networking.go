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

// Package networking is an example rdk_plugins implementation exercising
// the address allocator, ContainerConfig.WriteContainerNetworkInfo, and
// the Netfilter service end to end: it assigns a container a veth address
// out of a fixed /24 and stages DNAT rules for the container's declared
// port forwards. Grounded on the HolePuncher/networking plugin workflow
// of plugins/HolePuncher/source/HolePuncherPlugin.cpp and the tagging
// idiom of rdkPlugins/Common/include/IpTablesRuleGenerator.h.
package networking

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/idalloc"
	"github.com/rdkcentral/Dobby-sub004/pkg/netfilter"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

var log = dobbylog.New("info")

// subnetPrefix is the fixed host-side veth /24 addresses are drawn from
// (100.64.11.0/24), matching the original's DobbyNetworking default
// bridge range.
var subnetPrefix = [3]byte{100, 64, 11}

// PortForward is one declared host-to-container forward.
type PortForward struct {
	HostPort      int    `json:"hostPort"`
	ContainerPort int    `json:"containerPort"`
	Protocol      string `json:"protocol"`
}

// Settings is the rdk_plugins["networking"] settings subtree.
type Settings struct {
	PortForwards []PortForward `json:"portForwards,omitempty"`
}

var (
	ids, _    = idalloc.New(8, 2) // 254 usable host ids in the /24
	nf        = netfilter.NewService()
	mu        sync.Mutex
	allocated = map[string]uint32{}
)

// Descriptor returns this plugin's registration, used both by the
// plugins/networking .so build and by cmd/dobby-hook's built-in registry.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "networking",
		Mask:    dispatch.MaskCreateRuntime | dispatch.MaskPostStop,
		Builder: build,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("networking: parse settings: %w", err))
		}
	}

	return dispatch.Plugin{
		Callbacks: map[dispatch.Hook]dispatch.Callback{
			dispatch.CreateRuntime: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onCreateRuntime(cfg, s)
			},
			dispatch.PostStop: func(cfg *config.ContainerConfig, state config.RuntimeState) error {
				return onPostStop(cfg, s)
			},
		},
	}, nil
}

func onCreateRuntime(cfg *config.ContainerConfig, s Settings) error {
	containerID := cfg.GetContainerID()

	id, ok := ids.Get()
	if !ok {
		return dobbyerr.Newf(dobbyerr.ResourceUnavailable, "networking: address pool exhausted")
	}
	mu.Lock()
	allocated[containerID] = id
	mu.Unlock()

	ip := net.IPv4(subnetPrefix[0], subnetPrefix[1], subnetPrefix[2], byte(id))
	vethName := fmt.Sprintf("veth%d", id)

	if err := cfg.WriteContainerNetworkInfo(config.NetworkInfo{IPv4: ip, VethName: vethName}); err != nil {
		return err
	}

	for _, pf := range s.PortForwards {
		rule := forwardRule(containerID, ip, pf, netfilter.Insert)
		if err := nf.AddRules(netfilter.TableNAT, netfilter.IPv4, []netfilter.Rule{rule}); err != nil {
			return err
		}
	}
	if err := nf.Apply(netfilter.IPv4); err != nil {
		return err
	}

	log.WithField("container", containerID).WithField("ip", ip.String()).Info("assigned container address")
	return nil
}

func onPostStop(cfg *config.ContainerConfig, s Settings) error {
	containerID := cfg.GetContainerID()

	mu.Lock()
	id, ok := allocated[containerID]
	delete(allocated, containerID)
	mu.Unlock()

	if !ok {
		return nil
	}
	ip := net.IPv4(subnetPrefix[0], subnetPrefix[1], subnetPrefix[2], byte(id))

	for _, pf := range s.PortForwards {
		rule := forwardRule(containerID, ip, pf, netfilter.Delete)
		if err := nf.AddRules(netfilter.TableNAT, netfilter.IPv4, []netfilter.Rule{rule}); err != nil {
			log.WithField("container", containerID).WithError(err).Warn("failed to stage port-forward teardown rule")
		}
	}
	if err := nf.Apply(netfilter.IPv4); err != nil {
		log.WithField("container", containerID).WithError(err).Warn("failed to remove port-forward rules")
	}

	ids.Put(id)
	return nil
}

func forwardRule(containerID string, ip net.IP, pf PortForward, op netfilter.Op) netfilter.Rule {
	args := []string{
		"PREROUTING",
		"-p", pf.Protocol,
		"--dport", strconv.Itoa(pf.HostPort),
		"-j", "DNAT",
		"--to-destination", fmt.Sprintf("%s:%d", ip.String(), pf.ContainerPort),
	}
	args = append(args, netfilter.Tag("networking", containerID)...)
	return netfilter.Rule{Args: args, Op: op}
}
