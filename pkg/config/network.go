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

package config

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

const dobbyAddressFile = "dobbyaddress"

// NetworkInfo is the veth-side address a networking plugin assigned the
// container, as recorded in <rootfs>/dobbyaddress.
type NetworkInfo struct {
	IPv4     net.IP
	VethName string
}

// GetContainerNetworkInfo reads and parses <rootfs>/dobbyaddress, written
// by the networking plugin at createRuntime. The file's bit layout
// (host-order integer, preserved from the original's sin_addr.s_addr
// arithmetic) must be preserved exactly: see network.go's
// hostOrderToIP/ipToHostOrder.
func (c *ContainerConfig) GetContainerNetworkInfo() (NetworkInfo, error) {
	path := filepath.Join(c.RootFS(), dobbyAddressFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return NetworkInfo{}, dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("read %s: %w", path, err))
	}

	addr, iface, ok := strings.Cut(strings.TrimSpace(string(raw)), "/")
	if !ok {
		return NetworkInfo{}, dobbyerr.Newf(dobbyerr.ConfigInvalid, "malformed %s: %q", dobbyAddressFile, raw)
	}

	numeric, err := strconv.ParseUint(addr, 10, 32)
	if err != nil {
		return NetworkInfo{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("malformed %s address %q: %w", dobbyAddressFile, addr, err))
	}

	return NetworkInfo{IPv4: hostOrderToIP(uint32(numeric)), VethName: iface}, nil
}

// WriteContainerNetworkInfo writes <rootfs>/dobbyaddress in the same
// bit-exact format GetContainerNetworkInfo expects; it is the networking
// plugin's counterpart to the reader above.
func (c *ContainerConfig) WriteContainerNetworkInfo(info NetworkInfo) error {
	path := filepath.Join(c.RootFS(), dobbyAddressFile)
	line := fmt.Sprintf("%d/%s", ipToHostOrder(info.IPv4), info.VethName)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// hostOrderToIP reverses ipToHostOrder: the stored integer is the IPv4
// address's four octets packed little-endian, matching sin_addr.s_addr on
// every architecture this framework targets.
func hostOrderToIP(v uint32) net.IP {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return net.IP(b)
}

// ipToHostOrder packs ip's four octets little-endian into a single
// integer, bit-for-bit compatible with the C struct field it replaces.
func ipToHostOrder(ip net.IP) uint32 {
	v4 := ip.To4()
	return binary.LittleEndian.Uint32(v4)
}
