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

// Package cgroup is the CgroupService of spec.md §4.5: discover a named
// cgroup-v1 controller's mount point, create a per-container sub-cgroup,
// move the container's pid in, write limit files, and bind-mount the
// sub-cgroup back inside the container so the container sees its own
// cgroup at the controller root. Grounded on the workflow of
// rdkPlugins/GPU/source/GpuPlugin.cpp and
// rdkPlugins/IONMemory/source/IonMemoryPlugin.cpp.
package cgroup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containerd/cgroups/v3/cgroup1"
	"github.com/moby/sys/mountinfo"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
)

var cgroupLog = dobbylog.New("info")

// NoLimit is the sentinel spec.md §4.5 step 4 treats as "no limit": it is
// logged but never written. SetupVendorLimits has no option to write it
// as an explicit sentinel value.
const NoLimit = ^uint64(0)

// Binding is the host-side record of one container's sub-cgroup under one
// controller, per spec.md §3.
type Binding struct {
	Controller string
	MountPoint string
	Path       string // MountPoint/containerID
	Pid        int
}

// DiscoverController scans /proc/mounts for a cgroup-type entry whose
// option list names controller, returning dobbyerr.ResourceUnavailable if
// none is mounted.
func DiscoverController(controller string) (string, error) {
	infos, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		if info.FSType != "cgroup" {
			return true, false
		}
		for _, opt := range strings.Split(info.VFSOptions, ",") {
			if opt == controller {
				return false, true
			}
		}
		return true, false
	})
	if err != nil {
		return "", dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("scan /proc/mounts: %w", err))
	}
	if len(infos) == 0 {
		return "", dobbyerr.Newf(dobbyerr.ResourceUnavailable, "no mounted cgroup-v1 controller %q", controller)
	}
	return infos[0].Mountpoint, nil
}

// Setup performs spec.md §4.5 steps 2-4 for the standard subsystems
// cgroups/v3 models natively (memory, cpu, pids, devices): create
// <mount>/<containerID> via cgroup1.New, move pid in, and apply resources.
// Vendor controllers with no cgroups/v3 model (gpu, ion) use
// SetupVendorLimits instead.
func Setup(controller, containerID string, pid int, resources *specs.LinuxResources) (*Binding, error) {
	mount, err := DiscoverController(controller)
	if err != nil {
		return nil, err
	}

	subPath := "/" + containerID
	cg, err := cgroup1.New(cgroup1.StaticPath(subPath), resources)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("create cgroup %s%s: %w", mount, subPath, err))
	}
	if cg == nil {
		cg, err = cgroup1.Load(cgroup1.StaticPath(subPath))
		if err != nil {
			return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("load existing cgroup %s%s: %w", mount, subPath, err))
		}
	}

	if err := cg.Add(cgroup1.Process{Pid: pid}); err != nil {
		return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("attach pid %d to %s%s: %w", pid, mount, subPath, err))
	}

	return &Binding{
		Controller: controller,
		MountPoint: mount,
		Path:       filepath.Join(mount, containerID),
		Pid:        pid,
	}, nil
}

// SetupVendorLimits performs the hand-rolled equivalent of Setup for
// controllers cgroups/v3 has no model for (gpu, ion-heap-n): create the
// sub-directory directly, write cgroup.procs, then write each named limit
// file. A NoLimit value is logged and skipped rather than written, per
// spec.md §4.5 step 4.
func SetupVendorLimits(controller, containerID string, pid int, limits map[string]uint64) (*Binding, error) {
	mount, err := DiscoverController(controller)
	if err != nil {
		return nil, err
	}

	subPath := filepath.Join(mount, containerID)
	if err := os.Mkdir(subPath, 0o755); err != nil && !os.IsExist(err) {
		return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("mkdir %s: %w", subPath, err))
	}

	procs := filepath.Join(subPath, "cgroup.procs")
	if err := os.WriteFile(procs, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("write %s: %w", procs, err))
	}

	for name, value := range limits {
		if value == NoLimit {
			cgroupLog.WithField("controller", controller).WithField("limit", name).Info("no limit requested, skipping write")
			continue
		}
		path := filepath.Join(subPath, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("open %s: %w", path, err))
		}
		_, werr := f.WriteString(strconv.FormatUint(value, 10))
		cerr := f.Close()
		if werr != nil {
			return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("write %s: %w", path, werr))
		}
		if cerr != nil {
			return nil, dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("close %s: %w", path, cerr))
		}
	}

	return &Binding{Controller: controller, MountPoint: mount, Path: subPath, Pid: pid}, nil
}

// BindMountBack bind-mounts the container's sub-cgroup over the
// controller's mount point inside the container's own mount namespace, so
// an in-container reader sees its own cgroup as the controller root
// (spec.md §4.5 step 5). Callers invoke this already inside the target
// namespace (typically via pkg/nsenter.Call).
func BindMountBack(b *Binding) error {
	if err := unix.Mount(b.Path, b.MountPoint, "", unix.MS_BIND, ""); err != nil {
		return dobbyerr.New(dobbyerr.SyscallFailed, fmt.Errorf("bind-mount %s over %s: %w", b.Path, b.MountPoint, err))
	}
	return nil
}

// Teardown removes the sub-cgroup directory (spec.md §4.5 step 6).
// ENOENT is tolerated; teardown failure is logged, never fatal, since the
// kernel reclaims the cgroup once its last process exits regardless.
func Teardown(b *Binding) error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		cgroupLog.WithField("path", b.Path).WithError(err).Warn("cgroup teardown failed, relying on kernel GC")
		return dobbyerr.New(dobbyerr.SyscallFailed, err)
	}
	return nil
}
