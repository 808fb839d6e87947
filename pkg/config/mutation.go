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
	"fmt"
	"os"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/nsenter"
)

var mutationLog = dobbylog.New("info")

// AddMount appends a mount entry. No de-duplication is performed; callers
// that need idempotence across a hook retry tag their own state instead.
func (c *ContainerConfig) AddMount(source, destination, fsType string, options []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Config.Mounts = append(c.gen.Config.Mounts, specs.Mount{
		Source:      source,
		Destination: destination,
		Type:        fsType,
		Options:     options,
	})
	return nil
}

// AddEnvironmentVar adds "K=V" to process.env, replacing any existing
// entry whose key (the substring before '=') matches. An exact-match
// duplicate is a no-op.
func (c *ContainerConfig) AddEnvironmentVar(kv string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, _, ok := strings.Cut(kv, "=")
	if !ok {
		return dobbyerr.Newf(dobbyerr.ConfigInvalid, "environment entry %q has no '='", kv)
	}

	if c.gen.Config.Process == nil {
		c.gen.Config.Process = &specs.Process{}
	}
	env := c.gen.Config.Process.Env
	for i, existing := range env {
		existingKey, _, _ := strings.Cut(existing, "=")
		if existingKey != key {
			continue
		}
		if existing == kv {
			return nil
		}
		env[i] = kv
		return nil
	}
	c.gen.Config.Process.Env = append(env, kv)
	return nil
}

// AddAnnotation sets annotations[key] = value, creating the map if absent.
func (c *ContainerConfig) AddAnnotation(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Config.Annotations == nil {
		c.gen.Config.Annotations = map[string]string{}
	}
	c.gen.Config.Annotations[key] = value
}

// RemoveAnnotation deletes annotations[key]; removing an absent key is a
// no-op.
func (c *ContainerConfig) RemoveAnnotation(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.gen.Config.Annotations, key)
}

// AddFileDescriptor duplicates fd (the caller remains responsible for
// closing its own copy) into the set of descriptors the runtime will
// preserve into the container, returning the index the container-side
// code will see it at.
func (c *ContainerConfig) AddFileDescriptor(pluginName string, fd int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dup, err := unix.Dup(fd)
	if err != nil {
		return 0, dobbyerr.WithPlugin(dobbyerr.SyscallFailed, pluginName, "", fmt.Errorf("dup fd %d: %w", fd, err))
	}

	containerFD := len(c.files)
	c.files = append(c.files, PreservedFD{
		Plugin:      pluginName,
		File:        os.NewFile(uintptr(dup), fmt.Sprintf("preserved-%s-%d", pluginName, containerFD)),
		ContainerFD: containerFD,
	})
	return containerFD, nil
}

// Files returns every preserved file descriptor, in the order they were
// added.
func (c *ContainerConfig) Files() []PreservedFD {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PreservedFD, len(c.files))
	copy(out, c.files)
	return out
}

// FilesByPlugin returns the preserved file descriptors added by plugin.
func (c *ContainerConfig) FilesByPlugin(plugin string) []PreservedFD {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PreservedFD
	for _, f := range c.files {
		if f.Plugin == plugin {
			out = append(out, f)
		}
	}
	return out
}

// MappedUID resolves process.user.uid through linux.uid_mappings,
// returning the requested id unchanged (with a logged warning) if no
// mapping covers it.
func (c *ContainerConfig) MappedUID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Config.Process == nil {
		return 0
	}
	return mapID(c.gen.Config.Process.User.UID, c.gen.Config.Linux.UIDMappings, "uid")
}

// MappedGID resolves process.user.gid through linux.gid_mappings, the way
// MappedUID resolves uid.
func (c *ContainerConfig) MappedGID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Config.Process == nil {
		return 0
	}
	return mapID(c.gen.Config.Process.User.GID, c.gen.Config.Linux.GIDMappings, "gid")
}

func mapID(id uint32, mappings []specs.LinuxIDMapping, kind string) uint32 {
	for _, m := range mappings {
		if id >= m.ContainerID && id < m.ContainerID+m.Size {
			return m.HostID + (id - m.ContainerID)
		}
	}
	mutationLog.WithField("requested-"+kind, id).Warn("no id mapping covers requested id, returning unchanged")
	return id
}

// WriteTextFile writes content to path with the given mode, truncating any
// existing file.
func (c *ContainerConfig) WriteTextFile(path, content string, mode os.FileMode) error {
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// ReadTextFile returns the contents of path as a string.
func (c *ContainerConfig) ReadTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("read %s: %w", path, err))
	}
	return string(raw), nil
}

// MkdirRecursive creates path and every missing ancestor with mode,
// chmod-ing each created segment afterward to counter umask the way
// MkdirAll alone does not.
func (c *ContainerConfig) MkdirRecursive(path string, mode os.FileMode) error {
	var segments []string
	for p := path; ; p = parentDir(p) {
		segments = append(segments, p)
		if p == parentDir(p) || p == "." || p == "/" {
			break
		}
	}
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if err := os.Mkdir(seg, mode); err != nil {
			if os.IsExist(err) {
				continue
			}
			return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("mkdir %s: %w", seg, err))
		}
		if err := os.Chmod(seg, mode); err != nil {
			return dobbyerr.New(dobbyerr.IOFailed, fmt.Errorf("chmod %s: %w", seg, err))
		}
	}
	return nil
}

func parentDir(p string) string {
	i := strings.LastIndexByte(strings.TrimRight(p, "/"), '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

// CallInNamespace enters pid's IPC, network, or mount namespace, runs fn on
// a dedicated worker, and returns its error. PID, USER and UTS namespaces
// are rejected by nsenter.Call.
func (c *ContainerConfig) CallInNamespace(pid int, kind nsenter.Kind, fn func() error) error {
	return nsenter.Call(pid, kind, fn)
}
