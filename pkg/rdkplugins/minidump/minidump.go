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

// Package minidump is an example rdk_plugins implementation exercising
// the LoopMount service end to end: it attaches a small scratch image
// into the container at createRuntime, and on teardown copies out every
// file tagged with the minidump magic prefix before detaching. Grounded
// on plugins/Minidump/source/Minidump.cpp.
package minidump

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
	"github.com/rdkcentral/Dobby-sub004/pkg/dobbylog"
	"github.com/rdkcentral/Dobby-sub004/pkg/loopmount"
	"github.com/rdkcentral/Dobby-sub004/pkg/plugin"
)

var log = dobbylog.New("info")

const (
	defaultContainerPath = "/var/minidumps"
	defaultImageSize      = 16 << 20 // 16MiB
	imageHostDir           = "/var/lib/dobby/minidumps"
)

// Settings is the rdk_plugins["minidump"] settings subtree.
type Settings struct {
	DestinationPath string `json:"destinationPath"`
	ContainerPath   string `json:"containerPath,omitempty"`
	ImageSizeBytes  int64  `json:"imageSize,omitempty"`
}

var (
	mu     sync.Mutex
	active = map[string]*loopmount.Mount{}
)

// Descriptor returns this plugin's registration.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:    "minidump",
		Mask:    dispatch.MaskCreateRuntime | dispatch.MaskPostStop,
		Builder: build,
	}
}

func build(raw []byte) (dispatch.Plugin, error) {
	var s Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s); err != nil {
			return dispatch.Plugin{}, dobbyerr.New(dobbyerr.ConfigInvalid, fmt.Errorf("minidump: parse settings: %w", err))
		}
	}
	if s.ContainerPath == "" {
		s.ContainerPath = defaultContainerPath
	}
	if s.ImageSizeBytes == 0 {
		s.ImageSizeBytes = defaultImageSize
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
	desc := loopmount.Descriptor{
		ImagePath:   filepath.Join(imageHostDir, containerID+".img"),
		Destination: s.ContainerPath,
		ImageSize:   s.ImageSizeBytes,
		FSType:      "ext4",
		UID:         cfg.MappedUID(),
		GID:         cfg.MappedGID(),
	}

	if err := loopmount.EnsureImage(desc); err != nil {
		return err
	}
	m, err := loopmount.Attach(desc)
	if err != nil {
		return err
	}
	if err := loopmount.MountInto(m, cfg.RootFS()); err != nil {
		return err
	}

	mu.Lock()
	active[containerID] = m
	mu.Unlock()

	log.WithField("container", containerID).WithField("path", s.ContainerPath).Info("minidump scratch volume mounted")
	return nil
}

func onPostStop(cfg *config.ContainerConfig, s Settings) error {
	containerID := cfg.GetContainerID()

	mu.Lock()
	m, ok := active[containerID]
	delete(active, containerID)
	mu.Unlock()
	if !ok {
		return nil
	}

	copied, err := loopmount.CopyOutMatching(m, cfg.RootFS(), s.DestinationPath, loopmount.DefaultMagicPrefix)
	if err != nil {
		log.WithField("container", containerID).WithError(err).Warn("minidump copy-out failed")
	} else if len(copied) > 0 {
		log.WithField("container", containerID).WithField("files", copied).Info("copied out minidump files")
	}

	return loopmount.Detach(m, cfg.RootFS())
}
