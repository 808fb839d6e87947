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

// Package dobbylog builds the *logrus.Logger every cmd/ entrypoint and
// pkg/ package shares, mirroring the package-level `var log *logrus.Logger`
// plus flag-driven level that each teacher plugin main.go sets up for
// itself.
package dobbylog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing text-formatted lines to stderr at the given
// level name ("debug", "info", "warn", "error"); an unrecognised name
// falls back to "info".
func New(levelName string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(parseLevel(levelName))
	return l
}

func parseLevel(name string) logrus.Level {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithContainer returns an entry carrying the container id, the way every
// plugin log line in the original source is tagged with the container's
// hostname for correlation with the runtime's own logs.
func WithContainer(l *logrus.Logger, containerID string) *logrus.Entry {
	return l.WithField("container", containerID)
}

// WithHook further tags an entry with the hook point and plugin name, the
// minimum context spec.md §7 requires on every logged-only failure.
func WithHook(e *logrus.Entry, hook, plugin string) *logrus.Entry {
	return e.WithField("hook", hook).WithField("plugin", plugin)
}
