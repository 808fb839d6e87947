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

// Package version answers "what build of the hook framework is this" for
// the two entry points that need to say so out loud: cmd/dobbyd and
// cmd/dobby-hook's -version flags, and any log line that wants to stamp
// its output with the running build. FindClosestMatch/MajorMinorPatch
// exist for the day a second framework build ships alongside an older
// one and something needs to pick the nearest compatible release out of
// a list rather than doing an exact string match.
package version

import (
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// Build returns the build suffix for a version string.
	Build = semver.Build
	// Compare compares to version strings, returning -1, 0, or 1 according to their
	// semantic version precedence.
	Compare = semver.Compare
	// IsValid checks a version string for validity.
	IsValid = semver.IsValid
	// Major returns the major version prefix of a semantic version string.
	Major = semver.Major
	// MajorMinor returns the major.minor version prefix of a semantic version string.
	MajorMinor = semver.MajorMinor
	// Prerelease returns the prerelease suffix for a version string.
	Prerelease = semver.Prerelease
	// Sort sorts a slice of version strings in increasing order.
	Sort = semver.Sort
)

const (
	// UnknownVersion is reported for failed version detection.
	UnknownVersion = "0.0.0-unknown"
	// DevelVersion is what we get from debug/build info when building
	// cmd/ binaries within this module's own checkout.
	DevelVersion = "(devel)"
	// frameworkModulePath is the module we look for to discover the
	// hook framework's own version.
	frameworkModulePath = "github.com/rdkcentral/Dobby-sub004"
)

// GetFromBuildInfo returns the version of this hook framework currently
// linked into the running binary, taken from the debug/build info the Go
// runtime embeds, or a git-described version for binaries built from a
// checkout of this module.
func GetFromBuildInfo() string {
	version := UnknownVersion

	if bi, ok := debug.ReadBuildInfo(); ok {
		switch {
		case bi.Main.Path == frameworkModulePath && bi.Main.Version != "":
			version = bi.Main.Version
		default:
			// Built with `go build` directly from a checkout (no module
			// version resolved); fall through to the git-described
			// fallback below.
			version = DevelVersion
		}
	}

	if version == DevelVersion {
		return fallbackVersion()
	}

	return version
}

// MajorMinorPatch returns the major.minor.patch prefix of the semantic version v.
func MajorMinorPatch(v string) string {
	return strings.TrimSuffix(strings.TrimSuffix(v, Build(v)), Prerelease(v))
}

// FindClosestMatch returns the largest version smaller or equal to a given one.
// "" is returned if no such version if found.
func FindClosestMatch(v string, versions []string) string {
	// Note: A git-described version suffix (-N-gSHA1[.*])) is not semantically
	// semver-correct as semver considers it a prerelease identifier. Therefore
	// semver for instance considers v2.2.0-225-ge9dc15b7a.m < v2.2.0, which is
	// obviously not the case. In lack of a better choice, we strip any such
	// suffix from v before comparison.
	v = StripGitSuffix(v)
	Sort(versions)

	latest := ""
	for _, ver := range versions {
		if Compare(ver, v) > 0 {
			break
		}
		latest = ver
	}
	return latest
}

// StripGitSuffix strips any git described suffix from a version string.
// We expect a valid git suffix to be of the form "-N-gSHA1[.m], where
// N is an decimal integer and SHA1 is a hexadecimal integer.
func StripGitSuffix(version string) string {
	mmp := MajorMinorPatch(version)
	pre := Prerelease(version)
	if mmp+pre != version {
		return version
	}

	if pre == "" || pre[0] != '-' {
		return version
	}

	commits, gsha1, ok := strings.Cut(pre[1:], "-")
	if !ok || gsha1 == "" || gsha1[0] != 'g' {
		return version
	}
	if _, err := strconv.ParseInt(commits, 10, 64); err != nil {
		return version
	}

	sha1, _, _ := strings.Cut(gsha1[1:], ".")
	if _, err := strconv.ParseInt(sha1, 16, 64); err != nil {
		return version
	}

	return mmp
}
