package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, spec *specs.Spec, rdkPlugins map[string]json.RawMessage) string {
	t.Helper()
	dir := t.TempDir()

	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	var merged map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &merged))
	if rdkPlugins != nil {
		pluginsRaw, err := json.Marshal(rdkPlugins)
		require.NoError(t, err)
		merged["rdk_plugins"] = pluginsRaw
	}
	out, err := json.Marshal(merged)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), out, 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rootfs"), 0o755))
	return dir
}

func baseSpec() *specs.Spec {
	return &specs.Spec{
		Hostname: "testcontainer",
		Root:     &specs.Root{Path: "rootfs"},
		Process: &specs.Process{
			Env:  []string{"PATH=/usr/bin", "FOO=bar"},
			User: specs.User{UID: 100, GID: 100},
		},
		Linux: &specs.Linux{
			UIDMappings: []specs.LinuxIDMapping{{ContainerID: 100, HostID: 100000, Size: 65536}},
			GIDMappings: []specs.LinuxIDMapping{{ContainerID: 100, HostID: 100000, Size: 65536}},
		},
	}
}

func TestLoadAndSaveRoundTrips(t *testing.T) {
	dir := writeBundle(t, baseSpec(), map[string]json.RawMessage{
		"networking": json.RawMessage(`{"type":"nat"}`),
	})

	cfg, err := Load(RuntimeState{ID: "abc123", Bundle: dir})
	require.NoError(t, err)
	assert.Equal(t, "testcontainer", cfg.GetContainerID())

	settings, ok := cfg.PluginSettings("networking")
	require.True(t, ok)
	assert.JSONEq(t, `{"type":"nat"}`, string(settings))

	require.NoError(t, cfg.AddMount("/host/dir", "/container/dir", "bind", []string{"ro"}))
	require.NoError(t, cfg.Save())

	reloaded, err := Load(RuntimeState{ID: "abc123", Bundle: dir})
	require.NoError(t, err)
	require.Len(t, reloaded.Spec().Mounts, 1)
	assert.Equal(t, "/container/dir", reloaded.Spec().Mounts[0].Destination)
	_, ok = reloaded.PluginSettings("networking")
	assert.True(t, ok)
}

func TestAddEnvironmentVarReplacesByKey(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	require.NoError(t, cfg.AddEnvironmentVar("FOO=baz"))
	assert.Contains(t, cfg.Spec().Process.Env, "FOO=baz")
	assert.NotContains(t, cfg.Spec().Process.Env, "FOO=bar")

	require.NoError(t, cfg.AddEnvironmentVar("NEW=1"))
	assert.Contains(t, cfg.Spec().Process.Env, "NEW=1")

	before := len(cfg.Spec().Process.Env)
	require.NoError(t, cfg.AddEnvironmentVar("FOO=baz"))
	assert.Len(t, cfg.Spec().Process.Env, before)
}

func TestAddEnvironmentVarRejectsMissingEquals(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)
	assert.Error(t, cfg.AddEnvironmentVar("NOEQUALS"))
}

func TestAnnotationsAddAndRemove(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	cfg.AddAnnotation("com.example/key", "value")
	assert.Equal(t, "value", cfg.Spec().Annotations["com.example/key"])

	cfg.RemoveAnnotation("com.example/key")
	_, ok := cfg.Spec().Annotations["com.example/key"]
	assert.False(t, ok)
}

func TestMappedUIDAndGID(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	assert.Equal(t, uint32(100000), cfg.MappedUID())
	assert.Equal(t, uint32(100000), cfg.MappedGID())
}

func TestMappedUIDFallsBackWhenUnmapped(t *testing.T) {
	spec := baseSpec()
	spec.Process.User.UID = 9999
	dir := writeBundle(t, spec, nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	assert.Equal(t, uint32(9999), cfg.MappedUID())
}

func TestAddFileDescriptorReturnsStableIndices(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	idx1, err := cfg.AddFileDescriptor("pluginA", int(r.Fd()))
	require.NoError(t, err)
	assert.Equal(t, 0, idx1)

	idx2, err := cfg.AddFileDescriptor("pluginB", int(w.Fd()))
	require.NoError(t, err)
	assert.Equal(t, 1, idx2)

	assert.Len(t, cfg.Files(), 2)
	assert.Len(t, cfg.FilesByPlugin("pluginA"), 1)
}

func TestGetContainerPIDFailsBeforeAssignment(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	_, err = cfg.GetContainerPID()
	assert.Error(t, err)
}

func TestNetworkInfoRoundTrips(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	info := NetworkInfo{IPv4: []byte{192, 168, 1, 42}, VethName: "veth0123"}
	require.NoError(t, cfg.WriteContainerNetworkInfo(info))

	got, err := cfg.GetContainerNetworkInfo()
	require.NoError(t, err)
	assert.True(t, got.IPv4.Equal(info.IPv4))
	assert.Equal(t, info.VethName, got.VethName)
}

func TestMkdirRecursiveAppliesModeDespiteUmask(t *testing.T) {
	dir := writeBundle(t, baseSpec(), nil)
	cfg, err := Load(RuntimeState{Bundle: dir})
	require.NoError(t, err)

	target := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, cfg.MkdirRecursive(target, 0o777))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())
}
