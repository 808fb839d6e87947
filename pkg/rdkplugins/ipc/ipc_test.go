package ipc

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
)

func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	spec := &specs.Spec{
		Hostname: "c1",
		Root:     &specs.Root{Path: "rootfs"},
		Process:  &specs.Process{Env: []string{"PATH=/usr/bin"}},
	}
	raw, err := json.Marshal(spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rootfs"), 0o755))
	return dir
}

func TestOnCreateContainerSetsBusEnvironment(t *testing.T) {
	dir := writeBundle(t)
	cfg, err := config.Load(config.RuntimeState{ID: "c1", Bundle: dir})
	require.NoError(t, err)

	s := Settings{
		EnableDbusSystem:    true,
		SystemBusSocketPath: "/run/dbus/system_bus_socket",
		EnableIDMapping:     true,
	}
	require.NoError(t, onCreateContainer(cfg, s))

	env := cfg.Spec().Process.Env
	assert.Contains(t, env, "DBUS_SYSTEM_BUS_ADDRESS=unix:path=/run/dbus/system_bus_socket")
	assert.Contains(t, env, "DBUS_ID_MAPPING=1")
	assert.NotContains(t, env, "DBUS_SESSION_BUS_ADDRESS=unix:path=")
	require.Len(t, cfg.Spec().Mounts, 1)
	assert.Equal(t, "/run/dbus/system_bus_socket", cfg.Spec().Mounts[0].Destination)
}

func TestOnCreateContainerIsANoopWhenNothingEnabled(t *testing.T) {
	dir := writeBundle(t)
	cfg, err := config.Load(config.RuntimeState{ID: "c1", Bundle: dir})
	require.NoError(t, err)

	require.NoError(t, onCreateContainer(cfg, Settings{}))
	assert.Empty(t, cfg.Spec().Mounts)
}

func TestBuildRejectsMalformedSettings(t *testing.T) {
	_, err := build([]byte(`{not json`))
	assert.Error(t, err)
}
