package multicastsockets

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

func TestPreopenAddsServerEnvVar(t *testing.T) {
	dir := writeBundle(t)
	cfg, err := config.Load(config.RuntimeState{ID: "c1", Bundle: dir})
	require.NoError(t, err)

	sock := Socket{Name: "discovery", Address: "127.0.0.1", Port: 0, IsServer: true}
	require.NoError(t, preopen(cfg, sock))

	env := cfg.Spec().Process.Env
	found := false
	for _, e := range env {
		if len(e) >= len("MCAST_SERVER_SOCKET_DISCOVERY_FD=") && e[:len("MCAST_SERVER_SOCKET_DISCOVERY_FD=")] == "MCAST_SERVER_SOCKET_DISCOVERY_FD=" {
			found = true
		}
	}
	assert.True(t, found, "expected MCAST_SERVER_SOCKET_DISCOVERY_FD env var, got %v", env)
	assert.Len(t, cfg.Files(), 1)
}

func TestPreopenAddsClientEnvVar(t *testing.T) {
	dir := writeBundle(t)
	cfg, err := config.Load(config.RuntimeState{ID: "c1", Bundle: dir})
	require.NoError(t, err)

	sock := Socket{Name: "notify", Address: "127.0.0.1", Port: 0, IsServer: false}
	require.NoError(t, preopen(cfg, sock))

	env := cfg.Spec().Process.Env
	var got string
	for _, e := range env {
		if len(e) > len("MCAST_CLIENT_SOCKET_NOTIFY_FD=") && e[:len("MCAST_CLIENT_SOCKET_NOTIFY_FD=")] == "MCAST_CLIENT_SOCKET_NOTIFY_FD=" {
			got = e
		}
	}
	assert.NotEmpty(t, got)
}
