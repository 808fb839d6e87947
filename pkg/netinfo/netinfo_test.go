package netinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/Dobby-sub004/pkg/config"
)

func TestFallbackReadsDobbyAddressFile(t *testing.T) {
	dir := t.TempDir()
	rootfs := filepath.Join(dir, "rootfs")
	require.NoError(t, os.MkdirAll(rootfs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootfs, "dobbyaddress"), []byte("16951716/dobby0"), 0o644))

	raw := []byte(`{"hostname":"c1","root":{"path":"rootfs"}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o644))

	cfg, err := config.Load(config.RuntimeState{ID: "c1", Bundle: dir})
	require.NoError(t, err)

	info, err := Fallback(cfg)
	require.NoError(t, err)
	assert.Equal(t, "dobby0", info.VethName)
	assert.NotNil(t, info.IPv4)
}

func TestBusNameConstantsAreStable(t *testing.T) {
	assert.Equal(t, "com.rdk.dobby.NetworkingPlugin.GetIPAddress", method)
}
