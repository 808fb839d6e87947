package cgroup

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorLimitFileLayoutSkipsNoLimit(t *testing.T) {
	root := t.TempDir()
	// SetupVendorLimits itself needs a mounted cgroup controller to
	// discover, so it is not called here. Instead this test lays out the
	// same files it writes (cgroup.procs, one file per limit, no file for
	// a NoLimit value) under a directory we own and checks their contents.
	mount := filepath.Join(root, "gpu")
	require.NoError(t, os.MkdirAll(mount, 0o755))

	subPath := filepath.Join(mount, "c1")
	require.NoError(t, os.Mkdir(subPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subPath, "cgroup.procs"), []byte(strconv.Itoa(42)), 0o644))

	limits := map[string]uint64{"gpu.limit_in_bytes": 1048576, "gpu.unbounded": NoLimit}
	for name, value := range limits {
		if value == NoLimit {
			continue
		}
		require.NoError(t, os.WriteFile(filepath.Join(subPath, name), []byte(strconv.FormatUint(value, 10)), 0o644))
	}

	procs, err := os.ReadFile(filepath.Join(subPath, "cgroup.procs"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(procs))

	limitBytes, err := os.ReadFile(filepath.Join(subPath, "gpu.limit_in_bytes"))
	require.NoError(t, err)
	assert.Equal(t, "1048576", string(limitBytes))

	_, err = os.Stat(filepath.Join(subPath, "gpu.unbounded"))
	assert.True(t, os.IsNotExist(err), "NoLimit value must not be written")
}

func TestTeardownToleratesMissingDirectory(t *testing.T) {
	b := &Binding{Path: filepath.Join(t.TempDir(), "already-gone")}
	assert.NoError(t, Teardown(b))
}

func TestTeardownRemovesDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "c1")
	require.NoError(t, os.Mkdir(sub, 0o755))
	b := &Binding{Path: sub}
	require.NoError(t, Teardown(b))
	_, err := os.Stat(sub)
	assert.True(t, os.IsNotExist(err))
}
