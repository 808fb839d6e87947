package loopmount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyOutMatchingSelectsOnlyMagicPrefixedFiles(t *testing.T) {
	rootfs := t.TempDir()
	dest := "mnt/minidumps"
	mountDir := filepath.Join(rootfs, dest)
	require.NoError(t, os.MkdirAll(mountDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(mountDir, "crash1.dmp"), append(DefaultMagicPrefix, []byte("payload")...), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(mountDir, "ignored.txt"), []byte("not a dump"), 0o644))

	hostDest := filepath.Join(t.TempDir(), "out")
	m := &Mount{Descriptor: Descriptor{Destination: dest}}

	copied, err := CopyOutMatching(m, rootfs, hostDest, DefaultMagicPrefix)
	require.NoError(t, err)
	require.Len(t, copied, 1)
	assert.Equal(t, "crash1.dmp", filepath.Base(copied[0]))

	contents, err := os.ReadFile(copied[0])
	require.NoError(t, err)
	assert.Contains(t, string(contents), "payload")
}

func TestCopyOutMatchingHandlesEmptyTree(t *testing.T) {
	rootfs := t.TempDir()
	dest := "mnt/empty"
	require.NoError(t, os.MkdirAll(filepath.Join(rootfs, dest), 0o755))

	m := &Mount{Descriptor: Descriptor{Destination: dest}}
	copied, err := CopyOutMatching(m, rootfs, filepath.Join(t.TempDir(), "out"), DefaultMagicPrefix)
	require.NoError(t, err)
	assert.Empty(t, copied)
}
