package minidump

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
)

func TestBuildAppliesDefaults(t *testing.T) {
	p, err := build([]byte(`{"destinationPath":"/var/lib/dobby/dumps/c1"}`))
	require.NoError(t, err)
	assert.NotNil(t, p.Callbacks[dispatch.CreateRuntime])
	assert.NotNil(t, p.Callbacks[dispatch.PostStop])
}

func TestSettingsDecodeExplicitFields(t *testing.T) {
	raw := []byte(`{"destinationPath":"/out","containerPath":"/mnt/dump","imageSize":4096}`)
	var s Settings
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "/mnt/dump", s.ContainerPath)
	assert.EqualValues(t, 4096, s.ImageSizeBytes)
}
