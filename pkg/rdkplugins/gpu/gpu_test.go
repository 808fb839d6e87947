package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
)

func TestBuildParsesSettingsAndMask(t *testing.T) {
	p, err := build([]byte(`{"gpuMemLimit":1048576,"devices":["/dev/gpu0"]}`))
	require.NoError(t, err)
	assert.NotNil(t, p.Callbacks[dispatch.CreateRuntime])
	assert.NotNil(t, p.Callbacks[dispatch.PostStop])
}

func TestBuildRejectsMalformedSettings(t *testing.T) {
	_, err := build([]byte(`{bad`))
	assert.Error(t, err)
}

func TestDescriptorDeclaresExpectedMask(t *testing.T) {
	d := Descriptor()
	assert.Equal(t, "gpu", d.Name)
	assert.True(t, d.Mask&dispatch.MaskCreateRuntime != 0)
	assert.True(t, d.Mask&dispatch.MaskPostStop != 0)
}
