package dobbyerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	wrapped := WithPlugin(PluginFailure, "networking", "createRuntime", base)

	assert.Equal(t, PluginFailure, KindOf(wrapped))
	assert.True(t, Is(wrapped, PluginFailure))
	assert.False(t, Is(wrapped, IOFailed))
	assert.ErrorIs(t, wrapped, base)
}

func TestKindOfUnrelatedError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestNewNilIsNil(t *testing.T) {
	assert.NoError(t, New(IOFailed, nil))
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := WithPlugin(ResourceUnavailable, "gpu", "createRuntime", fmt.Errorf("controller missing"))
	assert.Contains(t, err.Error(), "gpu")
	assert.Contains(t, err.Error(), "createRuntime")
	assert.Contains(t, err.Error(), "resource-unavailable")
}
