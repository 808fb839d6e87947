package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdkcentral/Dobby-sub004/pkg/dispatch"
)

func TestBuildDefaultsToFileSink(t *testing.T) {
	p, err := build(nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Callbacks[dispatch.CreateRuntime])
	assert.NotNil(t, p.Callbacks[dispatch.PostStop])
}

func TestBuildRejectsMalformedSettings(t *testing.T) {
	_, err := build([]byte(`{bad`))
	assert.Error(t, err)
}

func TestRegisterPollSourceFailsWithoutInstalledLoop(t *testing.T) {
	mu.Lock()
	sharedLoop = nil
	mu.Unlock()

	err := registerPollSource(-1, func() {})
	assert.Error(t, err)
}

func TestDumpToLogFailsForUnknownPtty(t *testing.T) {
	err := dumpToLog(999999)
	assert.Error(t, err)
}

func TestDumpToLogForContainerFailsWithoutAssociation(t *testing.T) {
	err := DumpToLogForContainer("never-registered")
	assert.Error(t, err)
}

func TestForgetContainerClearsAssociation(t *testing.T) {
	AssociatePtty("c1", 42)
	ForgetContainer("c1")
	err := DumpToLogForContainer("c1")
	assert.Error(t, err)
}
