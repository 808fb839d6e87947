package nsenter

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rdkcentral/Dobby-sub004/pkg/dobbyerr"
)

func TestCallRejectsUnjoinableKind(t *testing.T) {
	err := Call(os.Getpid(), Kind("pid"), func() error { return nil })
	assert.Equal(t, dobbyerr.SyscallFailed, dobbyerr.KindOf(err))
}

func TestCallRunsFnAndReturnsItsError(t *testing.T) {
	// Entering our own namespace is always legal and exercises the
	// success path without needing root or a second process.
	sentinel := assertErr("boom")
	err := Call(os.Getpid(), Net, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
