package logpump

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingControlService struct {
	lastContainerID string
	err             error
}

func (s *recordingControlService) DumpToLog(_ context.Context, req *DumpRequest) (*DumpResponse, error) {
	s.lastContainerID = req.ContainerID
	if s.err != nil {
		return nil, s.err
	}
	return &DumpResponse{}, nil
}

func TestControlServiceRoundTripsDumpToLog(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "control.sock")

	l, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	defer l.Close()

	srv, err := NewControlServer()
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	svc := &recordingControlService{}
	RegisterControlService(srv, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = srv.Serve(ctx, l)
	}()

	conn, err := net.DialTimeout("unix", sockPath, time.Second)
	require.NoError(t, err)

	client := NewControlClient(conn)
	defer client.Close()

	callCtx, cancelCall := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelCall()
	require.NoError(t, client.DumpToLog(callCtx, "container-1"))

	assert.Equal(t, "container-1", svc.lastContainerID)
}
