/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package main

import (
	"context"
	"net"
	"os"

	"github.com/containerd/ttrpc"

	"github.com/rdkcentral/Dobby-sub004/pkg/logpump"
	"github.com/rdkcentral/Dobby-sub004/pkg/rdkplugins/logging"
)

// controlService implements logpump.ControlService on top of the logging
// plugin's per-container ptty bookkeeping: this is the ttrpc-reachable
// side of spec.md §4.7's on-demand DumpToLog entry point.
type controlService struct{}

func (controlService) DumpToLog(_ context.Context, req *logpump.DumpRequest) (*logpump.DumpResponse, error) {
	if err := logging.DumpToLogForContainer(req.ContainerID); err != nil {
		return nil, err
	}
	return &logpump.DumpResponse{}, nil
}

// startControlServer listens on a unix socket at path and serves the
// logging control service until ctx is canceled. Removes any stale socket
// file left behind by a previous, uncleanly stopped daemon before
// binding, matching the teacher's own "unlink before listen" idiom for
// its unix-socket-based plugin registration endpoint.
func startControlServer(ctx context.Context, path string) (*ttrpc.Server, error) {
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}

	srv, err := logpump.NewControlServer()
	if err != nil {
		l.Close()
		return nil, err
	}
	logpump.RegisterControlService(srv, controlService{})

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	go func() {
		_ = srv.Serve(ctx, l)
	}()

	return srv, nil
}
