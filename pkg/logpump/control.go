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

package logpump

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/containerd/ttrpc"
)

// controlServiceName is the ttrpc service name control connections dial
// against, namespaced the way the teacher namespaces its own ttrpc
// services (e.g. "runtime.v1alpha2.NRIPlugin").
const controlServiceName = "dobby.logpump.v1.Control"

// DumpRequest asks the pump for the container named ContainerID to flush
// its currently-buffered ptty data to its sink synchronously.
type DumpRequest struct {
	ContainerID string `json:"containerId"`
}

// Marshal/Unmarshal satisfy ttrpc's Marshaler/Unmarshaler interfaces with
// plain JSON: there is no generated protobuf type for this tiny, purely
// in-cluster control message, and ttrpc's codec accepts any type
// implementing these two methods in place of a proto.Message.
func (r *DumpRequest) Marshal() ([]byte, error) { return json.Marshal(r) }
func (r *DumpRequest) Unmarshal(p []byte) error { return json.Unmarshal(p, r) }

// DumpResponse is returned once the flush has completed.
type DumpResponse struct{}

func (r *DumpResponse) Marshal() ([]byte, error) { return json.Marshal(r) }
func (r *DumpResponse) Unmarshal(p []byte) error { return json.Unmarshal(p, r) }

// ControlService is what a logging plugin's runtime state exposes over
// the control connection: a synchronous on-demand dump, grounded on
// spec.md §4.7's "DumpToLog" entry point.
type ControlService interface {
	DumpToLog(ctx context.Context, req *DumpRequest) (*DumpResponse, error)
}

// NewControlServer returns a bare ttrpc server; callers register one or
// more services on it (RegisterControlService) before calling Serve.
func NewControlServer() (*ttrpc.Server, error) {
	return ttrpc.NewServer()
}

// RegisterControlService registers svc's methods on srv under
// controlServiceName, by hand rather than via protoc-generated stubs: the
// service has exactly one RPC and JSON-codec request/response types, so
// generated code would add indirection without adding safety.
func RegisterControlService(srv *ttrpc.Server, svc ControlService) {
	srv.Register(controlServiceName, map[string]ttrpc.Method{
		"DumpToLog": func(ctx context.Context, unmarshal func(interface{}) error) (interface{}, error) {
			var req DumpRequest
			if err := unmarshal(&req); err != nil {
				return nil, err
			}
			return svc.DumpToLog(ctx, &req)
		},
	})
}

// ControlClient calls a remote ControlService over an established
// connection (normally a unix socket dialed at a per-container control
// path, the same fd the pump's owning Pump.controlConn closes alongside
// the ptty on hangup).
type ControlClient struct {
	c *ttrpc.Client
}

// NewControlClient wraps conn in a ttrpc client for controlServiceName.
func NewControlClient(conn net.Conn) *ControlClient {
	return &ControlClient{c: ttrpc.NewClient(conn)}
}

// DumpToLog invokes the remote DumpToLog RPC.
func (c *ControlClient) DumpToLog(ctx context.Context, containerID string) error {
	req := &DumpRequest{ContainerID: containerID}
	resp := &DumpResponse{}
	if err := c.c.Call(ctx, controlServiceName, "DumpToLog", req, resp); err != nil {
		return fmt.Errorf("logpump: control DumpToLog(%s): %w", containerID, err)
	}
	return nil
}

// Close releases the underlying ttrpc client.
func (c *ControlClient) Close() error {
	return c.c.Close()
}
