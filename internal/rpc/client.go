package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/api"
	"github.com/signalsfoundry/iot-netselect/model"
)

// Client is a typed wrapper around a connection to SelectionService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, req any, out any, opts ...grpc.CallOption) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, resp, opts...); err != nil {
		return err
	}
	return decodeStruct(resp, out)
}

// Decide asks the server to select a network for state.
func (c *Client) Decide(ctx context.Context, state model.DeviceState, opts ...grpc.CallOption) (decision.Report, error) {
	var out decision.Report
	err := c.call(ctx, "Decide", state, &out, opts...)
	return out, err
}

// CalculateCost scores one network for task.
func (c *Client) CalculateCost(ctx context.Context, state model.NetworkState, task model.Task, opts ...grpc.CallOption) (api.CostView, error) {
	var out api.CostView
	err := c.call(ctx, "CalculateCost", api.CostRequest{NetworkState: state, Task: task}, &out, opts...)
	return out, err
}

// Step advances a session; an empty sessionID targets the default session.
func (c *Client) Step(ctx context.Context, sessionID string, opts ...grpc.CallOption) (api.StepView, error) {
	var out api.StepView
	err := c.call(ctx, "Step", sessionRequest{SessionID: sessionID}, &out, opts...)
	return out, err
}

// StepWithDecision advances a session and returns the selection.
func (c *Client) StepWithDecision(ctx context.Context, sessionID string, opts ...grpc.CallOption) (api.StepWithDecisionView, error) {
	var out api.StepWithDecisionView
	err := c.call(ctx, "StepWithDecision", sessionRequest{SessionID: sessionID}, &out, opts...)
	return out, err
}

// Reset moves a session's device to pos.
func (c *Client) Reset(ctx context.Context, sessionID string, pos model.Position, opts ...grpc.CallOption) (api.ResetView, error) {
	var out api.ResetView
	err := c.call(ctx, "Reset", resetRequest{SessionID: sessionID, X: pos.X, Y: pos.Y}, &out, opts...)
	return out, err
}

// GetStats returns a session's simulator summary.
func (c *Client) GetStats(ctx context.Context, sessionID string, opts ...grpc.CallOption) (core.SimulationStats, error) {
	var out core.SimulationStats
	err := c.call(ctx, "GetStats", sessionRequest{SessionID: sessionID}, &out, opts...)
	return out, err
}

// ListNetworkConfigs returns the server's network table.
func (c *Client) ListNetworkConfigs(ctx context.Context, opts ...grpc.CallOption) (map[string]model.NetworkConfig, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/ListNetworkConfigs", new(emptypb.Empty), resp, opts...); err != nil {
		return nil, err
	}
	var out struct {
		Configs map[string]model.NetworkConfig `json:"network_configs"`
	}
	if err := decodeStruct(resp, &out); err != nil {
		return nil, err
	}
	return out.Configs, nil
}
