// internal/rpc/selection_service.go
package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/api"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

// SelectionService implements SelectionServiceServer on top of a session
// registry and a cost model.
type SelectionService struct {
	sessions *kb.KnowledgeBase
	model    *decision.Model
	configs  map[string]model.NetworkConfig
	log      logging.Logger
}

// NewSelectionService constructs the service. configs is the network table
// used by Decide and CalculateCost; session steps use their engine's own.
func NewSelectionService(sessions *kb.KnowledgeBase, m *decision.Model, configs []model.NetworkConfig, log logging.Logger) *SelectionService {
	if m == nil {
		m = decision.Default()
	}
	table := make(map[string]model.NetworkConfig, len(configs))
	for _, c := range configs {
		table[c.Name] = c
	}
	return &SelectionService{
		sessions: sessions,
		model:    m,
		configs:  table,
		log:      logging.OrNoop(log),
	}
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

func (s *SelectionService) ensureReady() error {
	if s == nil || s.sessions == nil {
		return status.Error(codes.FailedPrecondition, "selection service not initialised")
	}
	return nil
}

// session resolves id, falling back to the default session which is created
// on first use.
func (s *SelectionService) session(id string) (*kb.Session, error) {
	if id == "" || id == kb.DefaultSessionID {
		return s.sessions.EnsureSession(kb.DefaultSessionID)
	}
	return s.sessions.GetSession(id)
}

func (s *SelectionService) respond(ctx context.Context, v any, err error) (*structpb.Struct, error) {
	if err != nil {
		log := logging.FromContext(ctx, s.log)
		st := ToStatusError(err)
		if status.Code(st) == codes.Internal {
			log.Error(ctx, "request failed", logging.Err(err))
		} else {
			log.Debug(ctx, "request rejected", logging.Err(err))
		}
		return nil, st
	}
	out, encErr := encodeStruct(v)
	if encErr != nil {
		return nil, ToStatusError(encErr)
	}
	return out, nil
}

// Decide selects the best network for the supplied device state.
func (s *SelectionService) Decide(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var state model.DeviceState
	if err := decodeStruct(in, &state); err != nil {
		return s.respond(ctx, nil, err)
	}

	ctx, span := StartChildSpan(ctx, "decision.Evaluate", "", string(state.CurrentTask))
	d, err := s.model.Evaluate(ctx, state.AvailableNetworks, s.configs, state.CurrentTask)
	span.End()
	if err != nil {
		return s.respond(ctx, nil, err)
	}
	return s.respond(ctx, decision.NewReport(state, d), nil)
}

// CalculateCost scores a single network for a task.
func (s *SelectionService) CalculateCost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.CostRequest
	if err := decodeStruct(in, &req); err != nil {
		return s.respond(ctx, nil, err)
	}
	view, err := api.CalculateCost(s.model, s.configs, req)
	return s.respond(ctx, view, err)
}

// Step advances a session one step.
func (s *SelectionService) Step(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return s.respond(ctx, nil, err)
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return s.respond(ctx, nil, err)
	}

	_, span := StartChildSpan(ctx, "simulation.Step", sess.ID, "")
	step, st := sess.Step()
	span.End()
	return s.respond(ctx, api.NewStepView(sess.ID, step, st), nil)
}

// StepWithDecision advances a session and selects a network for the new
// state. The decision is null when nothing is reachable.
func (s *SelectionService) StepWithDecision(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return s.respond(ctx, nil, err)
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return s.respond(ctx, nil, err)
	}

	ctx, span := StartChildSpan(ctx, "simulation.StepWithDecision", sess.ID, "")
	res, err := sess.StepWithDecision(ctx, s.model)
	span.End()
	if err != nil {
		return s.respond(ctx, nil, err)
	}
	return s.respond(ctx, api.NewStepWithDecisionView(sess.ID, res), nil)
}

// Reset moves a session's device to (x, y).
func (s *SelectionService) Reset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req resetRequest
	if err := decodeStruct(in, &req); err != nil {
		return s.respond(ctx, nil, err)
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return s.respond(ctx, nil, err)
	}
	stats := sess.Reset(model.Position{X: req.X, Y: req.Y})
	return s.respond(ctx, api.NewResetView(sess.ID, stats), nil)
}

// GetStats returns a session's simulator summary.
func (s *SelectionService) GetStats(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return s.respond(ctx, nil, err)
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return s.respond(ctx, nil, err)
	}
	return s.respond(ctx, sess.Stats(), nil)
}

// ListNetworkConfigs returns the network energy table.
func (s *SelectionService) ListNetworkConfigs(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if len(s.configs) == 0 {
		return s.respond(ctx, nil, errors.New("no network configs loaded"))
	}
	return s.respond(ctx, map[string]any{"network_configs": s.configs}, nil)
}

var _ SelectionServiceServer = (*SelectionService)(nil)
