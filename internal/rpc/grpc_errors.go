package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

// ToStatusError maps selection and simulator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, decision.ErrInvalidTask),
		errors.Is(err, decision.ErrNoCandidates),
		errors.Is(err, decision.ErrNoMatchingNetwork),
		errors.Is(err, model.ErrUnknownTask),
		errors.Is(err, model.ErrInvalidNetworkConfig),
		errors.Is(err, model.ErrInvalidNetworkState),
		errors.Is(err, core.ErrInvalidScenario),
		errors.Is(err, core.ErrInvalidEngineConfig),
		errors.Is(err, decision.ErrInvalidTables):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrSessionExists):
		return status.Error(codes.AlreadyExists, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
