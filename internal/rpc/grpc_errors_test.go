package rpc

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "session not found", err: fmt.Errorf("%w: %q", kb.ErrSessionNotFound, "x"), code: codes.NotFound},
		{name: "session exists", err: kb.ErrSessionExists, code: codes.AlreadyExists},
		{name: "bad request", err: fmt.Errorf("%w: eof", ErrInvalidRequest), code: codes.InvalidArgument},
		{name: "invalid task", err: decision.ErrInvalidTask, code: codes.InvalidArgument},
		{name: "no candidates", err: decision.ErrNoCandidates, code: codes.InvalidArgument},
		{name: "no matching network", err: decision.ErrNoMatchingNetwork, code: codes.InvalidArgument},
		{name: "unknown task", err: model.ErrUnknownTask, code: codes.InvalidArgument},
		{name: "bad network state", err: model.ErrInvalidNetworkState, code: codes.InvalidArgument},
		{name: "bad scenario", err: core.ErrInvalidScenario, code: codes.InvalidArgument},
		{name: "bad engine config", err: fmt.Errorf("%w: map size 0x0", core.ErrInvalidEngineConfig), code: codes.InvalidArgument},
		{name: "bad decision tables", err: fmt.Errorf("%w: no weights", decision.ErrInvalidTables), code: codes.InvalidArgument},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("ToStatusError(%v) = nil, want error", tc.err)
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}
