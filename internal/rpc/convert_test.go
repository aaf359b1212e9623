package rpc

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/iot-netselect/model"
)

func TestDecodeStructDeviceState(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{
		"position":     map[string]any{"x": 120, "y": 80},
		"current_task": "video_streaming",
		"available_networks": []any{
			map[string]any{"name": "Wi-Fi", "bandwidth": 42.5, "latency": 12, "is_available": true},
		},
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}

	var st model.DeviceState
	if err := decodeStruct(in, &st); err != nil {
		t.Fatalf("decodeStruct: %v", err)
	}
	if st.Position != (model.Position{X: 120, Y: 80}) {
		t.Fatalf("position = %v", st.Position)
	}
	if st.CurrentTask != model.TaskVideoStreaming {
		t.Fatalf("task = %q", st.CurrentTask)
	}
	if len(st.AvailableNetworks) != 1 || st.AvailableNetworks[0].Latency != 12 {
		t.Fatalf("networks = %+v", st.AvailableNetworks)
	}
}

func TestDecodeStructRejectsUnknownTask(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{"current_task": "SLEEPING"})
	var st model.DeviceState
	err := decodeStruct(in, &st)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestDecodeStructEmptyIsNoop(t *testing.T) {
	req := sessionRequest{SessionID: "keep"}
	if err := decodeStruct(nil, &req); err != nil {
		t.Fatalf("nil struct: %v", err)
	}
	if err := decodeStruct(&structpb.Struct{}, &req); err != nil {
		t.Fatalf("empty struct: %v", err)
	}
	if req.SessionID != "keep" {
		t.Fatalf("request mutated: %+v", req)
	}
}

func TestEncodeStructRoundTripsView(t *testing.T) {
	out, err := encodeStruct(resetRequest{SessionID: "s1", X: 3, Y: 4})
	if err != nil {
		t.Fatalf("encodeStruct: %v", err)
	}
	if got := out.GetFields()["session_id"].GetStringValue(); got != "s1" {
		t.Fatalf("session_id = %q", got)
	}
	if got := out.GetFields()["y"].GetNumberValue(); got != 4 {
		t.Fatalf("y = %v", got)
	}
}

func TestEncodeStructRejectsNonObject(t *testing.T) {
	if _, err := encodeStruct([]int{1, 2}); err == nil {
		t.Fatalf("expected error encoding a JSON array")
	}
}
