package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidRequest marks a request document that could not be decoded.
var ErrInvalidRequest = errors.New("invalid request")

// decodeStruct unmarshals a Struct document into out via its JSON form. A nil
// or empty Struct leaves out untouched.
func decodeStruct(in *structpb.Struct, out any) error {
	if in == nil || len(in.GetFields()) == 0 {
		return nil
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// encodeStruct renders v as a Struct via its JSON form. v must marshal to a
// JSON object.
func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
