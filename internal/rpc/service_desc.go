package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "netselect.v1.SelectionService"

// SelectionServiceServer is the server API for netselect.v1.SelectionService.
// Requests and responses are JSON documents carried as google.protobuf.Struct.
type SelectionServiceServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateCost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Step(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StepWithDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNetworkConfigs(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

func newStruct() *structpb.Struct { return new(structpb.Struct) }
func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }

func unaryMethod[Req proto.Message](name string, newReq func() Req, call func(SelectionServiceServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(SelectionServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// SelectionServiceDesc describes the service for grpc.Server registration.
var SelectionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SelectionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Decide", newStruct, SelectionServiceServer.Decide),
		unaryMethod("CalculateCost", newStruct, SelectionServiceServer.CalculateCost),
		unaryMethod("Step", newStruct, SelectionServiceServer.Step),
		unaryMethod("StepWithDecision", newStruct, SelectionServiceServer.StepWithDecision),
		unaryMethod("Reset", newStruct, SelectionServiceServer.Reset),
		unaryMethod("GetStats", newStruct, SelectionServiceServer.GetStats),
		unaryMethod("ListNetworkConfigs", newEmpty, SelectionServiceServer.ListNetworkConfigs),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "netselect/v1/selection.proto",
}

// RegisterSelectionServiceServer registers srv on s.
func RegisterSelectionServiceServer(s grpc.ServiceRegistrar, srv SelectionServiceServer) {
	s.RegisterService(&SelectionServiceDesc, srv)
}
