package rpc

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	Logger  logging.Logger
	Metrics *observability.APICollector
	// Tracing adds the otelgrpc stats handler and span enrichment.
	Tracing bool
}

// NewServer builds a gRPC server with the standard interceptor chain and
// svc registered.
func NewServer(svc SelectionServiceServer, opts ServerOptions, extra ...grpc.ServerOption) *grpc.Server {
	log := logging.OrNoop(opts.Logger)

	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
	}
	if opts.Tracing {
		interceptors = append(interceptors, TracingUnaryServerInterceptor())
	}
	if opts.Metrics != nil {
		interceptors = append(interceptors, opts.Metrics.UnaryServerInterceptor())
	}
	interceptors = append(interceptors, LoggingUnaryServerInterceptor(log))

	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
	if opts.Tracing {
		serverOpts = append(serverOpts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	serverOpts = append(serverOpts, extra...)

	server := grpc.NewServer(serverOpts...)
	RegisterSelectionServiceServer(server, svc)
	return server
}
