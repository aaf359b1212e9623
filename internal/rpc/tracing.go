package rpc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
)

const tracerName = "github.com/signalsfoundry/iot-netselect/internal/rpc"

// Span attribute keys shared by the interceptor and handler child spans.
const (
	attrSessionID = attribute.Key("netselect.session_id")
	attrTask      = attribute.Key("netselect.task")
	attrRequestID = attribute.Key("request_id")
)

// TracingUnaryServerInterceptor annotates the server span opened by the
// otelgrpc stats handler with the method, the request id and the session
// and task named in the request payload. Without a stats handler it opens
// the span itself.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	tracer := otel.Tracer(tracerName)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := service + "/" + method

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.SetName(name)
		} else {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
		}

		span.SetAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
		)
		if id := logging.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attrRequestID.String(id))
		}
		span.SetAttributes(payloadAttributes(req)...)

		resp, err := handler(ctx, req)
		if err != nil {
			st := status.Convert(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, st.Code().String())
		}
		return resp, err
	}
}

// payloadAttributes pulls session_id and the device task out of a Struct
// request.
func payloadAttributes(req any) []attribute.KeyValue {
	s, ok := req.(*structpb.Struct)
	if !ok || s == nil {
		return nil
	}
	var attrs []attribute.KeyValue
	fields := s.GetFields()
	if v := fields["session_id"].GetStringValue(); v != "" {
		attrs = append(attrs, attrSessionID.String(v))
	}
	if v := fields["current_task"].GetStringValue(); v != "" {
		attrs = append(attrs, attrTask.String(v))
	}
	if v := fields["task"].GetStringValue(); v != "" {
		attrs = append(attrs, attrTask.String(v))
	}
	return attrs
}

// StartChildSpan starts an internal span under ctx. Empty sessionID and
// task are left off.
func StartChildSpan(ctx context.Context, name, sessionID, task string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(extra)+2)
	if sessionID != "" {
		attrs = append(attrs, attrSessionID.String(sessionID))
	}
	if task != "" {
		attrs = append(attrs, attrTask.String(task))
	}
	attrs = append(attrs, extra...)
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}
