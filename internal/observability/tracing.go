package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
)

// ErrUnsupportedExporter is returned for an exporter name InitTracing does
// not know.
var ErrUnsupportedExporter = errors.New("unsupported tracing exporter")

// Exporter names.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const defaultOTLPEndpoint = "localhost:4317"

// TracingConfig is the `tracing:` block of the server config.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter"` // stdout | otlp
	Endpoint    string  `yaml:"endpoint"` // otlp only
	SampleRatio float64 `yaml:"sample_ratio"`

	// Output receives stdout spans; nil means os.Stdout.
	Output io.Writer `yaml:"-"`
}

// DefaultTracingConfig is disabled, stdout, full sampling.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "netselect",
		Exporter:    ExporterStdout,
		SampleRatio: 1,
	}
}

// TracingConfigFromEnv returns the defaults with NETSELECT_TRACING_* and
// NETSELECT_OTLP_ENDPOINT applied.
func TracingConfigFromEnv() TracingConfig {
	cfg := DefaultTracingConfig()
	cfg.ApplyEnv(os.Getenv)
	return cfg
}

// ApplyEnv overrides fields from environment variables read via getenv.
// An out-of-range or malformed sample ratio is ignored.
func (c *TracingConfig) ApplyEnv(getenv func(string) string) {
	if v := getenv("NETSELECT_TRACING_ENABLED"); v != "" {
		c.Enabled = strings.EqualFold(v, "true")
	}
	if v := getenv("NETSELECT_TRACING_EXPORTER"); v != "" {
		c.Exporter = strings.ToLower(v)
	}
	if v := getenv("NETSELECT_TRACING_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := getenv("NETSELECT_OTLP_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := getenv("NETSELECT_TRACING_SAMPLE_RATIO"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 && r <= 1 {
			c.SampleRatio = r
		}
	}
}

// Validate reports an unusable tracing block. A disabled block is always
// valid.
func (c TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch strings.ToLower(c.Exporter) {
	case "", ExporterStdout, ExporterOTLP, "otlpgrpc":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedExporter, c.Exporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("tracing sample_ratio %v outside [0, 1]", c.SampleRatio)
	}
	return nil
}

// InitTracing installs the global tracer provider and propagators described
// by cfg. The returned function flushes and stops the provider.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	log = logging.OrNoop(log)

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exp, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "iot-netselect"),
		),
		resource.WithProcessPID(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

func newSpanExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "", ExporterStdout:
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithoutTimestamps())
	case ExporterOTLP, "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, cfg.Exporter)
}

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// ShutdownWithTimeout runs shutdown under a 5s deadline and logs, rather
// than returns, any error.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logging.OrNoop(log).Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
