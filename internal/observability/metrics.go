package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var latencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// APICollector bundles Prometheus metrics for the HTTP and gRPC surfaces and
// provides helpers to wire them into servers and handlers.
type APICollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
	RPCRequests   *prometheus.CounterVec
	RPCDurations  *prometheus.HistogramVec

	Sessions prometheus.Gauge
}

// NewAPICollector registers API metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewAPICollector(reg prometheus.Registerer) (*APICollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	httpRequests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netselect_http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"}), "netselect_http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netselect_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"method", "route"}), "netselect_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	rpcRequests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "netselect_rpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "netselect_rpc_requests_total")
	if err != nil {
		return nil, err
	}
	rpcDurations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "netselect_rpc_request_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: latencyBuckets,
	}, []string{"service", "method"}), "netselect_rpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	sessions, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "netselect_sessions",
		Help: "Current number of live simulator sessions.",
	}), "netselect_sessions")
	if err != nil {
		return nil, err
	}

	return &APICollector{
		gatherer:      gatherer,
		HTTPRequests:  httpRequests,
		HTTPDurations: httpDurations,
		RPCRequests:   rpcRequests,
		RPCDurations:  rpcDurations,
		Sessions:      sessions,
	}, nil
}

// ObserveHTTPRequest records one completed HTTP request. route should be
// the matched route template, not the raw path.
func (c *APICollector) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	if c.HTTPRequests != nil {
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	}
	if c.HTTPDurations != nil {
		c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *APICollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// SetSessions updates the live session gauge.
func (c *APICollector) SetSessions(n int) {
	if c == nil || c.Sessions == nil {
		return
	}
	c.Sessions.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *APICollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

// register reuses an already-registered collector of the same type so that
// several components can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
