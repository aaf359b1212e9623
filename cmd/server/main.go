package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/config"
	"github.com/signalsfoundry/iot-netselect/internal/httpapi"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
	"github.com/signalsfoundry/iot-netselect/internal/rpc"
	"github.com/signalsfoundry/iot-netselect/kb"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netselect: %v\n", err)
		os.Exit(1)
	}
	log := cfg.Logger(os.Stdout)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.HTTPAddr), logging.Err(err))
		os.Exit(1)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, prometheus.DefaultRegisterer, httpLis, grpcLis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// app is the wired service graph shared by both transports.
type app struct {
	sessions  *kb.KnowledgeBase
	model     *decision.Model
	scenario  *core.Scenario
	metrics   *observability.APICollector
	decisions *observability.DecisionCollector
}

func newApp(cfg config.Config, log logging.Logger, reg prometheus.Registerer) (*app, error) {
	metrics, err := observability.NewAPICollector(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	decisions, err := observability.NewDecisionCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("decision metrics: %w", err)
	}

	scenario := core.DefaultScenario()
	if cfg.Scenario != "" {
		if scenario, err = core.LoadScenarioFile(cfg.Scenario); err != nil {
			return nil, err
		}
		log.Info(context.Background(), "loaded scenario",
			logging.String("path", cfg.Scenario),
			logging.Int("networks", len(scenario.Networks)),
		)
	}

	m, err := decision.NewModel(decision.WithLogger(log), decision.WithRecorder(decisions))
	if err != nil {
		return nil, err
	}

	factory := func() (*core.SimulationEngine, error) {
		opts := []core.Option{
			core.WithScenario(scenario),
			core.WithLogger(log),
			core.WithStepRecorder(decisions),
		}
		if cfg.Seed != nil {
			opts = append(opts, core.WithSeed(*cfg.Seed))
		}
		return core.NewSimulationEngine(opts...)
	}
	sessions := kb.NewKnowledgeBase(factory, kb.WithLogger(log))
	sessions.Subscribe(func(ev kb.Event) {
		if ev.Type == kb.EventSessionCreated || ev.Type == kb.EventSessionDeleted {
			metrics.SetSessions(sessions.Len())
		}
	})
	if _, err := sessions.EnsureSession(kb.DefaultSessionID); err != nil {
		return nil, err
	}

	return &app{
		sessions:  sessions,
		model:     m,
		scenario:  scenario,
		metrics:   metrics,
		decisions: decisions,
	}, nil
}

// run serves HTTP and gRPC on the given listeners until ctx is cancelled or
// either server fails.
func run(ctx context.Context, cfg config.Config, log logging.Logger, reg prometheus.Registerer, httpLis, grpcLis net.Listener) error {
	a, err := newApp(cfg, log, reg)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Options{
			Sessions:    a.sessions,
			Model:       a.model,
			Configs:     a.scenario.NetworkConfigs(),
			Metrics:     a.metrics,
			Logger:      log,
			MaxRunSteps: cfg.MaxRunSteps,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := rpc.NewServer(
		rpc.NewSelectionService(a.sessions, a.model, a.scenario.NetworkConfigs(), log),
		rpc.ServerOptions{Logger: log, Metrics: a.metrics, Tracing: true},
	)
	metricsSrv := serveMetrics(cfg.MetricsAddr, a.metrics, log)

	errCh := make(chan error, 2)
	go func() {
		log.Info(ctx, "starting HTTP server", logging.String("addr", httpLis.Addr().String()))
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.Info(ctx, "starting gRPC server", logging.String("addr", grpcLis.Addr().String()))
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		grpcSrv.Stop()
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(context.Background(), "http shutdown", logging.Err(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func serveMetrics(addr string, collector *observability.APICollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
