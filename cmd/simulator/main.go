package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/report"
	"github.com/signalsfoundry/iot-netselect/model"
	"github.com/signalsfoundry/iot-netselect/timectrl"
)

// options are the simulator's command-line settings.
type options struct {
	Steps       int
	Tick        time.Duration
	Accelerated bool
	Seed        int64 // negative means unseeded
	Start       model.Position
	Scenario    string
	JSON        bool
	Trace       string // CSV trajectory output, one row per step
}

func main() {
	var opts options
	flag.IntVar(&opts.Steps, "steps", 100, "number of simulation steps")
	flag.DurationVar(&opts.Tick, "tick", time.Second, "tick interval in real-time mode")
	flag.BoolVar(&opts.Accelerated, "accelerated", true, "run ticks back to back instead of in real time")
	flag.Int64Var(&opts.Seed, "seed", -1, "random seed; negative for an unseeded run")
	flag.IntVar(&opts.Start.X, "x", 0, "starting x coordinate")
	flag.IntVar(&opts.Start.Y, "y", 0, "starting y coordinate")
	flag.StringVar(&opts.Scenario, "scenario", "", "YAML or JSON scenario file (built-in map when empty)")
	flag.BoolVar(&opts.JSON, "json", false, "print the run report as JSON")
	flag.StringVar(&opts.Trace, "trace", "", "write the device trajectory as CSV to this file")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := run(ctx, opts, os.Stdout, log); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		os.Exit(1)
	}
}

// run drives opts.Steps ticks, selecting a network on each one, and writes
// the run report to out.
func run(ctx context.Context, opts options, out io.Writer, log logging.Logger) (report.Summary, error) {
	log = logging.OrNoop(log)
	if opts.Steps <= 0 {
		return report.Summary{}, fmt.Errorf("steps must be > 0, got %d", opts.Steps)
	}

	engineOpts := []core.Option{core.WithLogger(log)}
	if opts.Scenario != "" {
		sc, err := core.LoadScenarioFile(opts.Scenario)
		if err != nil {
			return report.Summary{}, err
		}
		engineOpts = append(engineOpts, core.WithScenario(sc))
	}
	if opts.Seed >= 0 {
		engineOpts = append(engineOpts, core.WithSeed(uint64(opts.Seed)))
	}
	engine, err := core.NewSimulationEngine(engineOpts...)
	if err != nil {
		return report.Summary{}, err
	}
	if !engine.MapSize().Contains(opts.Start) {
		return report.Summary{}, fmt.Errorf("start %s is outside the %dx%d map", opts.Start, engine.MapSize().Width, engine.MapSize().Height)
	}
	engine.ResetSimulation(opts.Start)

	m, err := decision.NewModel(decision.WithLogger(log))
	if err != nil {
		return report.Summary{}, err
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(opts.Tick, mode)
	collector := report.NewCollector()

	if opts.Trace != "" {
		flush, err := traceSteps(engine, opts.Trace)
		if err != nil {
			return report.Summary{}, err
		}
		defer func() {
			if err := flush(); err != nil {
				log.Warn(ctx, "trace write failed", logging.String("path", opts.Trace), logging.Err(err))
			}
		}()
	}
	tc.AddListener(func(tick int) {
		res, err := engine.RunSimulationStepWithDecision(ctx, m)
		collector.Add(res, err)

		step := logging.Int("step", res.Step)
		switch {
		case err != nil:
			log.Warn(ctx, "decision failed", step, logging.Err(err))
		case res.Decision == nil:
			log.Info(ctx, "no network reachable", step)
		default:
			log.Info(ctx, "network selected", step,
				logging.String("network", res.Decision.Selected.Name),
				logging.Float64("cost", decision.Round2(res.Decision.Cost)),
			)
		}
	})

	log.Info(ctx, "starting simulation",
		logging.Int("steps", opts.Steps),
		logging.String("mode", mode.String()),
		logging.String("start", opts.Start.String()),
	)
	<-tc.Run(ctx, opts.Steps)

	summary := collector.Summary()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return summary, enc.Encode(summary)
	}
	return summary, report.WriteText(out, summary)
}

var traceHeader = []string{"step", "x", "y", "task", "networks"}

// traceSteps writes one CSV row per engine step to path. The returned
// function flushes and closes the file.
func traceSteps(engine *core.SimulationEngine, path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(traceHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write trace: %w", err)
	}

	engine.RegisterStepListener(func(step int, st model.DeviceState) {
		_ = w.Write([]string{
			strconv.Itoa(step),
			strconv.Itoa(st.Position.X),
			strconv.Itoa(st.Position.Y),
			string(st.CurrentTask),
			strings.Join(st.NetworkNames(), "|"),
		})
	})

	return func() error {
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}
