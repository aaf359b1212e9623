package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/report"
	"github.com/signalsfoundry/iot-netselect/model"
)

func TestRunAccelerated(t *testing.T) {
	var out bytes.Buffer
	summary, err := run(context.Background(), options{
		Steps:       40,
		Accelerated: true,
		Seed:        9,
		Start:       model.Position{X: 100, Y: 100},
	}, &out, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Steps != 40 {
		t.Fatalf("steps = %d, want 40", summary.Steps)
	}
	if summary.CoveredSteps == 0 {
		t.Fatalf("expected coverage starting next to a Wi-Fi station")
	}
	if !strings.Contains(out.String(), "coverage") {
		t.Fatalf("text report missing coverage line:\n%s", out.String())
	}
}

func TestRunIsReproducibleWithSeed(t *testing.T) {
	opts := options{Steps: 30, Accelerated: true, Seed: 21, JSON: true}

	var a, b bytes.Buffer
	if _, err := run(context.Background(), opts, &a, logging.Noop()); err != nil {
		t.Fatalf("run a: %v", err)
	}
	if _, err := run(context.Background(), opts, &b, logging.Noop()); err != nil {
		t.Fatalf("run b: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("seeded runs differ:\n%s\n---\n%s", a.String(), b.String())
	}

	var decoded report.Summary
	if err := json.Unmarshal(a.Bytes(), &decoded); err != nil {
		t.Fatalf("decode JSON report: %v", err)
	}
	if decoded.Steps != 30 {
		t.Fatalf("decoded steps = %d", decoded.Steps)
	}
}

func TestRunRealTimeHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	summary, err := run(ctx, options{
		Steps: 1000,
		Tick:  20 * time.Millisecond,
		Seed:  1,
	}, &bytes.Buffer{}, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Steps == 0 || summary.Steps >= 1000 {
		t.Fatalf("steps = %d, want a partial run", summary.Steps)
	}
}

func TestRunWithScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	doc := `
map: {width: 100, height: 100}
networks:
  - name: LoRa
    energy_tx: 0.05
    energy_idle: 1
    radio: {max_range: 500, peak_bandwidth: 0.05, best_latency: 100}
    stations: [{x: 50, y: 50}]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	summary, err := run(context.Background(), options{
		Steps:       10,
		Accelerated: true,
		Seed:        2,
		Scenario:    path,
	}, &bytes.Buffer{}, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.CoveredSteps != 10 || summary.Selections["LoRa"] != 10 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunWritesTrajectoryTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	summary, err := run(context.Background(), options{
		Steps:       25,
		Accelerated: true,
		Seed:        4,
		Start:       model.Position{X: 100, Y: 100},
		Trace:       path,
	}, &bytes.Buffer{}, logging.Noop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open trace: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if len(rows) != summary.Steps+1 {
		t.Fatalf("trace rows = %d, want header + %d steps", len(rows), summary.Steps)
	}
	if strings.Join(rows[0], ",") != "step,x,y,task,networks" {
		t.Fatalf("header = %v", rows[0])
	}
	covered := 0
	for i, row := range rows[1:] {
		if row[0] != strconv.Itoa(i+1) {
			t.Fatalf("row %d step = %q", i, row[0])
		}
		if !model.Task(row[3]).Valid() {
			t.Fatalf("row %d task = %q", i, row[3])
		}
		if row[4] != "" {
			covered++
		}
	}
	if covered != summary.CoveredSteps {
		t.Fatalf("trace covered steps = %d, report says %d", covered, summary.CoveredSteps)
	}
}

func TestRunRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts options
	}{
		{"zero steps", options{Steps: 0, Accelerated: true}},
		{"start off map", options{Steps: 1, Accelerated: true, Start: model.Position{X: 5000}}},
		{"missing scenario", options{Steps: 1, Accelerated: true, Scenario: "/does/not/exist.yaml"}},
		{"unwritable trace", options{Steps: 1, Accelerated: true, Trace: "/does/not/exist/trace.csv"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := run(context.Background(), tc.opts, &bytes.Buffer{}, logging.Noop()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
