// Package report aggregates simulation runs into summary statistics.
package report

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/model"
)

// NetworkSummary describes how one network behaved over a run.
type NetworkSummary struct {
	Observed      int     `json:"observed_steps"`
	Selected      int     `json:"selected"`
	MeanBandwidth float64 `json:"mean_bandwidth"`
	MeanLatency   float64 `json:"mean_latency"`
}

// Summary is the aggregate of a run.
type Summary struct {
	Steps          int                           `json:"steps"`
	CoveredSteps   int                           `json:"covered_steps"`
	CoverageRatio  float64                       `json:"coverage_ratio"`
	Decisions      int                           `json:"decisions"`
	DecisionErrors int                           `json:"decision_errors"`
	MeanCost       float64                       `json:"mean_cost"`
	StdDevCost     float64                       `json:"stddev_cost"`
	Selections     map[string]int                `json:"selections"`
	TaskSelections map[model.Task]map[string]int `json:"task_selections"`
	Networks       map[string]NetworkSummary     `json:"networks"`
}

type networkSamples struct {
	bandwidth []float64
	latency   []float64
	selected  int
}

// Collector accumulates step results. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	steps    int
	covered  int
	errors   int
	costs    []float64
	tasks    map[model.Task]map[string]int
	networks map[string]*networkSamples
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		tasks:    make(map[model.Task]map[string]int),
		networks: make(map[string]*networkSamples),
	}
}

// Add records one step and the error, if any, returned while deciding it.
func (c *Collector) Add(res core.StepResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.steps++
	if len(res.State.AvailableNetworks) > 0 {
		c.covered++
	}
	for _, n := range res.State.AvailableNetworks {
		s := c.samples(n.Name)
		s.bandwidth = append(s.bandwidth, n.Bandwidth)
		s.latency = append(s.latency, float64(n.Latency))
	}
	if err != nil {
		c.errors++
		return
	}
	if res.Decision != nil {
		c.addDecision(res.State.CurrentTask, res.Decision)
	}
}

func (c *Collector) addDecision(task model.Task, d *decision.Decision) {
	name := d.Selected.Name
	c.costs = append(c.costs, d.Cost)
	c.samples(name).selected++
	byNet, ok := c.tasks[task]
	if !ok {
		byNet = make(map[string]int)
		c.tasks[task] = byNet
	}
	byNet[name]++
}

func (c *Collector) samples(name string) *networkSamples {
	s, ok := c.networks[name]
	if !ok {
		s = &networkSamples{}
		c.networks[name] = s
	}
	return s
}

// Summary computes the aggregate of everything added so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum := Summary{
		Steps:          c.steps,
		CoveredSteps:   c.covered,
		Decisions:      len(c.costs),
		DecisionErrors: c.errors,
		Selections:     make(map[string]int),
		TaskSelections: make(map[model.Task]map[string]int, len(c.tasks)),
		Networks:       make(map[string]NetworkSummary, len(c.networks)),
	}
	if c.steps > 0 {
		sum.CoverageRatio = decision.Round2(float64(c.covered) / float64(c.steps))
	}
	switch len(c.costs) {
	case 0:
	case 1:
		sum.MeanCost = decision.Round2(c.costs[0])
	default:
		mean, std := stat.MeanStdDev(c.costs, nil)
		sum.MeanCost = decision.Round2(mean)
		sum.StdDevCost = decision.Round2(std)
	}
	for task, byNet := range c.tasks {
		cp := make(map[string]int, len(byNet))
		for k, v := range byNet {
			cp[k] = v
		}
		sum.TaskSelections[task] = cp
	}
	for name, s := range c.networks {
		ns := NetworkSummary{Observed: len(s.bandwidth), Selected: s.selected}
		if len(s.bandwidth) > 0 {
			ns.MeanBandwidth = decision.Round2(stat.Mean(s.bandwidth, nil))
			ns.MeanLatency = decision.Round2(stat.Mean(s.latency, nil))
		}
		if s.selected > 0 {
			sum.Selections[name] = s.selected
		}
		sum.Networks[name] = ns
	}
	return sum
}

// Summarize is a convenience over a finished set of results.
func Summarize(results []core.StepResult) Summary {
	c := NewCollector()
	for _, r := range results {
		c.Add(r, nil)
	}
	return c.Summary()
}

// WriteText renders s as an aligned table.
func WriteText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "steps\t%d\n", s.Steps)
	fmt.Fprintf(tw, "coverage\t%d/%d (%.2f)\n", s.CoveredSteps, s.Steps, s.CoverageRatio)
	fmt.Fprintf(tw, "decisions\t%d (errors %d)\n", s.Decisions, s.DecisionErrors)
	fmt.Fprintf(tw, "cost\tmean %.2f stddev %.2f\n", s.MeanCost, s.StdDevCost)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "network\tobserved\tselected\tmean_bw\tmean_latency")
	for _, name := range sortedKeys(s.Networks) {
		n := s.Networks[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\n", name, n.Observed, n.Selected, n.MeanBandwidth, n.MeanLatency)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "task\tnetwork\tcount")
	for _, task := range model.Tasks() {
		byNet := s.TaskSelections[task]
		for _, name := range sortedKeys(byNet) {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", task, name, byNet[name])
		}
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
