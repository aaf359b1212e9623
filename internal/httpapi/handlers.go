package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/iot-netselect/core"
	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/api"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
	"github.com/signalsfoundry/iot-netselect/internal/report"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

const tracerName = "github.com/signalsfoundry/iot-netselect/internal/httpapi"

const defaultRunSteps = 10

type handler struct {
	sessions *kb.KnowledgeBase
	model    *decision.Model
	configs  map[string]model.NetworkConfig
	log      logging.Logger
	maxRun   int
}

func newHandler(opts Options) *handler {
	h := &handler{
		sessions: opts.Sessions,
		model:    opts.Model,
		configs:  make(map[string]model.NetworkConfig, len(opts.Configs)),
		log:      logging.OrNoop(opts.Logger),
		maxRun:   opts.MaxRunSteps,
	}
	if h.sessions == nil {
		h.sessions = kb.NewKnowledgeBase(nil, kb.WithLogger(h.log))
	}
	if h.model == nil {
		h.model = decision.Default()
	}
	if h.maxRun <= 0 {
		h.maxRun = DefaultMaxRunSteps
	}
	for _, c := range opts.Configs {
		h.configs[c.Name] = c
	}
	return h
}

// session resolves the :id path parameter, or the default session on the
// session-less routes.
func (h *handler) session(c *gin.Context) (*kb.Session, error) {
	id := c.Param("id")
	if id == "" || id == kb.DefaultSessionID {
		return h.sessions.EnsureSession(kb.DefaultSessionID)
	}
	return h.sessions.GetSession(id)
}

func (h *handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": api.ServiceTitle,
		"version": api.Version,
		"endpoints": gin.H{
			"health":                  "GET /health",
			"status":                  "GET /status",
			"network_configs":         "GET /network-configs",
			"map":                     "GET /map",
			"decision":                "POST /decision",
			"calculate_cost":          "POST /calculate-cost",
			"simulation_step":         "POST /simulation/step",
			"simulation_step_with_dm": "POST /simulation/step-with-decision",
			"simulation_run":          "POST /simulation/run?steps=n",
			"simulation_reset":        "POST /simulation/reset?x=&y=",
			"current_state":           "GET /simulation/current-state",
			"sessions":                "POST|GET /sessions",
			"metrics":                 "GET /metrics",
		},
	})
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   api.ServiceTitle,
		"version":   api.Version,
	})
}

func (h *handler) status(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.StatusView{
		SystemStatus:   "running",
		Simulation:     sess.Stats(),
		NetworkConfigs: h.configs,
	})
}

func (h *handler) networkConfigs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"network_configs": h.configs})
}

func (h *handler) mapView(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var view api.MapView
	_ = sess.Do(func(se *core.SimulationEngine) error {
		view = api.NewMapView(se)
		return nil
	})
	c.JSON(http.StatusOK, view)
}

func (h *handler) decide(c *gin.Context) {
	var state model.DeviceState
	if err := c.ShouldBindJSON(&state); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ctx, span := observability.Tracer(tracerName).Start(c.Request.Context(), "decision.Evaluate")
	span.SetAttributes(
		attribute.String("task", string(state.CurrentTask)),
		attribute.Int("candidates", len(state.AvailableNetworks)),
	)
	d, err := h.model.Evaluate(ctx, state.AvailableNetworks, h.configs, state.CurrentTask)
	span.End()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, decision.NewReport(state, d))
}

func (h *handler) calculateCost(c *gin.Context) {
	var req api.CostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	view, err := api.CalculateCost(h.model, h.configs, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) step(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	step, st := sess.Step()
	c.JSON(http.StatusOK, api.NewStepView(sess.ID, step, st))
}

func (h *handler) stepWithDecision(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := sess.StepWithDecision(c.Request.Context(), h.model)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.NewStepWithDecisionView(sess.ID, res))
}

type runView struct {
	SessionID string                     `json:"session_id"`
	Steps     []api.StepWithDecisionView `json:"steps"`
	Report    report.Summary             `json:"report"`
}

func (h *handler) run(c *gin.Context) {
	n, err := queryInt(c, "steps", defaultRunSteps)
	if err != nil {
		h.fail(c, err)
		return
	}
	if n <= 0 || n > h.maxRun {
		h.fail(c, fmt.Errorf("%w: steps must be in [1, %d]", errBadRequest, h.maxRun))
		return
	}
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	collector := report.NewCollector()
	views := make([]api.StepWithDecisionView, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		res, stepErr := sess.StepWithDecision(ctx, h.model)
		collector.Add(res, stepErr)
		view := api.NewStepWithDecisionView(sess.ID, res)
		if stepErr != nil {
			view.Result.Message = stepErr.Error()
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, runView{SessionID: sess.ID, Steps: views, Report: collector.Summary()})
}

func (h *handler) reset(c *gin.Context) {
	x, err := queryInt(c, "x", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	y, err := queryInt(c, "y", 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats := sess.Reset(model.Position{X: x, Y: y})
	c.JSON(http.StatusOK, api.NewResetView(sess.ID, stats))
}

type stateView struct {
	SessionID   string               `json:"session_id"`
	DeviceState model.DeviceState    `json:"device_state"`
	Stats       core.SimulationStats `json:"simulation_stats"`
}

func (h *handler) currentState(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var view stateView
	_ = sess.Do(func(se *core.SimulationEngine) error {
		view = stateView{SessionID: sess.ID, DeviceState: se.DeviceState(), Stats: se.Stats()}
		return nil
	})
	c.JSON(http.StatusOK, view)
}

type sessionView struct {
	SessionID string               `json:"session_id"`
	CreatedAt time.Time            `json:"created_at"`
	Stats     core.SimulationStats `json:"simulation_stats"`
}

func newSessionView(s *kb.Session) sessionView {
	return sessionView{SessionID: s.ID, CreatedAt: s.CreatedAt, Stats: s.Stats()}
}

func (h *handler) createSession(c *gin.Context) {
	sess, err := h.sessions.CreateSession()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(sess))
}

func (h *handler) listSessions(c *gin.Context) {
	all := h.sessions.ListSessions()
	views := make([]sessionView, 0, len(all))
	for _, s := range all {
		views = append(views, newSessionView(s))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(views), "sessions": views})
}

func (h *handler) deleteSession(c *gin.Context) {
	if err := h.sessions.DeleteSession(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return v, nil
}
