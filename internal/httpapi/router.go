// Package httpapi exposes the network selection service over HTTP/JSON.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/signalsfoundry/iot-netselect/decision"
	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
	"github.com/signalsfoundry/iot-netselect/kb"
	"github.com/signalsfoundry/iot-netselect/model"
)

// DefaultMaxRunSteps bounds /simulation/run when Options.MaxRunSteps is unset.
const DefaultMaxRunSteps = 1000

// Options configures NewRouter.
type Options struct {
	Sessions *kb.KnowledgeBase
	Model    *decision.Model
	// Configs is the network table used by /decision and /calculate-cost.
	Configs     []model.NetworkConfig
	Metrics     *observability.APICollector
	Logger      logging.Logger
	MaxRunSteps int
}

// NewRouter builds the gin engine with middleware and every route
// registered.
func NewRouter(opts Options) *gin.Engine {
	h := newHandler(opts)

	router := gin.New()
	router.Use(
		Recovery(h.log),
		RequestID(h.log),
		AccessLog(h.log),
		Metrics(opts.Metrics),
	)

	router.GET("/", h.root)
	router.GET("/health", h.health)
	router.GET("/status", h.status)
	router.GET("/network-configs", h.networkConfigs)
	router.GET("/map", h.mapView)

	router.POST("/decision", h.decide)
	router.POST("/calculate-cost", h.calculateCost)

	sim := router.Group("/simulation")
	{
		sim.POST("/step", h.step)
		sim.POST("/step-with-decision", h.stepWithDecision)
		sim.POST("/run", h.run)
		sim.POST("/reset", h.reset)
		sim.GET("/current-state", h.currentState)
	}

	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.createSession)
		sessions.GET("", h.listSessions)
		sessions.GET("/:id", h.currentState)
		sessions.DELETE("/:id", h.deleteSession)
		sessions.POST("/:id/step", h.step)
		sessions.POST("/:id/step-with-decision", h.stepWithDecision)
		sessions.POST("/:id/run", h.run)
		sessions.POST("/:id/reset", h.reset)
		sessions.GET("/:id/map", h.mapView)
	}

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	return router
}
