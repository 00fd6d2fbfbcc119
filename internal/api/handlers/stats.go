package handlers

import (
	"net/http"

	"github.com/MacJediWizard/gatekeep/internal/billing"
	"github.com/MacJediWizard/gatekeep/internal/metrics"
	"github.com/MacJediWizard/gatekeep/internal/plan"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// StatsHandler handles fleet statistics endpoints.
type StatsHandler struct {
	aggregator *billing.Aggregator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(aggregator *billing.Aggregator, m *metrics.Metrics, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		aggregator: aggregator,
		metrics:    m,
		logger:     logger.With().Str("component", "stats_handler").Logger(),
	}
}

// RegisterRoutes registers stats routes.
func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.Stats)
	r.GET("/plans", h.Plans)
}

// Stats returns the fleet statistics snapshot.
//
//	@Summary		Fleet statistics
//	@Description	Counts, revenue estimate, and churn over the whole subscription population
//	@Tags			Stats
//	@Produce		json
//	@Success		200	{object}	billing.Stats
//	@Router			/stats [get]
func (h *StatsHandler) Stats(c *gin.Context) {
	stats := h.aggregator.ComputeStats(c.Request.Context())
	h.metrics.UpdateFleet(stats)

	c.JSON(http.StatusOK, stats)
}

// Plans returns the plan catalog.
//
//	@Summary		Plan catalog
//	@Description	All plan tiers with entitlements, period length, and list price
//	@Tags			Stats
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/plans [get]
func (h *StatsHandler) Plans(c *gin.Context) {
	plans := make([]plan.Info, 0, 4)
	for _, p := range plan.AllPlans() {
		plans = append(plans, plan.InfoFor(p))
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
