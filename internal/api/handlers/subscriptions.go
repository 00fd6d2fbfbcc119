package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/gatekeep/internal/entitlement"
	"github.com/MacJediWizard/gatekeep/internal/metrics"
	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubscriptionListStore defines the interface for administrative listings.
type SubscriptionListStore interface {
	ListSubscriptionsWithTenants(ctx context.Context, limit, offset int) ([]*models.SubscriptionWithTenant, error)
}

// SubscriptionsHandler handles subscription lifecycle HTTP endpoints.
type SubscriptionsHandler struct {
	engine  *entitlement.Engine
	store   SubscriptionListStore
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewSubscriptionsHandler creates a new SubscriptionsHandler.
func NewSubscriptionsHandler(engine *entitlement.Engine, store SubscriptionListStore, m *metrics.Metrics, logger zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		engine:  engine,
		store:   store,
		metrics: m,
		logger:  logger.With().Str("component", "subscriptions_handler").Logger(),
	}
}

// RegisterRoutes registers subscription routes.
func (h *SubscriptionsHandler) RegisterRoutes(r *gin.RouterGroup) {
	subs := r.Group("/subscriptions")
	{
		subs.POST("", h.Create)
		subs.GET("", h.List)
		subs.POST("/:id/status", h.TransitionStatus)
	}

	tenants := r.Group("/tenants")
	{
		tenants.GET("/:id/subscription", h.Current)
		tenants.GET("/:id/access", h.Access)
	}
}

// CreateSubscriptionRequest is the request body for creating a subscription.
type CreateSubscriptionRequest struct {
	TenantID               uuid.UUID       `json:"tenant_id" binding:"required"`
	PlanType               models.PlanType `json:"plan_type" binding:"required"`
	ProviderSubscriptionID string          `json:"provider_subscription_id,omitempty"`
	ProviderCustomerID     string          `json:"provider_customer_id,omitempty"`
}

// Create opens a new subscription for a tenant.
//
//	@Summary		Create subscription
//	@Description	Creates an active subscription with a period computed from the plan catalog
//	@Tags			Subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSubscriptionRequest	true	"Subscription details"
//	@Success		201		{object}	models.Subscription
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions [post]
func (h *SubscriptionsHandler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	// Unknown plan types are accepted and fall back to trial entitlements
	// with a 30-day period, per the catalog's fail-safe rule.
	sub, err := h.engine.Create(c.Request.Context(), req.TenantID, req.PlanType,
		req.ProviderSubscriptionID, req.ProviderCustomerID)
	if err != nil {
		h.logger.Error().Err(err).
			Str("tenant_id", req.TenantID.String()).
			Msg("failed to create subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// List returns all subscriptions joined with tenant display metadata.
//
//	@Summary		List subscriptions
//	@Description	Administrative dump of all subscriptions with tenant metadata
//	@Tags			Subscriptions
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (default 50)"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	map[string]any
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions [get]
func (h *SubscriptionsHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	subs, err := h.store.ListSubscriptionsWithTenants(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	if subs == nil {
		subs = []*models.SubscriptionWithTenant{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

// TransitionStatusRequest is the request body for a status transition.
type TransitionStatusRequest struct {
	Status models.SubscriptionStatus `json:"status" binding:"required"`
	// Force bypasses the transition table. Operator use only.
	Force bool `json:"force,omitempty"`
}

// TransitionStatus moves a subscription to a new status.
//
//	@Summary		Transition subscription status
//	@Description	Applies a status transition, validated against the state machine unless forced
//	@Tags			Subscriptions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Subscription ID"
//	@Param			request	body		TransitionStatusRequest	true	"Target status"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/subscriptions/{id}/status [post]
func (h *SubscriptionsHandler) TransitionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	var req TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}

	if req.Force {
		err = h.engine.ForceTransition(c.Request.Context(), id, req.Status)
	} else {
		err = h.engine.TransitionStatus(c.Request.Context(), id, req.Status)
	}
	if err != nil {
		var illegal *entitlement.IllegalTransitionError
		switch {
		case errors.As(err, &illegal):
			c.JSON(http.StatusConflict, gin.H{"error": illegal.Error()})
		case errors.Is(err, entitlement.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		default:
			h.logger.Error().Err(err).
				Str("subscription_id", id.String()).
				Msg("failed to transition subscription")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to transition subscription"})
		}
		return
	}

	h.metrics.RecordTransition(req.Status)
	c.JSON(http.StatusOK, gin.H{"status": string(req.Status)})
}

// Current returns the tenant's most recently created subscription.
//
//	@Summary		Current subscription
//	@Description	Returns the newest subscription row for a tenant
//	@Tags			Tenants
//	@Produce		json
//	@Param			id	path		string	true	"Tenant ID"
//	@Success		200	{object}	models.Subscription
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Failure		500	{object}	map[string]string
//	@Router			/tenants/{id}/subscription [get]
func (h *SubscriptionsHandler) Current(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	sub, err := h.engine.CurrentSubscription(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error().Err(err).
			Str("tenant_id", tenantID.String()).
			Msg("failed to resolve current subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve subscription"})
		return
	}
	if sub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no subscription"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Access evaluates whether the tenant currently has paid access.
//
//	@Summary		Evaluate access
//	@Description	Decides paid access, feature set, and remaining days; always returns a decision
//	@Tags			Tenants
//	@Produce		json
//	@Param			id	path		string	true	"Tenant ID"
//	@Success		200	{object}	entitlement.AccessDecision
//	@Failure		400	{object}	map[string]string
//	@Router			/tenants/{id}/access [get]
func (h *SubscriptionsHandler) Access(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant id"})
		return
	}

	decision := h.engine.EvaluateAccess(c.Request.Context(), tenantID)
	h.metrics.RecordAccessCheck(decision.HasAccess)

	c.JSON(http.StatusOK, decision)
}
