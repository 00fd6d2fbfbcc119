package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/entitlement"
	"github.com/MacJediWizard/gatekeep/internal/metrics"
	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory store backing the handler tests.
type memStore struct {
	subs  map[uuid.UUID]*models.Subscription
	users map[uuid.UUID]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		subs:  make(map[uuid.UUID]*models.Subscription),
		users: make(map[uuid.UUID]*models.User),
	}
}

func (s *memStore) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *memStore) GetLatestSubscriptionByTenant(_ context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	var latest *models.Subscription
	for _, sub := range s.subs {
		if sub.TenantID != tenantID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, entitlement.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) GetSubscriptionByID(_ context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, entitlement.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *memStore) UpdateSubscriptionStatus(_ context.Context, id uuid.UUID, status models.SubscriptionStatus, updatedAt time.Time) error {
	sub, ok := s.subs[id]
	if !ok {
		return entitlement.ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = updatedAt
	return nil
}

func (s *memStore) ListSubscriptionsWithTenants(_ context.Context, limit, offset int) ([]*models.SubscriptionWithTenant, error) {
	var result []*models.SubscriptionWithTenant
	for _, sub := range s.subs {
		row := &models.SubscriptionWithTenant{Subscription: *sub}
		if user, ok := s.users[sub.TenantID]; ok {
			row.TenantEmail = user.Email
			row.TenantName = user.Name
		}
		result = append(result, row)
	}
	return result, nil
}

func setupSubscriptionsRouter(t *testing.T, store *memStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := entitlement.NewEngine(store, zerolog.Nop())
	h := NewSubscriptionsHandler(engine, store, m, zerolog.Nop())

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateSubscriptionEndpoint(t *testing.T) {
	t.Run("creates active subscription with catalog period", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions", gin.H{
			"tenant_id":                uuid.New(),
			"plan_type":                "annual",
			"provider_subscription_id": "sub_x1",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var sub models.Subscription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
		assert.Equal(t, models.StatusActive, sub.Status)
		assert.Equal(t, models.PlanAnnual, sub.PlanType)
		assert.Equal(t, "sub_x1", sub.ProviderSubscriptionID)
		assert.Equal(t, 365*24*time.Hour, sub.PeriodEnd.Sub(sub.PeriodStart))
	})

	t.Run("rejects missing tenant id", func(t *testing.T) {
		r := setupSubscriptionsRouter(t, newMemStore())

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions", gin.H{
			"plan_type": "monthly",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTransitionStatusEndpoint(t *testing.T) {
	seed := func(store *memStore, status models.SubscriptionStatus) *models.Subscription {
		sub := models.NewSubscription(uuid.New(), models.PlanMonthly, 30*24*time.Hour)
		sub.Status = status
		store.subs[sub.ID] = sub
		return sub
	}

	t.Run("legal transition succeeds", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		sub := seed(store, models.StatusActive)

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/"+sub.ID.String()+"/status", gin.H{
			"status": "cancelled",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.StatusCancelled, store.subs[sub.ID].Status)
	})

	t.Run("illegal transition returns conflict", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		sub := seed(store, models.StatusExpired)

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/"+sub.ID.String()+"/status", gin.H{
			"status": "active",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, models.StatusExpired, store.subs[sub.ID].Status)
	})

	t.Run("force bypasses the transition table", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		sub := seed(store, models.StatusExpired)

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/"+sub.ID.String()+"/status", gin.H{
			"status": "active",
			"force":  true,
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.StatusActive, store.subs[sub.ID].Status)
	})

	t.Run("unknown subscription returns not found", func(t *testing.T) {
		r := setupSubscriptionsRouter(t, newMemStore())

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/"+uuid.NewString()+"/status", gin.H{
			"status": "cancelled",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		sub := seed(store, models.StatusActive)

		w := doJSON(t, r, http.MethodPost, "/api/v1/subscriptions/"+sub.ID.String()+"/status", gin.H{
			"status": "paused",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAccessEndpoint(t *testing.T) {
	t.Run("unknown tenant gets denial with trial features", func(t *testing.T) {
		r := setupSubscriptionsRouter(t, newMemStore())

		w := doJSON(t, r, http.MethodGet, "/api/v1/tenants/"+uuid.NewString()+"/access", nil)

		require.Equal(t, http.StatusOK, w.Code)

		var decision entitlement.AccessDecision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.False(t, decision.HasAccess)
		assert.Nil(t, decision.Subscription)
		assert.Equal(t, 100, decision.Features.MaxCustomers)
	})

	t.Run("active tenant gets access", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		sub := models.NewSubscription(uuid.New(), models.PlanSemiannual, 180*24*time.Hour)
		store.subs[sub.ID] = sub

		w := doJSON(t, r, http.MethodGet, "/api/v1/tenants/"+sub.TenantID.String()+"/access", nil)

		require.Equal(t, http.StatusOK, w.Code)

		var decision entitlement.AccessDecision
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.True(t, decision.HasAccess)
		assert.Equal(t, 180, decision.DaysRemaining)
		assert.True(t, decision.Features.CustomBranding)
	})

	t.Run("invalid tenant id is rejected", func(t *testing.T) {
		r := setupSubscriptionsRouter(t, newMemStore())

		w := doJSON(t, r, http.MethodGet, "/api/v1/tenants/not-a-uuid/access", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCurrentSubscriptionEndpoint(t *testing.T) {
	t.Run("returns newest row", func(t *testing.T) {
		store := newMemStore()
		r := setupSubscriptionsRouter(t, store)
		tenantID := uuid.New()

		old := models.NewSubscription(tenantID, models.PlanTrial, 30*24*time.Hour)
		old.CreatedAt = time.Now().Add(-time.Hour)
		store.subs[old.ID] = old
		newer := models.NewSubscription(tenantID, models.PlanMonthly, 30*24*time.Hour)
		store.subs[newer.ID] = newer

		w := doJSON(t, r, http.MethodGet, "/api/v1/tenants/"+tenantID.String()+"/subscription", nil)

		require.Equal(t, http.StatusOK, w.Code)

		var sub models.Subscription
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
		assert.Equal(t, newer.ID, sub.ID)
	})

	t.Run("no subscription returns not found", func(t *testing.T) {
		r := setupSubscriptionsRouter(t, newMemStore())

		w := doJSON(t, r, http.MethodGet, "/api/v1/tenants/"+uuid.NewString()+"/subscription", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListSubscriptionsEndpoint(t *testing.T) {
	store := newMemStore()
	r := setupSubscriptionsRouter(t, store)

	user := models.NewUser("tenant@example.com", "Tenant One")
	store.users[user.ID] = user
	sub := models.NewSubscription(user.ID, models.PlanMonthly, 30*24*time.Hour)
	store.subs[sub.ID] = sub

	w := doJSON(t, r, http.MethodGet, "/api/v1/subscriptions", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Subscriptions []*models.SubscriptionWithTenant `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Subscriptions, 1)
	assert.Equal(t, "tenant@example.com", resp.Subscriptions[0].TenantEmail)
}
