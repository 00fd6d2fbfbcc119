package db

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/entitlement"
	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// dockerAvailable returns true if a Docker daemon is reachable.
func dockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL testcontainer, runs migrations, and returns a connected DB.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("gatekeep_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zerolog.New(zerolog.NewTestWriter(t))
	cfg := DefaultConfig(connStr)
	cfg.MaxConns = 5
	cfg.MinConns = 1

	database, err := New(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	err = database.Migrate(ctx)
	require.NoError(t, err)

	return database
}

func createTestUser(t *testing.T, database *DB) *models.User {
	t.Helper()
	user := models.NewUser(uuid.NewString()+"@example.com", "Test Tenant")
	require.NoError(t, database.CreateUser(context.Background(), user))
	return user
}

func TestSubscriptionStore(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	t.Run("create and get by id", func(t *testing.T) {
		user := createTestUser(t, database)
		sub := models.NewSubscription(user.ID, models.PlanMonthly, 30*24*time.Hour)
		sub.ProviderSubscriptionID = "sub_test"
		sub.ProviderCustomerID = "cus_test"

		require.NoError(t, database.CreateSubscription(ctx, sub))

		got, err := database.GetSubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, got.ID)
		assert.Equal(t, models.PlanMonthly, got.PlanType)
		assert.Equal(t, models.StatusActive, got.Status)
		assert.Equal(t, "sub_test", got.ProviderSubscriptionID)
		assert.Equal(t, "cus_test", got.ProviderCustomerID)
		assert.True(t, got.PeriodEnd.After(got.PeriodStart))
	})

	t.Run("get by id returns not found", func(t *testing.T) {
		_, err := database.GetSubscriptionByID(ctx, uuid.New())
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})

	t.Run("latest by tenant picks newest row", func(t *testing.T) {
		user := createTestUser(t, database)

		old := models.NewSubscription(user.ID, models.PlanTrial, 30*24*time.Hour)
		old.CreatedAt = time.Now().Add(-72 * time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, old))

		newer := models.NewSubscription(user.ID, models.PlanAnnual, 365*24*time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, newer))

		got, err := database.GetLatestSubscriptionByTenant(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, got.ID)
	})

	t.Run("latest by tenant returns not found for unknown tenant", func(t *testing.T) {
		_, err := database.GetLatestSubscriptionByTenant(ctx, uuid.New())
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})

	t.Run("update status refreshes updated_at", func(t *testing.T) {
		user := createTestUser(t, database)
		sub := models.NewSubscription(user.ID, models.PlanMonthly, 30*24*time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, sub))

		updatedAt := time.Now().Add(time.Minute)
		require.NoError(t, database.UpdateSubscriptionStatus(ctx, sub.ID, models.StatusCancelled, updatedAt))

		got, err := database.GetSubscriptionByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.WithinDuration(t, updatedAt, got.UpdatedAt, time.Second)
	})

	t.Run("update status on missing row returns not found", func(t *testing.T) {
		err := database.UpdateSubscriptionStatus(ctx, uuid.New(), models.StatusExpired, time.Now())
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})

	t.Run("list with tenants joins display metadata", func(t *testing.T) {
		user := createTestUser(t, database)
		sub := models.NewSubscription(user.ID, models.PlanSemiannual, 180*24*time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, sub))

		rows, err := database.ListSubscriptionsWithTenants(ctx, 500, 0)
		require.NoError(t, err)

		var found *models.SubscriptionWithTenant
		for _, row := range rows {
			if row.ID == sub.ID {
				found = row
				break
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, user.Email, found.TenantEmail)
		assert.Equal(t, "Test Tenant", found.TenantName)
	})

	t.Run("expire lapsed subscriptions", func(t *testing.T) {
		user := createTestUser(t, database)

		lapsed := models.NewSubscription(user.ID, models.PlanMonthly, 30*24*time.Hour)
		lapsed.PeriodStart = time.Now().Add(-60 * 24 * time.Hour)
		lapsed.PeriodEnd = time.Now().Add(-30 * 24 * time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, lapsed))

		current := models.NewSubscription(user.ID, models.PlanAnnual, 365*24*time.Hour)
		require.NoError(t, database.CreateSubscription(ctx, current))

		count, err := database.ExpireLapsedSubscriptions(ctx, time.Now())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))

		got, err := database.GetSubscriptionByID(ctx, lapsed.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, got.Status)

		got, err = database.GetSubscriptionByID(ctx, current.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
	})
}

func TestUserStore(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		user := createTestUser(t, database)

		got, err := database.GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)

		got, err = database.GetUserByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("lookup missing user returns not found", func(t *testing.T) {
		_, err := database.GetUserByID(ctx, uuid.New())
		assert.ErrorIs(t, err, entitlement.ErrNotFound)
	})
}

func TestMigrationsAreOrdered(t *testing.T) {
	migrations, err := GetMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].Version, migrations[i-1].Version)
	}
}
