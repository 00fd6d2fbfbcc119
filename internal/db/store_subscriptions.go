package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/entitlement"
	"github.com/MacJediWizard/gatekeep/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Subscription methods

// CreateSubscription inserts a new subscription record.
func (db *DB) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO subscriptions (id, tenant_id, plan_type, status, period_start, period_end,
			provider_subscription_id, provider_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sub.ID, sub.TenantID, string(sub.PlanType), string(sub.Status),
		sub.PeriodStart, sub.PeriodEnd,
		sub.ProviderSubscriptionID, sub.ProviderCustomerID,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	db.logger.Info().
		Str("subscription_id", sub.ID.String()).
		Str("tenant_id", sub.TenantID.String()).
		Str("plan", string(sub.PlanType)).
		Msg("subscription inserted")

	return nil
}

// GetSubscriptionByID returns a subscription by its id, or
// entitlement.ErrNotFound.
func (db *DB) GetSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, plan_type, status, period_start, period_end,
			provider_subscription_id, provider_customer_id, created_at, updated_at
		FROM subscriptions
		WHERE id = $1
	`, id)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entitlement.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// GetLatestSubscriptionByTenant returns the most recently created
// subscription for a tenant, or entitlement.ErrNotFound. The id tiebreak
// keeps the result deterministic when creation timestamps collide.
func (db *DB) GetLatestSubscriptionByTenant(ctx context.Context, tenantID uuid.UUID) (*models.Subscription, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, plan_type, status, period_start, period_end,
			provider_subscription_id, provider_customer_id, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, tenantID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entitlement.ErrNotFound
		}
		return nil, fmt.Errorf("get latest subscription: %w", err)
	}
	return sub, nil
}

// UpdateSubscriptionStatus sets the status and updated_at of a
// subscription. Returns entitlement.ErrNotFound if no row matches.
func (db *DB) UpdateSubscriptionStatus(ctx context.Context, id uuid.UUID, status models.SubscriptionStatus, updatedAt time.Time) error {
	result, err := db.Pool.Exec(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, string(status), updatedAt)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return entitlement.ErrNotFound
	}

	db.logger.Info().
		Str("subscription_id", id.String()).
		Str("status", string(status)).
		Msg("subscription status updated")

	return nil
}

// GetAllSubscriptions returns every subscription record, newest first.
func (db *DB) GetAllSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, tenant_id, plan_type, status, period_start, period_end,
			provider_subscription_id, provider_customer_id, created_at, updated_at
		FROM subscriptions
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// ListSubscriptionsWithTenants returns subscriptions joined with tenant
// display metadata for administrative review, newest first.
func (db *DB) ListSubscriptionsWithTenants(ctx context.Context, limit, offset int) ([]*models.SubscriptionWithTenant, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.tenant_id, s.plan_type, s.status, s.period_start, s.period_end,
			s.provider_subscription_id, s.provider_customer_id, s.created_at, s.updated_at,
			COALESCE(u.email, ''), COALESCE(u.name, '')
		FROM subscriptions s
		LEFT JOIN users u ON s.tenant_id = u.id
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions with tenants: %w", err)
	}
	defer rows.Close()

	var result []*models.SubscriptionWithTenant
	for rows.Next() {
		var row models.SubscriptionWithTenant
		var planType, status string
		err := rows.Scan(
			&row.ID, &row.TenantID, &planType, &status,
			&row.PeriodStart, &row.PeriodEnd,
			&row.ProviderSubscriptionID, &row.ProviderCustomerID,
			&row.CreatedAt, &row.UpdatedAt,
			&row.TenantEmail, &row.TenantName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscription with tenant: %w", err)
		}
		row.PlanType = models.PlanType(planType)
		row.Status = models.SubscriptionStatus(status)
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions with tenants: %w", err)
	}

	return result, nil
}

// ExpireLapsedSubscriptions marks active subscriptions whose period has
// ended as expired, returning the number of rows affected.
func (db *DB) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.Pool.Exec(ctx, `
		UPDATE subscriptions SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND period_end < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}

	count := result.RowsAffected()
	if count > 0 {
		db.logger.Info().Int64("count", count).Msg("expired lapsed subscriptions")
	}

	return count, nil
}

// rowScanner matches both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var sub models.Subscription
	var planType, status string
	err := row.Scan(
		&sub.ID, &sub.TenantID, &planType, &status,
		&sub.PeriodStart, &sub.PeriodEnd,
		&sub.ProviderSubscriptionID, &sub.ProviderCustomerID,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.PlanType = models.PlanType(planType)
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}
