// Package subscriptiondb contains subscription ledger storage functionality.
package subscriptiondb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Store manages the set of APIs for subscription database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db *sqlx.DB) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (subscriptionbus.Storer, error) {
	ec, err := sqldb.GetExtContext(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log: s.log,
		db:  ec,
	}

	return &store, nil
}

// Create appends a new row to the subscription ledger.
func (s *Store) Create(ctx context.Context, sub subscriptionbus.Subscription) error {
	const q = `
	INSERT INTO "public"."tenant_subscription"
		(id, tenant_id, tier, billing_cycle, status, cancel_at_period_end, period_start, period_end, created_at, updated_at)
	VALUES
		(:id, :tenant_id, :tier, :billing_cycle, :status, :cancel_at_period_end, :period_start, :period_end, :created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBSubscription(sub)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryCurrent gets the tenant's single ACTIVE or TRIALING row.
func (s *Store) QueryCurrent(ctx context.Context, tenantID uuid.UUID) (subscriptionbus.Subscription, error) {
	data := struct {
		TenantID string `db:"tenant_id"`
		Active   string `db:"active"`
		Trialing string `db:"trialing"`
	}{
		TenantID: tenantID.String(),
		Active:   substatus.Active.String(),
		Trialing: substatus.Trialing.String(),
	}

	const q = `
	SELECT
		id, tenant_id, tier, billing_cycle, status, cancel_at_period_end, period_start, period_end, created_at, updated_at
	FROM
		"public"."tenant_subscription"
	WHERE
		tenant_id = :tenant_id AND status IN (:active, :trialing)
	ORDER BY
		created_at DESC
	LIMIT 1`

	var dbSub subscriptionDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbSub); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return subscriptionbus.Subscription{}, fmt.Errorf("db: %w", sqldb.ErrDBNotFound)
		}
		return subscriptionbus.Subscription{}, fmt.Errorf("db: %w", err)
	}

	return toBusSubscription(dbSub)
}

// CloseCurrent moves any ACTIVE or TRIALING row for the tenant to the
// specified status.
func (s *Store) CloseCurrent(ctx context.Context, tenantID uuid.UUID, status substatus.Status, now time.Time) error {
	data := struct {
		TenantID string    `db:"tenant_id"`
		Status   string    `db:"status"`
		Active   string    `db:"active"`
		Trialing string    `db:"trialing"`
		Now      time.Time `db:"now"`
	}{
		TenantID: tenantID.String(),
		Status:   status.String(),
		Active:   substatus.Active.String(),
		Trialing: substatus.Trialing.String(),
		Now:      now,
	}

	const q = `
	UPDATE
		"public"."tenant_subscription"
	SET
		status = :status,
		updated_at = :now
	WHERE
		tenant_id = :tenant_id AND status IN (:active, :trialing)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// SetCancelAtPeriodEnd flags the row for end of period cancellation. The
// predicate only matches an unflagged row, so the first caller wins and
// retries report no change.
func (s *Store) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID uuid.UUID, now time.Time) (bool, error) {
	data := struct {
		ID  string    `db:"id"`
		Now time.Time `db:"now"`
	}{
		ID:  subscriptionID.String(),
		Now: now,
	}

	const q = `
	UPDATE
		"public"."tenant_subscription"
	SET
		cancel_at_period_end = true,
		updated_at = :now
	WHERE
		id = :id AND cancel_at_period_end = false`

	rows, err := sqldb.NamedExecContextCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return false, fmt.Errorf("namedexeccontextcount: %w", err)
	}

	return rows > 0, nil
}

// UpdateStatus moves one row to the specified status.
func (s *Store) UpdateStatus(ctx context.Context, subscriptionID uuid.UUID, status substatus.Status, now time.Time) error {
	data := struct {
		ID     string    `db:"id"`
		Status string    `db:"status"`
		Now    time.Time `db:"now"`
	}{
		ID:     subscriptionID.String(),
		Status: status.String(),
		Now:    now,
	}

	const q = `
	UPDATE
		"public"."tenant_subscription"
	SET
		status = :status,
		updated_at = :now
	WHERE
		id = :id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryElapsed gets rows flagged for cancellation whose period has ended.
func (s *Store) QueryElapsed(ctx context.Context, now time.Time) ([]subscriptionbus.Subscription, error) {
	data := struct {
		Now      time.Time `db:"now"`
		Active   string    `db:"active"`
		Trialing string    `db:"trialing"`
	}{
		Now:      now,
		Active:   substatus.Active.String(),
		Trialing: substatus.Trialing.String(),
	}

	const q = `
	SELECT
		id, tenant_id, tier, billing_cycle, status, cancel_at_period_end, period_start, period_end, created_at, updated_at
	FROM
		"public"."tenant_subscription"
	WHERE
		cancel_at_period_end = true AND period_end <= :now AND status IN (:active, :trialing)
	ORDER BY
		period_end`

	var dbSubs []subscriptionDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbSubs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusSubscriptions(dbSubs)
}
