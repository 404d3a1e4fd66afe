// Package grantdb contains service grant related CRUD functionality.
package grantdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Store manages the set of APIs for service grant database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (grantbus.Storer, error) {
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

// ReplaceAll deletes every grant for the tenant and writes the new set in
// its place. Runs inside the caller's transaction so the rewrite is all or
// nothing.
func (s *Store) ReplaceAll(ctx context.Context, tenantID uuid.UUID, grants []grantbus.Grant) error {
	data := struct {
		TenantID string `db:"tenant_id"`
	}{
		TenantID: tenantID.String(),
	}

	const del = `
	DELETE FROM
		"public"."service_grant"
	WHERE
		tenant_id = :tenant_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, del, data); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	const ins = `
	INSERT INTO "public"."service_grant"
		(tenant_id, service_type, enabled, usage_limit, usage_count, period_reset_at, created_at, updated_at)
	VALUES
		(:tenant_id, :service_type, :enabled, :usage_limit, :usage_count, :period_reset_at, :created_at, :updated_at)`

	for _, g := range grants {
		if err := sqldb.NamedExecContext(ctx, s.log, s.db, ins, toDBGrant(g)); err != nil {
			return fmt.Errorf("namedexeccontext: %w", err)
		}
	}

	return nil
}

// QueryByTenant gets every grant for the specified tenant.
func (s *Store) QueryByTenant(ctx context.Context, tenantID uuid.UUID) ([]grantbus.Grant, error) {
	data := struct {
		TenantID string `db:"tenant_id"`
	}{
		TenantID: tenantID.String(),
	}

	const q = `
	SELECT
		tenant_id, service_type, enabled, usage_limit, usage_count, period_reset_at, created_at, updated_at
	FROM
		"public"."service_grant"
	WHERE
		tenant_id = :tenant_id
	ORDER BY
		service_type`

	var dbGrants []grantDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbGrants); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusGrants(dbGrants)
}

// QueryByService gets the grant for one tenant/service pair.
func (s *Store) QueryByService(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType) (grantbus.Grant, error) {
	data := struct {
		TenantID    string `db:"tenant_id"`
		ServiceType string `db:"service_type"`
	}{
		TenantID:    tenantID.String(),
		ServiceType: service.String(),
	}

	const q = `
	SELECT
		tenant_id, service_type, enabled, usage_limit, usage_count, period_reset_at, created_at, updated_at
	FROM
		"public"."service_grant"
	WHERE
		tenant_id = :tenant_id AND service_type = :service_type`

	var dbGrant grantDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbGrant); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return grantbus.Grant{}, fmt.Errorf("db: %w", sqldb.ErrDBNotFound)
		}
		return grantbus.Grant{}, fmt.Errorf("db: %w", err)
	}

	return toBusGrant(dbGrant)
}

// IncrementUsage applies the conditional increment as a single statement.
// Two requests racing over the last unit of usage cannot both win: the row
// predicate re-checks the limit under the row lock, so at most one update
// matches.
func (s *Store) IncrementUsage(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType, amount int) (bool, error) {
	data := struct {
		TenantID    string `db:"tenant_id"`
		ServiceType string `db:"service_type"`
		Amount      int    `db:"amount"`
	}{
		TenantID:    tenantID.String(),
		ServiceType: service.String(),
		Amount:      amount,
	}

	const q = `
	UPDATE
		"public"."service_grant"
	SET
		usage_count = usage_count + :amount,
		updated_at = NOW()
	WHERE
		tenant_id = :tenant_id
		AND service_type = :service_type
		AND enabled = true
		AND (usage_limit IS NULL OR usage_count + :amount <= usage_limit)`

	rows, err := sqldb.NamedExecContextCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return false, fmt.Errorf("namedexeccontextcount: %w", err)
	}

	return rows > 0, nil
}

// ResetExpired zeroes usage counters whose reset time has passed and rolls
// the window forward one month.
func (s *Store) ResetExpired(ctx context.Context, now time.Time) (int, error) {
	data := struct {
		Now time.Time `db:"now"`
	}{
		Now: now,
	}

	const q = `
	UPDATE
		"public"."service_grant"
	SET
		usage_count = 0,
		period_reset_at = period_reset_at + INTERVAL '1 month',
		updated_at = :now
	WHERE
		period_reset_at <= :now`

	rows, err := sqldb.NamedExecContextCount(ctx, s.log, s.db, q, data)
	if err != nil {
		return 0, fmt.Errorf("namedexeccontextcount: %w", err)
	}

	return int(rows), nil
}
