// Package tenantdb contains tenant related CRUD functionality plus the
// single round trip profile queries the request path depends on.
package tenantdb

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
)

// profileSelect loads the tenant row together with its current
// subscription and every grant in one statement. The subqueries ride on the
// tenant lookup so the request path never needs a second round trip.
const profileSelect = `
	SELECT
		t.tenant_id, t.name, t.slug, t.domain, t.active, t.tier, t.status, t.trial_ends_at,
		t.max_users, t.max_operators, t.max_bookings_per_month, t.created_at, t.updated_at,
		(
			SELECT row_to_json(s)
			FROM (
				SELECT id, tenant_id, tier, billing_cycle, status, cancel_at_period_end, period_start, period_end, created_at, updated_at
				FROM "public"."tenant_subscription"
				WHERE tenant_id = t.tenant_id AND status IN ('ACTIVE', 'TRIALING')
				ORDER BY created_at DESC
				LIMIT 1
			) AS s
		) AS subscription,
		(
			SELECT COALESCE(json_agg(g), '[]'::json)
			FROM (
				SELECT tenant_id, service_type, enabled, usage_limit, usage_count, period_reset_at, created_at, updated_at
				FROM "public"."service_grant"
				WHERE tenant_id = t.tenant_id
				ORDER BY service_type
			) AS g
		) AS grants
	FROM
		"public"."tenant" AS t`

// Store manages the set of APIs for tenant database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (tenantbus.Storer, error) {
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

// Create inserts a new tenant into the database.
func (s *Store) Create(ctx context.Context, t tenantbus.Tenant) error {
	const q = `
	INSERT INTO "public"."tenant"
		(tenant_id, name, slug, domain, active, tier, status, trial_ends_at, max_users, max_operators, max_bookings_per_month, created_at, updated_at)
	VALUES
		(:tenant_id, :name, :slug, :domain, :active, :tier, :status, :trial_ends_at, :max_users, :max_operators, :max_bookings_per_month, :created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBTenant(t)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			switch dupErr.Column {
			case "slug", "uq_tenant_slug":
				return fmt.Errorf("namedexeccontext: %w", tenantbus.ErrUniqueSlug)
			case "domain", "uq_tenant_domain":
				return fmt.Errorf("namedexeccontext: %w", tenantbus.ErrUniqueDomain)
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Update replaces a tenant document in the database.
func (s *Store) Update(ctx context.Context, t tenantbus.Tenant) error {
	const q = `
	UPDATE
		"public"."tenant"
	SET
		name = :name,
		domain = :domain,
		active = :active,
		max_users = :max_users,
		max_operators = :max_operators,
		max_bookings_per_month = :max_bookings_per_month,
		updated_at = :updated_at
	WHERE
		tenant_id = :tenant_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBTenant(t)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			switch dupErr.Column {
			case "domain", "uq_tenant_domain":
				return tenantbus.ErrUniqueDomain
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Query retrieves a list of existing tenants from the database.
func (s *Store) Query(ctx context.Context, filter tenantbus.QueryFilter, orderBy order.By, page page.Page) ([]tenantbus.Tenant, error) {
	data := map[string]any{
		"offset":        (page.Number() - 1) * page.RowsPerPage(),
		"rows_per_page": page.RowsPerPage(),
	}

	const q = `
	SELECT
		t.tenant_id, t.name, t.slug, t.domain, t.active, t.tier, t.status, t.trial_ends_at,
		t.max_users, t.max_operators, t.max_bookings_per_month, t.created_at, t.updated_at
	FROM
		"public"."tenant" AS t`

	buf := bytes.NewBufferString(q)
	applyFilter(filter, data, buf)

	orderByClause, err := orderByClause(orderBy)
	if err != nil {
		return nil, err
	}

	buf.WriteString(orderByClause)
	buf.WriteString(" OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY")

	var dbTenants []tenantDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, buf.String(), data, &dbTenants); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusTenants(dbTenants)
}

// Count returns the total number of tenants in the DB.
func (s *Store) Count(ctx context.Context, filter tenantbus.QueryFilter) (int, error) {
	data := map[string]any{}

	const q = `
	SELECT
		count(1)
	FROM
		"public"."tenant" AS t`

	buf := bytes.NewBufferString(q)
	applyFilter(filter, data, buf)

	var count struct {
		Count int `db:"count"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, buf.String(), data, &count); err != nil {
		return 0, fmt.Errorf("db: %w", err)
	}

	return count.Count, nil
}

// QueryByID gets the specified tenant from the database.
func (s *Store) QueryByID(ctx context.Context, tenantID uuid.UUID) (tenantbus.Tenant, error) {
	data := struct {
		ID string `db:"tenant_id"`
	}{
		ID: tenantID.String(),
	}

	const q = `
	SELECT
		t.tenant_id, t.name, t.slug, t.domain, t.active, t.tier, t.status, t.trial_ends_at,
		t.max_users, t.max_operators, t.max_bookings_per_month, t.created_at, t.updated_at
	FROM
		"public"."tenant" AS t
	WHERE
		t.tenant_id = :tenant_id`

	var dbT tenantDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbT); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return tenantbus.Tenant{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
		}
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", err)
	}

	return toBusTenant(dbT)
}

// QueryProfileByDomain loads the profile of the active tenant that owns the
// specified custom domain.
func (s *Store) QueryProfileByDomain(ctx context.Context, domain string) (tenantbus.Profile, error) {
	data := struct {
		Domain string `db:"domain"`
	}{
		Domain: domain,
	}

	q := profileSelect + `
	WHERE
		t.domain = :domain AND t.active = true`

	var dbP profileDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbP); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return tenantbus.Profile{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
		}
		return tenantbus.Profile{}, fmt.Errorf("db: %w", err)
	}

	return toBusProfile(dbP)
}

// QueryProfileBySlug loads the profile of the active tenant with the
// specified slug.
func (s *Store) QueryProfileBySlug(ctx context.Context, slug string) (tenantbus.Profile, error) {
	data := struct {
		Slug string `db:"slug"`
	}{
		Slug: slug,
	}

	q := profileSelect + `
	WHERE
		t.slug = :slug AND t.active = true`

	var dbP profileDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbP); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return tenantbus.Profile{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
		}
		return tenantbus.Profile{}, fmt.Errorf("db: %w", err)
	}

	return toBusProfile(dbP)
}

// UpdateSubscriptionSummary rewrites the denormalized subscription columns
// on the tenant row.
func (s *Store) UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error {
	var trial sql.NullTime
	if trialEndsAt != nil {
		trial = sql.NullTime{Time: *trialEndsAt, Valid: true}
	}

	data := struct {
		TenantID    string       `db:"tenant_id"`
		Tier        string       `db:"tier"`
		Status      string       `db:"status"`
		TrialEndsAt sql.NullTime `db:"trial_ends_at"`
		Now         time.Time    `db:"now"`
	}{
		TenantID:    tenantID.String(),
		Tier:        t.String(),
		Status:      status.String(),
		TrialEndsAt: trial,
		Now:         time.Now(),
	}

	const q = `
	UPDATE
		"public"."tenant"
	SET
		tier = :tier,
		status = :status,
		trial_ends_at = :trial_ends_at,
		updated_at = :now
	WHERE
		tenant_id = :tenant_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, data); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}
