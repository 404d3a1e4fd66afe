// Package grantbus provides business access to the per-tenant service
// grants that subscription gating decisions depend on.
package grantbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/ridewave/ridewave/foundation/otel"
)

var (
	ErrNotFound      = errors.New("grant not found")
	ErrNotEnabled    = errors.New("service not enabled")
	ErrUsageExceeded = errors.New("usage limit exceeded")
)

// Storer defines the behavior required by the grantbus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	ReplaceAll(ctx context.Context, tenantID uuid.UUID, grants []Grant) error
	QueryByTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error)
	QueryByService(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType) (Grant, error)

	// IncrementUsage must apply "increment only if under the limit" as one
	// atomic operation and report whether a row was updated.
	IncrementUsage(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType, amount int) (bool, error)

	ResetExpired(ctx context.Context, now time.Time) (int, error)
}

// Core manages the set of APIs for service grant access.
type Core struct {
	storer Storer
	log    *logger.Logger
}

// NewCore constructs a core for service grant api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		storer: storer,
		log:    log,
	}
}

// NewWithTx constructs a new Core value replacing the Storer value with a
// Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return NewCore(c.log, storer), nil
}

// EnableTierServices rewrites every grant row for the tenant from the tier
// table. The rewrite is wholesale and deterministic, so re-running it for
// the same tier is idempotent.
func (c *Core) EnableTierServices(ctx context.Context, tenantID uuid.UUID, t tier.Tier) ([]Grant, error) {
	ctx, span := otel.AddSpan(ctx, "business.grantbus.enableTierServices")
	defer span.End()

	now := time.Now()

	grants := TierGrants(tenantID, t, now)

	if err := c.storer.ReplaceAll(ctx, tenantID, grants); err != nil {
		return nil, fmt.Errorf("replaceAll: tenantID[%s] tier[%s]: %w", tenantID, t, err)
	}

	return grants, nil
}

// HasAccess answers whether the tenant may use the service right now. The
// check is read-only and never consumes usage.
func (c *Core) HasAccess(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType) (Access, error) {
	ctx, span := otel.AddSpan(ctx, "business.grantbus.hasAccess")
	defer span.End()

	grants, err := c.storer.QueryByTenant(ctx, tenantID)
	if err != nil {
		return Access{}, fmt.Errorf("queryByTenant: tenantID[%s]: %w", tenantID, err)
	}

	return Check(grants, service), nil
}

// Check evaluates an access question against an already loaded set of
// grants. The request path resolves tenant, subscription and grants in one
// fetch, so the policy engine calls this instead of going back to the store.
func Check(grants []Grant, service servicetype.ServiceType) Access {
	for _, g := range grants {
		if !g.Service.Equal(service) {
			continue
		}

		if !g.Enabled {
			return Access{Reason: denyreason.NotEnabled}
		}

		remaining, capped := g.Remaining()
		if !capped {
			return Access{Allowed: true}
		}

		if remaining <= 0 {
			zero := 0
			return Access{Reason: denyreason.UsageExceeded, Remaining: &zero}
		}

		return Access{Allowed: true, Remaining: &remaining}
	}

	// No grant row at all: the tenant's tier was never provisioned with
	// this service.
	return Access{Reason: denyreason.TierInsufficient}
}

// RecordUsage consumes usage on a grant. The increment happens only at the
// point the protected operation actually executes, never speculatively
// during access checks.
func (c *Core) RecordUsage(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType, amount int) error {
	ctx, span := otel.AddSpan(ctx, "business.grantbus.recordUsage")
	defer span.End()

	if amount <= 0 {
		amount = 1
	}

	updated, err := c.storer.IncrementUsage(ctx, tenantID, service, amount)
	if err != nil {
		return fmt.Errorf("incrementUsage: tenantID[%s] service[%s]: %w", tenantID, service, err)
	}

	if updated {
		return nil
	}

	// The conditional update matched no row. Classify the failure with a
	// read so the caller gets a precise error.
	g, err := c.storer.QueryByService(ctx, tenantID, service)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("queryByService: tenantID[%s] service[%s]: %w", tenantID, service, err)
	}

	if !g.Enabled {
		return ErrNotEnabled
	}

	return ErrUsageExceeded
}

// QueryByTenant returns every grant for the tenant.
func (c *Core) QueryByTenant(ctx context.Context, tenantID uuid.UUID) ([]Grant, error) {
	ctx, span := otel.AddSpan(ctx, "business.grantbus.queryByTenant")
	defer span.End()

	grants, err := c.storer.QueryByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("queryByTenant: tenantID[%s]: %w", tenantID, err)
	}

	return grants, nil
}

// ResetExpired zeroes the usage counters of every grant whose period reset
// time has passed and advances the reset time by one month. Driven by the
// scheduler, not by the request path.
func (c *Core) ResetExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.grantbus.resetExpired")
	defer span.End()

	n, err := c.storer.ResetExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("resetExpired: %w", err)
	}

	return n, nil
}
