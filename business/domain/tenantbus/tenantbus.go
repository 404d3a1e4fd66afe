// Package tenantbus provides business access to tenants and resolves a
// request's addressing info (custom domain, subdomain, path prefix) to the
// tenant it belongs to.
package tenantbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/ridewave/ridewave/foundation/otel"
)

var (
	ErrNotFound     = errors.New("tenant not found")
	ErrUniqueSlug   = errors.New("slug is not unique")
	ErrUniqueDomain = errors.New("domain is not unique")
)

// Storer defines the behavior required by the tenantbus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, t Tenant) error
	Update(ctx context.Context, t Tenant) error
	Query(ctx context.Context, filter QueryFilter, orderBy order.By, page page.Page) ([]Tenant, error)
	Count(ctx context.Context, filter QueryFilter) (int, error)
	QueryByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error)

	// The profile queries load tenant, current subscription and all grants
	// in a single round trip.
	QueryProfileByDomain(ctx context.Context, domain string) (Profile, error)
	QueryProfileBySlug(ctx context.Context, slug string) (Profile, error)

	UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error
}

// Core manages the set of APIs for tenant access.
type Core struct {
	storer Storer
	log    *logger.Logger
}

// NewCore constructs a core for tenant api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		storer: storer,
		log:    log,
	}
}

// NewWithTx constructs a new Core value replacing the Storer
// value with a Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return NewCore(c.log, storer), nil
}

// Create adds a new tenant to the system. The subscription summary starts
// ACTIVE on the requested tier; opening the actual subscription row is the
// subscription machinery's job.
func (c *Core) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.create")
	defer span.End()

	now := time.Now()

	t := Tenant{
		ID:        uuid.New(),
		Name:      nt.Name,
		Slug:      nt.Slug,
		Domain:    nt.Domain,
		Active:    true,
		Tier:      nt.Tier,
		Status:    substatus.Active,
		Limits:    DefaultLimits(nt.Tier),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storer.Create(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("create: %w", err)
	}

	return t, nil
}

// Update modifies data about a tenant.
func (c *Core) Update(ctx context.Context, t Tenant, ut UpdateTenant) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.update")
	defer span.End()

	if ut.Name != nil {
		t.Name = *ut.Name
	}

	if ut.Domain != nil {
		t.Domain = *ut.Domain
	}

	if ut.Active != nil {
		t.Active = *ut.Active
	}

	if ut.Limits != nil {
		t.Limits = *ut.Limits
	}

	t.UpdatedAt = time.Now()

	if err := c.storer.Update(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("update: %w", err)
	}

	return t, nil
}

// Query retrieves a list of existing tenants.
func (c *Core) Query(ctx context.Context, filter QueryFilter, orderBy order.By, page page.Page) ([]Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.query")
	defer span.End()

	tenants, err := c.storer.Query(ctx, filter, orderBy, page)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return tenants, nil
}

// Count returns the total number of tenants.
func (c *Core) Count(ctx context.Context, filter QueryFilter) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.count")
	defer span.End()

	return c.storer.Count(ctx, filter)
}

// QueryByID finds the tenant by the specified ID.
func (c *Core) QueryByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.queryByID")
	defer span.End()

	tenant, err := c.storer.QueryByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, fmt.Errorf("query: tenantID[%s]: %w", tenantID, err)
	}

	return tenant, nil
}

// Resolve maps a request's host and path to a tenant profile. The order is
// fixed: custom domain first, then subdomain, then the /tenant/{slug} path
// prefix; the first match wins and later steps are skipped. ErrNotFound
// signals platform traffic, not a failure. Resolution performs no writes
// and is safe to repeat.
func (c *Core) Resolve(ctx context.Context, host string, path string) (Resolution, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.resolve")
	defer span.End()

	host = stripPort(host)

	if host != "" {
		p, err := c.storer.QueryProfileByDomain(ctx, host)
		switch {
		case err == nil:
			return Resolution{Profile: p, Via: ViaDomain}, nil
		case errors.Is(err, ErrNotFound):
		default:
			return Resolution{}, fmt.Errorf("queryProfileByDomain: host[%s]: %w", host, err)
		}
	}

	if label, ok := subdomain(host); ok {
		p, err := c.storer.QueryProfileBySlug(ctx, label)
		switch {
		case err == nil:
			return Resolution{Profile: p, Via: ViaSubdomain}, nil
		case errors.Is(err, ErrNotFound):
		default:
			return Resolution{}, fmt.Errorf("queryProfileBySlug: slug[%s]: %w", label, err)
		}
	}

	if label, ok := pathSlug(path); ok {
		p, err := c.storer.QueryProfileBySlug(ctx, label)
		switch {
		case err == nil:
			return Resolution{Profile: p, Via: ViaPath}, nil
		case errors.Is(err, ErrNotFound):
		default:
			return Resolution{}, fmt.Errorf("queryProfileBySlug: slug[%s]: %w", label, err)
		}
	}

	return Resolution{}, ErrNotFound
}

// UpdateSubscriptionSummary keeps the tenant's denormalized tier and status
// columns in step with the subscription ledger.
func (c *Core) UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.updateSubscriptionSummary")
	defer span.End()

	if err := c.storer.UpdateSubscriptionSummary(ctx, tenantID, t, status, trialEndsAt); err != nil {
		return fmt.Errorf("updateSubscriptionSummary: tenantID[%s]: %w", tenantID, err)
	}

	return nil
}

// stripPort drops a port from the host if one is present, handling
// bracketed IPv6 literals. A host without a port passes through untouched.
func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// subdomain extracts the first host label when the host has more labels
// and the label is not reserved for platform use.
func subdomain(host string) (string, bool) {
	i := strings.Index(host, ".")
	if i <= 0 {
		return "", false
	}

	label := host[:i]
	if slug.IsReserved(label) {
		return "", false
	}

	if _, err := slug.Parse(label); err != nil {
		return "", false
	}

	return label, true
}

// pathSlug extracts the slug from a /tenant/{slug} path prefix.
func pathSlug(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/tenant/")
	if !ok {
		return "", false
	}

	if i := strings.Index(rest, "/"); i != -1 {
		rest = rest[:i]
	}

	if _, err := slug.Parse(rest); err != nil {
		return "", false
	}

	return rest, true
}
