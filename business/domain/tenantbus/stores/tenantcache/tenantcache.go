// Package tenantcache contains tenant profile caching so the request path
// does not pay a store round trip per request. The TTL is kept short on
// purpose: a stale ALLOW after a cancellation is a billing risk, so bounded
// staleness beats a complex invalidation protocol.
package tenantcache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/viccon/sturdyc"
)

// Store manages the set of APIs for tenant data and caching.
type Store struct {
	log    *logger.Logger
	storer tenantbus.Storer
	cache  *sturdyc.Client[tenantbus.Profile]
}

// NewStore constructs the api for data and caching access.
func NewStore(log *logger.Logger, storer tenantbus.Storer, ttl time.Duration) *Store {
	const capacity = 10000
	const numShards = 10
	const evictionPercentage = 10

	return &Store{
		log:    log,
		storer: storer,
		cache:  sturdyc.New[tenantbus.Profile](capacity, numShards, ttl, evictionPercentage),
	}
}

// NewWithTx constructs a new Store value replacing the storer value with a
// storer value that is currently inside a transaction. Writes inside a
// transaction bypass the cache.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (tenantbus.Storer, error) {
	return s.storer.NewWithTx(tx)
}

// Create inserts a new tenant into the database.
func (s *Store) Create(ctx context.Context, t tenantbus.Tenant) error {
	return s.storer.Create(ctx, t)
}

// Update replaces a tenant document in the database and evicts the cached
// profile so the change is visible immediately.
func (s *Store) Update(ctx context.Context, t tenantbus.Tenant) error {
	if err := s.storer.Update(ctx, t); err != nil {
		return err
	}

	s.deleteCache(t)

	return nil
}

// Query retrieves a list of existing tenants from the database.
func (s *Store) Query(ctx context.Context, filter tenantbus.QueryFilter, orderBy order.By, page page.Page) ([]tenantbus.Tenant, error) {
	return s.storer.Query(ctx, filter, orderBy, page)
}

// Count returns the total number of tenants in the DB.
func (s *Store) Count(ctx context.Context, filter tenantbus.QueryFilter) (int, error) {
	return s.storer.Count(ctx, filter)
}

// QueryByID gets the specified tenant from the database.
func (s *Store) QueryByID(ctx context.Context, tenantID uuid.UUID) (tenantbus.Tenant, error) {
	return s.storer.QueryByID(ctx, tenantID)
}

// QueryProfileByDomain gets the specified profile from the cache if it
// exists, otherwise from the database.
func (s *Store) QueryProfileByDomain(ctx context.Context, domain string) (tenantbus.Profile, error) {
	if p, ok := s.readCache("domain:" + domain); ok {
		return p, nil
	}

	p, err := s.storer.QueryProfileByDomain(ctx, domain)
	if err != nil {
		return tenantbus.Profile{}, err
	}

	s.writeCache(p)

	return p, nil
}

// QueryProfileBySlug gets the specified profile from the cache if it
// exists, otherwise from the database.
func (s *Store) QueryProfileBySlug(ctx context.Context, slug string) (tenantbus.Profile, error) {
	if p, ok := s.readCache("slug:" + slug); ok {
		return p, nil
	}

	p, err := s.storer.QueryProfileBySlug(ctx, slug)
	if err != nil {
		return tenantbus.Profile{}, err
	}

	s.writeCache(p)

	return p, nil
}

// UpdateSubscriptionSummary rewrites the denormalized subscription columns
// on the tenant row. Cached profiles age out on the TTL.
func (s *Store) UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error {
	return s.storer.UpdateSubscriptionSummary(ctx, tenantID, t, status, trialEndsAt)
}

// =============================================================================

func (s *Store) readCache(key string) (tenantbus.Profile, bool) {
	profile, exists := s.cache.Get(key)
	if !exists {
		return tenantbus.Profile{}, false
	}

	return profile, true
}

func (s *Store) writeCache(p tenantbus.Profile) {
	s.cache.Set("slug:"+p.Tenant.Slug.String(), p)

	if p.Tenant.Domain.Valid() {
		s.cache.Set("domain:"+p.Tenant.Domain.String(), p)
	}
}

func (s *Store) deleteCache(t tenantbus.Tenant) {
	s.cache.Delete("slug:" + t.Slug.String())

	if t.Domain.Valid() {
		s.cache.Delete("domain:" + t.Domain.String())
	}
}
