package tenantbus_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/domainname"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a resolver focused Storer double. Profiles are indexed by
// custom domain and slug the way the SQL store's profile queries are.
type memStore struct {
	byDomain map[string]tenantbus.Profile
	bySlug   map[string]tenantbus.Profile
}

func newMemStore() *memStore {
	return &memStore{
		byDomain: make(map[string]tenantbus.Profile),
		bySlug:   make(map[string]tenantbus.Profile),
	}
}

func (s *memStore) add(p tenantbus.Profile) {
	if p.Tenant.Domain.Valid() {
		s.byDomain[p.Tenant.Domain.String()] = p
	}
	s.bySlug[p.Tenant.Slug.String()] = p
}

func (s *memStore) NewWithTx(tx sqldb.CommitRollbacker) (tenantbus.Storer, error) {
	return s, nil
}

func (s *memStore) Create(ctx context.Context, t tenantbus.Tenant) error {
	s.add(tenantbus.Profile{Tenant: t})
	return nil
}

func (s *memStore) Update(ctx context.Context, t tenantbus.Tenant) error {
	s.add(tenantbus.Profile{Tenant: t})
	return nil
}

func (s *memStore) Query(ctx context.Context, filter tenantbus.QueryFilter, orderBy order.By, page page.Page) ([]tenantbus.Tenant, error) {
	var tenants []tenantbus.Tenant
	for _, p := range s.bySlug {
		tenants = append(tenants, p.Tenant)
	}
	return tenants, nil
}

func (s *memStore) Count(ctx context.Context, filter tenantbus.QueryFilter) (int, error) {
	return len(s.bySlug), nil
}

func (s *memStore) QueryByID(ctx context.Context, tenantID uuid.UUID) (tenantbus.Tenant, error) {
	for _, p := range s.bySlug {
		if p.Tenant.ID == tenantID {
			return p.Tenant, nil
		}
	}
	return tenantbus.Tenant{}, tenantbus.ErrNotFound
}

func (s *memStore) QueryProfileByDomain(ctx context.Context, domain string) (tenantbus.Profile, error) {
	if p, ok := s.byDomain[domain]; ok {
		return p, nil
	}
	return tenantbus.Profile{}, tenantbus.ErrNotFound
}

func (s *memStore) QueryProfileBySlug(ctx context.Context, sl string) (tenantbus.Profile, error) {
	if p, ok := s.bySlug[sl]; ok {
		return p, nil
	}
	return tenantbus.Profile{}, tenantbus.ErrNotFound
}

func (s *memStore) UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error {
	return nil
}

func newTestCore(t *testing.T) (*tenantbus.Core, *memStore) {
	t.Helper()

	log := logger.New(os.Stdout, logger.LevelError, "TEST", nil)
	store := newMemStore()

	return tenantbus.NewCore(log, store), store
}

func seedTenant(t *testing.T, store *memStore, slugStr string, domainStr string) tenantbus.Tenant {
	t.Helper()

	tnt := tenantbus.Tenant{
		ID:     uuid.New(),
		Slug:   slug.MustParse(slugStr),
		Active: true,
		Tier:   tier.Pro,
		Status: substatus.Active,
	}

	if domainStr != "" {
		tnt.Domain = domainname.MustParseNull(domainStr)
	}

	store.add(tenantbus.Profile{Tenant: tnt})
	return tnt
}

func Test_ResolveByCustomDomain(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	tnt := seedTenant(t, store, "acme", "rides.acme.com")

	res, err := core.Resolve(ctx, "rides.acme.com", "/trips")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaDomain, res.Via)
}

func Test_ResolveDomainBeatsSubdomain(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	// The host is both a registered custom domain and a well formed
	// subdomain of another tenant's slug. The domain lookup runs first.
	byDomain := seedTenant(t, store, "acme", "beta.ridewave.io")
	seedTenant(t, store, "beta", "")

	res, err := core.Resolve(ctx, "beta.ridewave.io", "/trips")
	require.NoError(t, err)
	assert.Equal(t, byDomain.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaDomain, res.Via)
}

func Test_ResolveBySubdomain(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	tnt := seedTenant(t, store, "acme", "")

	res, err := core.Resolve(ctx, "acme.ridewave.io", "/trips")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaSubdomain, res.Via)
}

func Test_ResolveSubdomainBeatsPath(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	bySub := seedTenant(t, store, "acme", "")
	seedTenant(t, store, "globex", "")

	res, err := core.Resolve(ctx, "acme.ridewave.io", "/tenant/globex/trips")
	require.NoError(t, err)
	assert.Equal(t, bySub.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaSubdomain, res.Via)
}

func Test_ResolveByPath(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	tnt := seedTenant(t, store, "acme", "")

	res, err := core.Resolve(ctx, "ridewave.io", "/tenant/acme/trips")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaPath, res.Via)

	// Bare prefix with no trailing segment resolves too.
	res, err = core.Resolve(ctx, "ridewave.io", "/tenant/acme")
	require.NoError(t, err)
	assert.Equal(t, tenantbus.ViaPath, res.Via)
}

func Test_ResolveReservedLabels(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	// A tenant can never own the reserved labels, but even if a row slipped
	// in the resolver skips them.
	store.bySlug["www"] = tenantbus.Profile{Tenant: tenantbus.Tenant{ID: uuid.New()}}
	store.bySlug["api"] = tenantbus.Profile{Tenant: tenantbus.Tenant{ID: uuid.New()}}

	_, err := core.Resolve(ctx, "www.ridewave.io", "/trips")
	require.ErrorIs(t, err, tenantbus.ErrNotFound)

	_, err = core.Resolve(ctx, "api.ridewave.io", "/v1/bookings")
	require.ErrorIs(t, err, tenantbus.ErrNotFound)
}

func Test_ResolveStripsPort(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()

	tnt := seedTenant(t, store, "acme", "rides.acme.com")

	res, err := core.Resolve(ctx, "rides.acme.com:3000", "/trips")
	require.NoError(t, err)
	assert.Equal(t, tnt.ID, res.Profile.Tenant.ID)

	res, err = core.Resolve(ctx, "acme.ridewave.io:3000", "/trips")
	require.NoError(t, err)
	assert.Equal(t, tenantbus.ViaSubdomain, res.Via)

	// Bracketed IPv6 hosts keep their literal intact, the way local
	// development setups address the service.
	loopback := tenantbus.Tenant{ID: uuid.New(), Slug: slug.MustParse("loop"), Active: true}
	store.byDomain["::1"] = tenantbus.Profile{Tenant: loopback}

	res, err = core.Resolve(ctx, "[::1]:8080", "/trips")
	require.NoError(t, err)
	assert.Equal(t, loopback.ID, res.Profile.Tenant.ID)
	assert.Equal(t, tenantbus.ViaDomain, res.Via)
}

func Test_ResolveMiss(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	_, err := core.Resolve(ctx, "ridewave.io", "/pricing")
	require.ErrorIs(t, err, tenantbus.ErrNotFound)

	// Malformed path slugs never reach the store.
	_, err = core.Resolve(ctx, "ridewave.io", "/tenant/Not_A_Slug")
	require.ErrorIs(t, err, tenantbus.ErrNotFound)
}

func Test_CreateDefaults(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()

	tnt, err := core.Create(ctx, tenantbus.NewTenant{
		Slug: slug.MustParse("acme"),
		Tier: tier.Pro,
	})
	require.NoError(t, err)

	assert.True(t, tnt.Active)
	assert.True(t, tnt.Status.Equal(substatus.Active))
	assert.NotZero(t, tnt.Limits.MaxUsers)
}
