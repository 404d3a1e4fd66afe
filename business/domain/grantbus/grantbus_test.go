package grantbus_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a mutex guarded in-memory Storer. IncrementUsage applies the
// same check-and-increment the SQL store performs in one statement.
type memStore struct {
	mu     sync.Mutex
	grants map[uuid.UUID][]grantbus.Grant
}

func newMemStore() *memStore {
	return &memStore{
		grants: make(map[uuid.UUID][]grantbus.Grant),
	}
}

func (s *memStore) NewWithTx(tx sqldb.CommitRollbacker) (grantbus.Storer, error) {
	return s, nil
}

func (s *memStore) ReplaceAll(ctx context.Context, tenantID uuid.UUID, grants []grantbus.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants[tenantID] = append([]grantbus.Grant(nil), grants...)
	return nil
}

func (s *memStore) QueryByTenant(ctx context.Context, tenantID uuid.UUID) ([]grantbus.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]grantbus.Grant(nil), s.grants[tenantID]...), nil
}

func (s *memStore) QueryByService(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType) (grantbus.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants[tenantID] {
		if g.Service.Equal(service) {
			return g, nil
		}
	}

	return grantbus.Grant{}, sqldb.ErrDBNotFound
}

func (s *memStore) IncrementUsage(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType, amount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, g := range s.grants[tenantID] {
		if !g.Service.Equal(service) || !g.Enabled {
			continue
		}

		if g.UsageLimit != nil && g.UsageCount+amount > *g.UsageLimit {
			return false, nil
		}

		s.grants[tenantID][i].UsageCount += amount
		return true, nil
	}

	return false, nil
}

func (s *memStore) ResetExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for tenantID, grants := range s.grants {
		for i, g := range grants {
			if !g.PeriodResetAt.After(now) {
				s.grants[tenantID][i].UsageCount = 0
				s.grants[tenantID][i].PeriodResetAt = g.PeriodResetAt.AddDate(0, 1, 0)
				n++
			}
		}
	}

	return n, nil
}

func newTestCore(t *testing.T) (*grantbus.Core, *memStore) {
	t.Helper()

	log := logger.New(os.Stdout, logger.LevelError, "TEST", nil)
	store := newMemStore()

	return grantbus.NewCore(log, store), store
}

func Test_EnableTierServicesIdempotent(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := core.EnableTierServices(ctx, tenantID, tier.Pro)
	require.NoError(t, err)
	require.Len(t, first, len(servicetype.All()))

	second, err := core.EnableTierServices(ctx, tenantID, tier.Pro)
	require.NoError(t, err)
	require.Len(t, second, len(first))

	for i := range first {
		assert.True(t, first[i].Service.Equal(second[i].Service))
		assert.Equal(t, first[i].Enabled, second[i].Enabled)
		if first[i].UsageLimit != nil {
			require.NotNil(t, second[i].UsageLimit)
			assert.Equal(t, *first[i].UsageLimit, *second[i].UsageLimit)
		}
	}
}

func Test_DowngradeDisablesByRewrite(t *testing.T) {
	core, _ := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := core.EnableTierServices(ctx, tenantID, tier.Enterprise)
	require.NoError(t, err)

	_, err = core.EnableTierServices(ctx, tenantID, tier.Free)
	require.NoError(t, err)

	grants, err := core.QueryByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, grants, len(servicetype.All()))

	for _, g := range grants {
		assert.False(t, g.Enabled, "service %s should be disabled on FREE", g.Service)
	}
}

func Test_CheckClassification(t *testing.T) {
	tenantID := uuid.New()
	now := time.Now()

	grants := grantbus.TierGrants(tenantID, tier.Basic, now)

	access := grantbus.Check(grants, servicetype.CustomBranding)
	assert.True(t, access.Allowed)
	assert.Nil(t, access.Remaining)

	access = grantbus.Check(grants, servicetype.EmailMarketing)
	assert.False(t, access.Allowed)
	assert.True(t, access.Reason.Equal(denyreason.NotEnabled))

	access = grantbus.Check(nil, servicetype.Analytics)
	assert.False(t, access.Allowed)
	assert.True(t, access.Reason.Equal(denyreason.TierInsufficient))

	access = grantbus.Check(grants, servicetype.Analytics)
	assert.True(t, access.Allowed)
	require.NotNil(t, access.Remaining)
	assert.Equal(t, 1000, *access.Remaining)
}

func Test_RecordUsageAtLimit(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	limit := 5
	require.NoError(t, store.ReplaceAll(ctx, tenantID, []grantbus.Grant{{
		TenantID:   tenantID,
		Service:    servicetype.Analytics,
		Enabled:    true,
		UsageLimit: &limit,
		UsageCount: 4,
	}}))

	require.NoError(t, core.RecordUsage(ctx, tenantID, servicetype.Analytics, 1))

	err := core.RecordUsage(ctx, tenantID, servicetype.Analytics, 1)
	require.ErrorIs(t, err, grantbus.ErrUsageExceeded)
}

func Test_RecordUsageConcurrentAtLimit(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	limit := 5
	require.NoError(t, store.ReplaceAll(ctx, tenantID, []grantbus.Grant{{
		TenantID:   tenantID,
		Service:    servicetype.Analytics,
		Enabled:    true,
		UsageLimit: &limit,
		UsageCount: 4,
	}}))

	const workers = 20

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- core.RecordUsage(ctx, tenantID, servicetype.Analytics, 1)
		}()
	}

	wg.Wait()
	close(results)

	var successes, exceeded int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, grantbus.ErrUsageExceeded)
			exceeded++
		}
	}

	assert.Equal(t, 1, successes, "exactly one increment may win the last slot")
	assert.Equal(t, workers-1, exceeded)

	g, err := store.QueryByService(ctx, tenantID, servicetype.Analytics)
	require.NoError(t, err)
	assert.Equal(t, limit, g.UsageCount)
}

func Test_RecordUsageErrors(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	err := core.RecordUsage(ctx, tenantID, servicetype.Analytics, 1)
	require.ErrorIs(t, err, grantbus.ErrNotFound)

	require.NoError(t, store.ReplaceAll(ctx, tenantID, []grantbus.Grant{{
		TenantID: tenantID,
		Service:  servicetype.Analytics,
		Enabled:  false,
	}}))

	err = core.RecordUsage(ctx, tenantID, servicetype.Analytics, 1)
	require.ErrorIs(t, err, grantbus.ErrNotEnabled)
}

func Test_ResetExpired(t *testing.T) {
	core, store := newTestCore(t)
	ctx := context.Background()
	tenantID := uuid.New()

	now := time.Now()
	limit := 100
	require.NoError(t, store.ReplaceAll(ctx, tenantID, []grantbus.Grant{{
		TenantID:      tenantID,
		Service:       servicetype.Analytics,
		Enabled:       true,
		UsageLimit:    &limit,
		UsageCount:    42,
		PeriodResetAt: now.Add(-time.Hour),
	}}))

	n, err := core.ResetExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	g, err := store.QueryByService(ctx, tenantID, servicetype.Analytics)
	require.NoError(t, err)
	assert.Equal(t, 0, g.UsageCount)
	assert.True(t, g.PeriodResetAt.After(now))
}
