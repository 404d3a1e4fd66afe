package subscriptionbus_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/sdk/audit"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSubStore is an in-memory ledger double that keeps the same row
// semantics the SQL store enforces.
type memSubStore struct {
	mu   sync.Mutex
	rows []subscriptionbus.Subscription
}

func (s *memSubStore) NewWithTx(tx sqldb.CommitRollbacker) (subscriptionbus.Storer, error) {
	return s, nil
}

func (s *memSubStore) Create(ctx context.Context, sub subscriptionbus.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = append(s.rows, sub)
	return nil
}

func (s *memSubStore) QueryCurrent(ctx context.Context, tenantID uuid.UUID) (subscriptionbus.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.TenantID == tenantID && (row.Status.Equal(substatus.Active) || row.Status.Equal(substatus.Trialing)) {
			return row, nil
		}
	}

	return subscriptionbus.Subscription{}, sqldb.ErrDBNotFound
}

func (s *memSubStore) CloseCurrent(ctx context.Context, tenantID uuid.UUID, status substatus.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		if row.TenantID == tenantID && (row.Status.Equal(substatus.Active) || row.Status.Equal(substatus.Trialing)) {
			s.rows[i].Status = status
			s.rows[i].UpdatedAt = now
		}
	}

	return nil
}

func (s *memSubStore) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		if row.ID == subscriptionID {
			if row.CancelAtPeriodEnd {
				return false, nil
			}
			s.rows[i].CancelAtPeriodEnd = true
			s.rows[i].UpdatedAt = now
			return true, nil
		}
	}

	return false, sqldb.ErrDBNotFound
}

func (s *memSubStore) UpdateStatus(ctx context.Context, subscriptionID uuid.UUID, status substatus.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		if row.ID == subscriptionID {
			s.rows[i].Status = status
			s.rows[i].UpdatedAt = now
			return nil
		}
	}

	return sqldb.ErrDBNotFound
}

func (s *memSubStore) QueryElapsed(ctx context.Context, now time.Time) ([]subscriptionbus.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var elapsed []subscriptionbus.Subscription
	for _, row := range s.rows {
		if row.CancelAtPeriodEnd && (row.Status.Equal(substatus.Active) || row.Status.Equal(substatus.Trialing)) && !row.PeriodEnd.After(now) {
			elapsed = append(elapsed, row)
		}
	}

	return elapsed, nil
}

// currentRows counts live rows for the tenant so the single current row
// invariant can be asserted.
func (s *memSubStore) currentRows(tenantID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, row := range s.rows {
		if row.TenantID == tenantID && (row.Status.Equal(substatus.Active) || row.Status.Equal(substatus.Trialing)) {
			n++
		}
	}

	return n
}

// memGrantStore backs the grant rewrites the lifecycle drives.
type memGrantStore struct {
	mu     sync.Mutex
	grants map[uuid.UUID][]grantbus.Grant
}

func newMemGrantStore() *memGrantStore {
	return &memGrantStore{grants: make(map[uuid.UUID][]grantbus.Grant)}
}

func (s *memGrantStore) NewWithTx(tx sqldb.CommitRollbacker) (grantbus.Storer, error) {
	return s, nil
}

func (s *memGrantStore) ReplaceAll(ctx context.Context, tenantID uuid.UUID, grants []grantbus.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.grants[tenantID] = append([]grantbus.Grant(nil), grants...)
	return nil
}

func (s *memGrantStore) QueryByTenant(ctx context.Context, tenantID uuid.UUID) ([]grantbus.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]grantbus.Grant(nil), s.grants[tenantID]...), nil
}

func (s *memGrantStore) QueryByService(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType) (grantbus.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.grants[tenantID] {
		if g.Service.Equal(service) {
			return g, nil
		}
	}

	return grantbus.Grant{}, sqldb.ErrDBNotFound
}

func (s *memGrantStore) IncrementUsage(ctx context.Context, tenantID uuid.UUID, service servicetype.ServiceType, amount int) (bool, error) {
	return true, nil
}

func (s *memGrantStore) ResetExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// recordingAuditor captures events so tests can count side effects.
type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAuditor) Append(ctx context.Context, event audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, event)
}

func (a *recordingAuditor) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	var n int
	for _, e := range a.events {
		if e.Action == action {
			n++
		}
	}

	return n
}

// stubTenants records the last summary pushed to the tenant record.
type stubTenants struct {
	mu         sync.Mutex
	lastTier   tier.Tier
	lastStatus substatus.Status
}

func (s *stubTenants) UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTier = t
	s.lastStatus = status
	return nil
}

// stubGateway returns a deterministic checkout URL.
type stubGateway struct{}

func (stubGateway) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle, successURL string, cancelURL string) (string, error) {
	return fmt.Sprintf("https://checkout.test/session?tenant=%s&tier=%s", tenantID, t), nil
}

type fixture struct {
	core      *subscriptionbus.Core
	subStore  *memSubStore
	grantBus  *grantbus.Core
	grantData *memGrantStore
	auditor   *recordingAuditor
	tenants   *stubTenants
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	log := logger.New(os.Stdout, logger.LevelError, "TEST", nil)

	subStore := &memSubStore{}
	grantData := newMemGrantStore()
	grantBus := grantbus.NewCore(log, grantData)
	auditor := &recordingAuditor{}
	tenants := &stubTenants{}

	core := subscriptionbus.NewCore(log, subStore, grantBus, tenants, stubGateway{}, auditor)

	return fixture{
		core:      core,
		subStore:  subStore,
		grantBus:  grantBus,
		grantData: grantData,
		auditor:   auditor,
		tenants:   tenants,
	}
}

func Test_CreatePaidStartsTrialing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	assert.True(t, sub.Status.Equal(substatus.Trialing))
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), sub.PeriodEnd, time.Minute)
	assert.True(t, f.tenants.lastStatus.Equal(substatus.Trialing))

	grants, err := f.grantBus.QueryByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.NotEmpty(t, grants)
}

func Test_CreateFreeStartsActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Free,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	assert.True(t, sub.Status.Equal(substatus.Active))
	assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), sub.PeriodEnd, time.Minute)
}

func Test_SingleCurrentRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Free,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	_, err = f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	_, err = f.core.ConfirmPayment(ctx, tenantID, tier.Enterprise, billingcycle.Yearly)
	require.NoError(t, err)

	assert.Equal(t, 1, f.subStore.currentRows(tenantID))

	sub, err := f.core.Current(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, sub.Tier.Equal(tier.Enterprise))
	assert.True(t, sub.Cycle.Equal(billingcycle.Yearly))
}

func Test_CancelIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	first, err := f.core.Cancel(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, first.CancelAtPeriodEnd)

	second, err := f.core.Cancel(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, second.CancelAtPeriodEnd)

	assert.Equal(t, 1, f.auditor.count("subscription.cancelled"))
}

func Test_CancelWithoutSubscription(t *testing.T) {
	f := newFixture(t)

	_, err := f.core.Cancel(context.Background(), uuid.New())
	require.ErrorIs(t, err, subscriptionbus.ErrNotFound)
}

func Test_ReactivateActiveSamePlanNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	cs, err := f.core.Reactivate(ctx, subscriptionbus.ChangePlan{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)
	assert.True(t, cs.AlreadyActive)
	assert.Empty(t, cs.URL)
}

func Test_ReactivateCancelledOpensCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	_, err = f.core.Cancel(ctx, tenantID)
	require.NoError(t, err)

	cs, err := f.core.Reactivate(ctx, subscriptionbus.ChangePlan{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)
	assert.False(t, cs.AlreadyActive)
	assert.NotEmpty(t, cs.URL)
}

func Test_UpgradeDoesNotTouchState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Free,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	cs, err := f.core.Upgrade(ctx, subscriptionbus.ChangePlan{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cs.URL)

	// Until the payment confirmation lands the tenant stays on the old plan.
	sub, err := f.core.Current(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, sub.Tier.Equal(tier.Free))
}

func Test_ConfirmPaymentRetryIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	second, err := f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.auditor.count("subscription.payment_confirmed"))
	assert.Equal(t, 1, f.subStore.currentRows(tenantID))
}

func Test_ExpireTrialIfDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := f.core.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tenantID,
		Tier:     tier.Pro,
		Cycle:    billingcycle.Monthly,
	})
	require.NoError(t, err)

	// Trial window still open.
	moved, err := f.core.ExpireTrialIfDue(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, moved)

	// Rewind the period end so the trial has elapsed.
	require.NoError(t, f.subStore.UpdateStatus(ctx, sub.ID, substatus.Trialing, time.Now()))
	f.subStore.mu.Lock()
	for i := range f.subStore.rows {
		if f.subStore.rows[i].ID == sub.ID {
			f.subStore.rows[i].PeriodEnd = time.Now().Add(-time.Hour)
		}
	}
	f.subStore.mu.Unlock()

	moved, err = f.core.ExpireTrialIfDue(ctx, tenantID)
	require.NoError(t, err)
	assert.True(t, moved)

	// The PAST_DUE row is no longer a current subscription.
	_, err = f.core.Current(ctx, tenantID)
	require.ErrorIs(t, err, subscriptionbus.ErrNotFound)
	assert.True(t, f.tenants.lastStatus.Equal(substatus.PastDue))
	assert.Equal(t, 1, f.auditor.count("subscription.trial_expired"))

	// A second pass finds nothing TRIALING and reports no transition.
	moved, err = f.core.ExpireTrialIfDue(ctx, tenantID)
	require.NoError(t, err)
	assert.False(t, moved)
}

func Test_CloseElapsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := f.core.ConfirmPayment(ctx, tenantID, tier.Pro, billingcycle.Monthly)
	require.NoError(t, err)

	_, err = f.core.Cancel(ctx, tenantID)
	require.NoError(t, err)

	// Period has not ended yet.
	n, err := f.core.CloseElapsed(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.core.CloseElapsed(ctx, sub.PeriodEnd.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.core.Current(ctx, tenantID)
	require.ErrorIs(t, err, subscriptionbus.ErrNotFound)
	assert.True(t, f.tenants.lastStatus.Equal(substatus.Canceled))
	assert.Equal(t, 1, f.auditor.count("subscription.period_closed"))
}
