package policybus_test

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/policybus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) *policybus.Core {
	t.Helper()

	log := logger.New(os.Stdout, logger.LevelError, "TEST", nil)

	core, err := policybus.NewCore(log, policybus.DefaultRules())
	require.NoError(t, err)

	return core
}

func profile(tr tier.Tier, status substatus.Status, trialEndsAt *time.Time) tenantbus.Profile {
	tenantID := uuid.New()

	return tenantbus.Profile{
		Tenant: tenantbus.Tenant{
			ID:          tenantID,
			Tier:        tr,
			Status:      status,
			TrialEndsAt: trialEndsAt,
			Active:      true,
		},
		Grants: grantbus.TierGrants(tenantID, tr, time.Now()),
	}
}

func Test_CorePathsAlwaysAllowed(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	paths := []string{"/trips", "/bookings/123", "/profile", "/support/tickets", "/billing", "/billing/upgrade", "/v1/subscription/upgrade", "/v1/subscription/cancel", "/v1/webhooks/payment"}
	statuses := []substatus.Status{substatus.Active, substatus.Trialing, substatus.PastDue, substatus.Canceled}

	for _, status := range statuses {
		for _, path := range paths {
			d := core.Evaluate(profile(tier.Pro, status, nil), path, now)
			assert.True(t, d.Allowed, "path %s should be allowed with status %s", path, status)
		}
	}
}

func Test_CorePathSegmentBoundary(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	// /tripsters is not under /trips, so a delinquent paid tenant gets the
	// standing denial.
	d := core.Evaluate(profile(tier.Pro, substatus.PastDue, nil), "/tripsters", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.SubscriptionInactive))
}

func Test_PaidTierBadStandingDenied(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	for _, status := range []substatus.Status{substatus.PastDue, substatus.Canceled} {
		d := core.Evaluate(profile(tier.Pro, status, nil), "/dashboard/analytics", now)
		assert.False(t, d.Allowed, "status %s", status)
		assert.True(t, d.Reason.Equal(denyreason.SubscriptionInactive))
		assert.False(t, d.HasService)
		assert.Equal(t, "/billing/upgrade?reason=subscription_inactive", d.Redirect)
	}
}

func Test_FreeTierExemptFromStanding(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	// A free tenant with a dead subscription status still gets grant-based
	// answers, not a standing denial.
	d := core.Evaluate(profile(tier.Free, substatus.Canceled, nil), "/dashboard/analytics", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.NotEnabled))
	assert.True(t, d.HasService)
	assert.True(t, d.Service.Equal(servicetype.Analytics))
}

func Test_TrialStanding(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	d := core.Evaluate(profile(tier.Pro, substatus.Trialing, &future), "/dashboard/analytics", now)
	assert.True(t, d.Allowed)

	d = core.Evaluate(profile(tier.Pro, substatus.Trialing, &past), "/dashboard/analytics", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.SubscriptionInactive))
}

func Test_FreeTierServiceNotEnabled(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	d := core.Evaluate(profile(tier.Free, substatus.Active, nil), "/dashboard/analytics", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.NotEnabled))
	assert.True(t, d.Service.Equal(servicetype.Analytics))
	assert.Contains(t, d.Redirect, "reason=not_enabled")
	assert.Contains(t, d.Redirect, "service=ANALYTICS")
}

func Test_MissingGrantRowTierInsufficient(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	p := profile(tier.Pro, substatus.Active, nil)
	p.Grants = nil

	d := core.Evaluate(p, "/dashboard/analytics", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.TierInsufficient))
}

func Test_UsageExceededRemapped(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	p := profile(tier.Basic, substatus.Active, nil)
	for i, g := range p.Grants {
		if g.Service.Equal(servicetype.Analytics) {
			p.Grants[i].UsageCount = *g.UsageLimit
		}
	}

	d := core.Evaluate(p, "/dashboard/analytics", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Reason.Equal(denyreason.UsageLimitExceeded))
}

func Test_EnterprisePathsAllowed(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	p := profile(tier.Enterprise, substatus.Active, nil)

	for _, path := range []string{"/api/reports", "/api/reports/daily", "/api/v2/trips", "/dashboard/analytics"} {
		d := core.Evaluate(p, path, now)
		assert.True(t, d.Allowed, "path %s", path)
	}
}

func Test_FirstMatchWins(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	// Pro has ADVANCED_REPORTS capped and API_ACCESS capped. Exhaust the
	// reports grant only: /api/reports must hit the reports rule, not /api.
	p := profile(tier.Pro, substatus.Active, nil)
	for i, g := range p.Grants {
		if g.Service.Equal(servicetype.AdvancedReports) {
			p.Grants[i].UsageCount = *g.UsageLimit
		}
	}

	d := core.Evaluate(p, "/api/reports", now)
	assert.False(t, d.Allowed)
	assert.True(t, d.Service.Equal(servicetype.AdvancedReports))

	d = core.Evaluate(p, "/api/trips", now)
	assert.True(t, d.Allowed)
}

func Test_UnmatchedPathAllowed(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	d := core.Evaluate(profile(tier.Free, substatus.Active, nil), "/settings", now)
	assert.True(t, d.Allowed)
}

func Test_ValidateRules(t *testing.T) {
	log := logger.New(os.Stdout, logger.LevelError, "TEST", nil)

	_, err := policybus.NewCore(log, []policybus.Rule{
		{Prefix: "/api", Service: servicetype.APIAccess},
		{Prefix: "/api", Service: servicetype.Analytics},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = policybus.NewCore(log, []policybus.Rule{
		{Prefix: "/api", Service: servicetype.APIAccess},
		{Prefix: "/api/reports", Service: servicetype.AdvancedReports},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")

	// /apifoo is not shadowed by /api: prefixes bind on segment boundaries.
	_, err = policybus.NewCore(log, []policybus.Rule{
		{Prefix: "/api", Service: servicetype.APIAccess},
		{Prefix: "/apifoo", Service: servicetype.Analytics},
	})
	require.NoError(t, err)
}

func Test_IsCorePath(t *testing.T) {
	assert.True(t, policybus.IsCorePath("/billing/upgrade"))
	assert.True(t, policybus.IsCorePath("/trips"))
	assert.True(t, policybus.IsCorePath("/v1/subscription"))
	assert.True(t, policybus.IsCorePath("/v1/webhooks/payment"))
	assert.False(t, policybus.IsCorePath("/dashboard/analytics"))
	assert.False(t, policybus.IsCorePath("/tripsters"))
	assert.False(t, policybus.IsCorePath("/v1/bookings"))
}

func Test_DelinquentTenantReachesBillingAPI(t *testing.T) {
	core := newTestCore(t)
	now := time.Now()

	// The standing denial must never cut off the surface that clears the
	// delinquency: a PAST_DUE or CANCELLED tenant can still manage the
	// subscription and the payment webhook can still land.
	for _, status := range []substatus.Status{substatus.PastDue, substatus.Canceled} {
		p := profile(tier.Pro, status, nil)

		for _, path := range []string{"/v1/subscription", "/v1/subscription/upgrade", "/v1/subscription/reactivate", "/v1/subscription/cancel", "/v1/webhooks/payment"} {
			d := core.Evaluate(p, path, now)
			assert.True(t, d.Allowed, "path %s status %s", path, status)
		}
	}
}
