// Package subscriptionbus owns the subscription lifecycle: tier and status
// transitions, billing period bookkeeping, and the grant provisioning those
// transitions drive.
package subscriptionbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/sdk/audit"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/resource"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/ridewave/ridewave/foundation/otel"
)

// ErrNotFound is returned when a tenant has no current subscription.
var ErrNotFound = errors.New("subscription not found")

// trialPeriod is how long a paid tier runs before a payment capture is
// required.
const trialPeriod = 14 * 24 * time.Hour

// Storer defines the behavior required by the subscriptionbus to interact
// with the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, sub Subscription) error

	// QueryCurrent returns the single ACTIVE or TRIALING row for the tenant.
	QueryCurrent(ctx context.Context, tenantID uuid.UUID) (Subscription, error)

	// CloseCurrent moves any ACTIVE or TRIALING row for the tenant to the
	// specified terminal status.
	CloseCurrent(ctx context.Context, tenantID uuid.UUID, status substatus.Status, now time.Time) error

	// SetCancelAtPeriodEnd flags the row for end of period cancellation and
	// reports whether the flag was newly set. A row already flagged yields
	// false, which is how repeated cancels stay free of side effects.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID uuid.UUID, now time.Time) (bool, error)

	UpdateStatus(ctx context.Context, subscriptionID uuid.UUID, status substatus.Status, now time.Time) error

	// QueryElapsed returns rows flagged for cancellation whose period end
	// has passed.
	QueryElapsed(ctx context.Context, now time.Time) ([]Subscription, error)
}

// TenantUpdater defines the behavior required to keep the tenant's
// denormalized subscription summary in step with the ledger.
type TenantUpdater interface {
	UpdateSubscriptionSummary(ctx context.Context, tenantID uuid.UUID, t tier.Tier, status substatus.Status, trialEndsAt *time.Time) error
}

// PaymentGateway defines the behavior required to open an external checkout
// session. The webhook that confirms payment is the only trigger that
// finalizes a plan change.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle, successURL string, cancelURL string) (string, error)
}

// Core manages the set of APIs for subscription access.
type Core struct {
	log     *logger.Logger
	storer  Storer
	grants  *grantbus.Core
	tenants TenantUpdater
	gateway PaymentGateway
	auditor audit.Auditor
}

// NewCore constructs a core for subscription api access.
func NewCore(log *logger.Logger, storer Storer, grants *grantbus.Core, tenants TenantUpdater, gateway PaymentGateway, auditor audit.Auditor) *Core {
	return &Core{
		log:     log,
		storer:  storer,
		grants:  grants,
		tenants: tenants,
		gateway: gateway,
		auditor: auditor,
	}
}

// NewWithTx constructs a new Core value replacing the storer and grant
// access with values that are currently inside a transaction. The tenant
// summary is denormalized data and is updated outside the transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	grants, err := c.grants.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	core := Core{
		log:     c.log,
		storer:  storer,
		grants:  grants,
		tenants: c.tenants,
		gateway: c.gateway,
		auditor: c.auditor,
	}

	return &core, nil
}

// Create opens a subscription for the tenant. Paid tiers start TRIALING
// with a 14 day trial; FREE starts ACTIVE. Any prior ACTIVE or TRIALING row
// is closed first so the single current row invariant holds.
func (c *Core) Create(ctx context.Context, ns NewSubscription) (Subscription, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.create")
	defer span.End()

	now := time.Now()

	status := substatus.Active
	periodEnd := ns.Cycle.PeriodEnd(now)
	var trialEndsAt *time.Time

	if ns.Tier.IsPaid() {
		status = substatus.Trialing
		end := now.Add(trialPeriod)
		trialEndsAt = &end
		periodEnd = end
	}

	if err := c.storer.CloseCurrent(ctx, ns.TenantID, substatus.Canceled, now); err != nil {
		return Subscription{}, fmt.Errorf("closeCurrent: tenantID[%s]: %w", ns.TenantID, err)
	}

	sub := Subscription{
		ID:          uuid.New(),
		TenantID:    ns.TenantID,
		Tier:        ns.Tier,
		Cycle:       ns.Cycle,
		Status:      status,
		PeriodStart: now,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.storer.Create(ctx, sub); err != nil {
		return Subscription{}, fmt.Errorf("create: tenantID[%s]: %w", ns.TenantID, err)
	}

	if _, err := c.grants.EnableTierServices(ctx, ns.TenantID, ns.Tier); err != nil {
		return Subscription{}, fmt.Errorf("enableTierServices: tenantID[%s]: %w", ns.TenantID, err)
	}

	if err := c.tenants.UpdateSubscriptionSummary(ctx, ns.TenantID, ns.Tier, status, trialEndsAt); err != nil {
		return Subscription{}, fmt.Errorf("updateSubscriptionSummary: tenantID[%s]: %w", ns.TenantID, err)
	}

	c.auditor.Append(ctx, audit.Event{
		TenantID: ns.TenantID,
		Action:   "subscription.created",
		Resource: resource.Subscription,
		Metadata: map[string]any{"tier": ns.Tier.String(), "cycle": ns.Cycle.String(), "status": status.String()},
	})

	return sub, nil
}

// Current returns the tenant's single ACTIVE or TRIALING subscription.
func (c *Core) Current(ctx context.Context, tenantID uuid.UUID) (Subscription, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.current")
	defer span.End()

	sub, err := c.storer.QueryCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("queryCurrent: tenantID[%s]: %w", tenantID, err)
	}

	return sub, nil
}

// Upgrade opens a checkout session for a higher tier. State and grants are
// untouched until ConfirmPayment lands.
func (c *Core) Upgrade(ctx context.Context, cp ChangePlan) (CheckoutSession, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.upgrade")
	defer span.End()

	return c.checkout(ctx, cp)
}

// Downgrade opens a checkout session for a lower tier. Mechanically
// identical to Upgrade.
func (c *Core) Downgrade(ctx context.Context, cp ChangePlan) (CheckoutSession, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.downgrade")
	defer span.End()

	return c.checkout(ctx, cp)
}

// Reactivate opens a checkout session from a cancelled or near expiry
// subscription. Reactivating a subscription that is already active on the
// same plan is a successful no-op so webhook and client retries stay safe.
func (c *Core) Reactivate(ctx context.Context, cp ChangePlan) (CheckoutSession, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.reactivate")
	defer span.End()

	current, err := c.storer.QueryCurrent(ctx, cp.TenantID)
	switch {
	case err == nil:
		if current.Status.Equal(substatus.Active) && current.Tier.Equal(cp.Tier) && current.Cycle.Equal(cp.Cycle) && !current.CancelAtPeriodEnd {
			return CheckoutSession{Tier: cp.Tier, Cycle: cp.Cycle, AlreadyActive: true}, nil
		}

	case errors.Is(err, sqldb.ErrDBNotFound):

	default:
		return CheckoutSession{}, fmt.Errorf("queryCurrent: tenantID[%s]: %w", cp.TenantID, err)
	}

	return c.checkout(ctx, cp)
}

func (c *Core) checkout(ctx context.Context, cp ChangePlan) (CheckoutSession, error) {
	url, err := c.gateway.CreateCheckoutSession(ctx, cp.TenantID, cp.Tier, cp.Cycle, cp.SuccessURL, cp.CancelURL)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("createCheckoutSession: tenantID[%s] tier[%s]: %w", cp.TenantID, cp.Tier, err)
	}

	return CheckoutSession{URL: url, Tier: cp.Tier, Cycle: cp.Cycle}, nil
}

// ConfirmPayment is the webhook entry point that finalizes a plan change:
// it closes the prior row, opens an ACTIVE row on the confirmed plan and
// rewrites the tenant's grants. A retried confirmation for a plan that is
// already current returns the existing row unchanged.
func (c *Core) ConfirmPayment(ctx context.Context, tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle) (Subscription, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.confirmPayment")
	defer span.End()

	now := time.Now()

	current, err := c.storer.QueryCurrent(ctx, tenantID)
	switch {
	case err == nil:
		if current.Status.Equal(substatus.Active) && current.Tier.Equal(t) && current.Cycle.Equal(cycle) && !current.CancelAtPeriodEnd {
			return current, nil
		}

	case errors.Is(err, sqldb.ErrDBNotFound):

	default:
		return Subscription{}, fmt.Errorf("queryCurrent: tenantID[%s]: %w", tenantID, err)
	}

	if err := c.storer.CloseCurrent(ctx, tenantID, substatus.Canceled, now); err != nil {
		return Subscription{}, fmt.Errorf("closeCurrent: tenantID[%s]: %w", tenantID, err)
	}

	sub := Subscription{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Tier:        t,
		Cycle:       cycle,
		Status:      substatus.Active,
		PeriodStart: now,
		PeriodEnd:   cycle.PeriodEnd(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.storer.Create(ctx, sub); err != nil {
		return Subscription{}, fmt.Errorf("create: tenantID[%s]: %w", tenantID, err)
	}

	if _, err := c.grants.EnableTierServices(ctx, tenantID, t); err != nil {
		return Subscription{}, fmt.Errorf("enableTierServices: tenantID[%s]: %w", tenantID, err)
	}

	if err := c.tenants.UpdateSubscriptionSummary(ctx, tenantID, t, substatus.Active, nil); err != nil {
		return Subscription{}, fmt.Errorf("updateSubscriptionSummary: tenantID[%s]: %w", tenantID, err)
	}

	c.auditor.Append(ctx, audit.Event{
		TenantID: tenantID,
		Action:   "subscription.payment_confirmed",
		Resource: resource.Subscription,
		Metadata: map[string]any{"tier": t.String(), "cycle": cycle.String()},
	})

	return sub, nil
}

// Cancel flags the current subscription for end of period cancellation.
// Access is not revoked until the period ends. Repeated cancels are no-ops
// and produce no further audit events.
func (c *Core) Cancel(ctx context.Context, tenantID uuid.UUID) (Subscription, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.cancel")
	defer span.End()

	now := time.Now()

	sub, err := c.storer.QueryCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("queryCurrent: tenantID[%s]: %w", tenantID, err)
	}

	flagged, err := c.storer.SetCancelAtPeriodEnd(ctx, sub.ID, now)
	if err != nil {
		return Subscription{}, fmt.Errorf("setCancelAtPeriodEnd: subscriptionID[%s]: %w", sub.ID, err)
	}

	if flagged {
		sub.CancelAtPeriodEnd = true
		sub.UpdatedAt = now

		c.auditor.Append(ctx, audit.Event{
			TenantID: tenantID,
			Action:   "subscription.cancelled",
			Resource: resource.Subscription,
			Metadata: map[string]any{"tier": sub.Tier.String(), "periodEnd": sub.PeriodEnd},
		})
	}

	return sub, nil
}

// ExpireTrialIfDue moves a TRIALING subscription whose trial window has
// passed to PAST_DUE. Called lazily from the request path and by the
// scheduler; reports whether a transition happened.
func (c *Core) ExpireTrialIfDue(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.expireTrialIfDue")
	defer span.End()

	now := time.Now()

	sub, err := c.storer.QueryCurrent(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("queryCurrent: tenantID[%s]: %w", tenantID, err)
	}

	if !sub.Status.Equal(substatus.Trialing) || now.Before(sub.PeriodEnd) {
		return false, nil
	}

	if err := c.storer.UpdateStatus(ctx, sub.ID, substatus.PastDue, now); err != nil {
		return false, fmt.Errorf("updateStatus: subscriptionID[%s]: %w", sub.ID, err)
	}

	if err := c.tenants.UpdateSubscriptionSummary(ctx, tenantID, sub.Tier, substatus.PastDue, nil); err != nil {
		return false, fmt.Errorf("updateSubscriptionSummary: tenantID[%s]: %w", tenantID, err)
	}

	c.auditor.Append(ctx, audit.Event{
		TenantID: tenantID,
		Action:   "subscription.trial_expired",
		Resource: resource.Subscription,
		Metadata: map[string]any{"tier": sub.Tier.String()},
	})

	return true, nil
}

// CloseElapsed finalizes subscriptions flagged for cancellation whose
// period end has passed. Driven by the scheduler.
func (c *Core) CloseElapsed(ctx context.Context, now time.Time) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.subscriptionbus.closeElapsed")
	defer span.End()

	subs, err := c.storer.QueryElapsed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("queryElapsed: %w", err)
	}

	for _, sub := range subs {
		if err := c.storer.UpdateStatus(ctx, sub.ID, substatus.Canceled, now); err != nil {
			return 0, fmt.Errorf("updateStatus: subscriptionID[%s]: %w", sub.ID, err)
		}

		if err := c.tenants.UpdateSubscriptionSummary(ctx, sub.TenantID, sub.Tier, substatus.Canceled, nil); err != nil {
			return 0, fmt.Errorf("updateSubscriptionSummary: tenantID[%s]: %w", sub.TenantID, err)
		}

		c.auditor.Append(ctx, audit.Event{
			TenantID: sub.TenantID,
			Action:   "subscription.period_closed",
			Resource: resource.Subscription,
			Metadata: map[string]any{"tier": sub.Tier.String()},
		})
	}

	return len(subs), nil
}
