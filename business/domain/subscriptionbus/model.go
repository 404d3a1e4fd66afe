package subscriptionbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
)

// Subscription represents one row of the per-tenant billing period ledger.
type Subscription struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	Tier              tier.Tier
	Cycle             billingcycle.Cycle
	Status            substatus.Status
	CancelAtPeriodEnd bool
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewSubscription contains the information needed to open a subscription.
type NewSubscription struct {
	TenantID uuid.UUID
	Tier     tier.Tier
	Cycle    billingcycle.Cycle
}

// ChangePlan contains the information needed to start a checkout for a plan
// change.
type ChangePlan struct {
	TenantID   uuid.UUID
	Tier       tier.Tier
	Cycle      billingcycle.Cycle
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the outcome of a plan change request. Nothing about the
// subscription changes until the payment confirmation lands.
type CheckoutSession struct {
	URL           string
	Tier          tier.Tier
	Cycle         billingcycle.Cycle
	AlreadyActive bool
}
