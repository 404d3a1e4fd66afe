package subscriptiondb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
)

// subscriptionDB represents the structure of the tenant_subscription table
// in the database.
type subscriptionDB struct {
	ID                uuid.UUID `db:"id"`
	TenantID          uuid.UUID `db:"tenant_id"`
	Tier              string    `db:"tier"`
	BillingCycle      string    `db:"billing_cycle"`
	Status            string    `db:"status"`
	CancelAtPeriodEnd bool      `db:"cancel_at_period_end"`
	PeriodStart       time.Time `db:"period_start"`
	PeriodEnd         time.Time `db:"period_end"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func toDBSubscription(bus subscriptionbus.Subscription) subscriptionDB {
	return subscriptionDB{
		ID:                bus.ID,
		TenantID:          bus.TenantID,
		Tier:              bus.Tier.String(),
		BillingCycle:      bus.Cycle.String(),
		Status:            bus.Status.String(),
		CancelAtPeriodEnd: bus.CancelAtPeriodEnd,
		PeriodStart:       bus.PeriodStart,
		PeriodEnd:         bus.PeriodEnd,
		CreatedAt:         bus.CreatedAt,
		UpdatedAt:         bus.UpdatedAt,
	}
}

func toBusSubscription(db subscriptionDB) (subscriptionbus.Subscription, error) {
	t, err := tier.Parse(db.Tier)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse tier: %w", err)
	}

	cycle, err := billingcycle.Parse(db.BillingCycle)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse billing cycle: %w", err)
	}

	status, err := substatus.Parse(db.Status)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse status: %w", err)
	}

	return subscriptionbus.Subscription{
		ID:                db.ID,
		TenantID:          db.TenantID,
		Tier:              t,
		Cycle:             cycle,
		Status:            status,
		CancelAtPeriodEnd: db.CancelAtPeriodEnd,
		PeriodStart:       db.PeriodStart,
		PeriodEnd:         db.PeriodEnd,
		CreatedAt:         db.CreatedAt,
		UpdatedAt:         db.UpdatedAt,
	}, nil
}

func toBusSubscriptions(dbs []subscriptionDB) ([]subscriptionbus.Subscription, error) {
	bus := make([]subscriptionbus.Subscription, len(dbs))
	for i, db := range dbs {
		var err error
		bus[i], err = toBusSubscription(db)
		if err != nil {
			return nil, err
		}
	}
	return bus, nil
}
