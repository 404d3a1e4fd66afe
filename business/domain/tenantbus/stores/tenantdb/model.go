package tenantdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/domainname"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
)

// tenantDB represents the structure of the tenant table in the database.
type tenantDB struct {
	ID                  uuid.UUID      `db:"tenant_id"`
	Name                string         `db:"name"`
	Slug                string         `db:"slug"`
	Domain              sql.NullString `db:"domain"`
	Active              bool           `db:"active"`
	Tier                string         `db:"tier"`
	Status              string         `db:"status"`
	TrialEndsAt         sql.NullTime   `db:"trial_ends_at"`
	MaxUsers            int            `db:"max_users"`
	MaxOperators        int            `db:"max_operators"`
	MaxBookingsPerMonth int            `db:"max_bookings_per_month"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// profileDB carries the tenant row plus its subscription and grants as JSON
// documents produced by the single round trip profile query.
type profileDB struct {
	tenantDB
	Subscription []byte `db:"subscription"`
	Grants       []byte `db:"grants"`
}

type subscriptionJSON struct {
	ID                uuid.UUID `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	Tier              string    `json:"tier"`
	BillingCycle      string    `json:"billing_cycle"`
	Status            string    `json:"status"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type grantJSON struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	ServiceType   string    `json:"service_type"`
	Enabled       bool      `json:"enabled"`
	UsageLimit    *int      `json:"usage_limit"`
	UsageCount    int       `json:"usage_count"`
	PeriodResetAt time.Time `json:"period_reset_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDBTenant(bus tenantbus.Tenant) tenantDB {
	var trialEndsAt sql.NullTime
	if bus.TrialEndsAt != nil {
		trialEndsAt = sql.NullTime{Time: *bus.TrialEndsAt, Valid: true}
	}

	return tenantDB{
		ID:                  bus.ID,
		Name:                bus.Name.String(),
		Slug:                bus.Slug.String(),
		Domain:              domainname.ToSQLNullString(bus.Domain),
		Active:              bus.Active,
		Tier:                bus.Tier.String(),
		Status:              bus.Status.String(),
		TrialEndsAt:         trialEndsAt,
		MaxUsers:            bus.Limits.MaxUsers,
		MaxOperators:        bus.Limits.MaxOperators,
		MaxBookingsPerMonth: bus.Limits.MaxBookingsPerMonth,
		CreatedAt:           bus.CreatedAt,
		UpdatedAt:           bus.UpdatedAt,
	}
}

func toBusTenant(db tenantDB) (tenantbus.Tenant, error) {
	nme, err := name.Parse(db.Name)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse name: %w", err)
	}

	slg, err := slug.Parse(db.Slug)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse slug: %w", err)
	}

	t, err := tier.Parse(db.Tier)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse tier: %w", err)
	}

	status, err := substatus.Parse(db.Status)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse status: %w", err)
	}

	var trialEndsAt *time.Time
	if db.TrialEndsAt.Valid {
		trialEndsAt = &db.TrialEndsAt.Time
	}

	return tenantbus.Tenant{
		ID:          db.ID,
		Name:        nme,
		Slug:        slg,
		Domain:      domainname.FromSQLNullString(db.Domain),
		Active:      db.Active,
		Tier:        t,
		Status:      status,
		TrialEndsAt: trialEndsAt,
		Limits: tenantbus.Limits{
			MaxUsers:            db.MaxUsers,
			MaxOperators:        db.MaxOperators,
			MaxBookingsPerMonth: db.MaxBookingsPerMonth,
		},
		CreatedAt: db.CreatedAt,
		UpdatedAt: db.UpdatedAt,
	}, nil
}

func toBusTenants(dbs []tenantDB) ([]tenantbus.Tenant, error) {
	bus := make([]tenantbus.Tenant, len(dbs))
	for i, db := range dbs {
		var err error
		bus[i], err = toBusTenant(db)
		if err != nil {
			return nil, err
		}
	}
	return bus, nil
}

func toBusProfile(db profileDB) (tenantbus.Profile, error) {
	t, err := toBusTenant(db.tenantDB)
	if err != nil {
		return tenantbus.Profile{}, err
	}

	p := tenantbus.Profile{
		Tenant: t,
	}

	if len(db.Subscription) > 0 && string(db.Subscription) != "null" {
		var sj subscriptionJSON
		if err := json.Unmarshal(db.Subscription, &sj); err != nil {
			return tenantbus.Profile{}, fmt.Errorf("unmarshal subscription: %w", err)
		}

		sub, err := toBusProfileSubscription(sj)
		if err != nil {
			return tenantbus.Profile{}, err
		}
		p.Subscription = &sub
	}

	if len(db.Grants) > 0 {
		var gjs []grantJSON
		if err := json.Unmarshal(db.Grants, &gjs); err != nil {
			return tenantbus.Profile{}, fmt.Errorf("unmarshal grants: %w", err)
		}

		grants := make([]grantbus.Grant, len(gjs))
		for i, gj := range gjs {
			grants[i], err = toBusProfileGrant(gj)
			if err != nil {
				return tenantbus.Profile{}, err
			}
		}
		p.Grants = grants
	}

	return p, nil
}

func toBusProfileSubscription(sj subscriptionJSON) (subscriptionbus.Subscription, error) {
	t, err := tier.Parse(sj.Tier)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse tier: %w", err)
	}

	cycle, err := billingcycle.Parse(sj.BillingCycle)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse billing cycle: %w", err)
	}

	status, err := substatus.Parse(sj.Status)
	if err != nil {
		return subscriptionbus.Subscription{}, fmt.Errorf("parse status: %w", err)
	}

	return subscriptionbus.Subscription{
		ID:                sj.ID,
		TenantID:          sj.TenantID,
		Tier:              t,
		Cycle:             cycle,
		Status:            status,
		CancelAtPeriodEnd: sj.CancelAtPeriodEnd,
		PeriodStart:       sj.PeriodStart,
		PeriodEnd:         sj.PeriodEnd,
		CreatedAt:         sj.CreatedAt,
		UpdatedAt:         sj.UpdatedAt,
	}, nil
}

func toBusProfileGrant(gj grantJSON) (grantbus.Grant, error) {
	svc, err := servicetype.Parse(gj.ServiceType)
	if err != nil {
		return grantbus.Grant{}, fmt.Errorf("parse service type: %w", err)
	}

	return grantbus.Grant{
		TenantID:      gj.TenantID,
		Service:       svc,
		Enabled:       gj.Enabled,
		UsageLimit:    gj.UsageLimit,
		UsageCount:    gj.UsageCount,
		PeriodResetAt: gj.PeriodResetAt,
		CreatedAt:     gj.CreatedAt,
		UpdatedAt:     gj.UpdatedAt,
	}, nil
}
