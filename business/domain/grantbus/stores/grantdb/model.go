package grantdb

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/types/servicetype"
)

// grantDB represents the structure of the service_grant table in the
// database.
type grantDB struct {
	TenantID      uuid.UUID `db:"tenant_id"`
	ServiceType   string    `db:"service_type"`
	Enabled       bool      `db:"enabled"`
	UsageLimit    *int      `db:"usage_limit"`
	UsageCount    int       `db:"usage_count"`
	PeriodResetAt time.Time `db:"period_reset_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func toDBGrant(bus grantbus.Grant) grantDB {
	return grantDB{
		TenantID:      bus.TenantID,
		ServiceType:   bus.Service.String(),
		Enabled:       bus.Enabled,
		UsageLimit:    bus.UsageLimit,
		UsageCount:    bus.UsageCount,
		PeriodResetAt: bus.PeriodResetAt,
		CreatedAt:     bus.CreatedAt,
		UpdatedAt:     bus.UpdatedAt,
	}
}

func toBusGrant(db grantDB) (grantbus.Grant, error) {
	svc, err := servicetype.Parse(db.ServiceType)
	if err != nil {
		return grantbus.Grant{}, fmt.Errorf("parse service type: %w", err)
	}

	return grantbus.Grant{
		TenantID:      db.TenantID,
		Service:       svc,
		Enabled:       db.Enabled,
		UsageLimit:    db.UsageLimit,
		UsageCount:    db.UsageCount,
		PeriodResetAt: db.PeriodResetAt,
		CreatedAt:     db.CreatedAt,
		UpdatedAt:     db.UpdatedAt,
	}, nil
}

func toBusGrants(dbs []grantDB) ([]grantbus.Grant, error) {
	bus := make([]grantbus.Grant, len(dbs))
	for i, db := range dbs {
		var err error
		bus[i], err = toBusGrant(db)
		if err != nil {
			return nil, err
		}
	}
	return bus, nil
}
