package tenantbus

import (
	"time"

	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/tier"
)

type QueryFilter struct {
	Name           *name.Name
	Tier           *tier.Tier
	Active         *bool
	StartCreatedAt *time.Time
	EndCreatedAt   *time.Time
}
