package tenantbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/types/domainname"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/business/types/tier"
)

// Limits represents the plan limits carried on the tenant record.
type Limits struct {
	MaxUsers            int
	MaxOperators        int
	MaxBookingsPerMonth int
}

// Tenant represents a client organization operating its own branded
// instance of the platform. Tenants are never hard deleted, only disabled.
type Tenant struct {
	ID          uuid.UUID
	Name        name.Name
	Slug        slug.Slug
	Domain      domainname.Null
	Active      bool
	Tier        tier.Tier
	Status      substatus.Status
	TrialEndsAt *time.Time
	Limits      Limits
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

/// Profile aggregates everything the request path needs about a tenant:
// the record itself, the current subscription row if one exists, and every
// service grant. Stores load it in a single round trip.
type Profile struct {
	Tenant       Tenant
	Subscription *subscriptionbus.Subscription
	Grants       []grantbus.Grant
}

// Via identifies which addressing scheme matched during resolution.
type Via int

// The set of addressing schemes, in resolution order.
const (
	ViaDomain Via = iota + 1
	ViaSubdomain
	ViaPath
)

// Resolution is the outcome of resolving a request's addressing info.
type Resolution struct {
	Profile Profile
	Via     Via
}

// NewTenant contains information needed to create a new tenant.
type NewTenant struct {
	Name   name.Name
	Slug   slug.Slug
	Domain domainname.Null
	Tier   tier.Tier
}

// UpdateTenant contains information needed to update a tenant.
type UpdateTenant struct {
	Name   *name.Name
	Domain *domainname.Null
	Active *bool
	Limits *Limits
}

// DefaultLimits returns the plan limits a tier starts with.
func DefaultLimits(t tier.Tier) Limits {
	switch t.String() {
	case tier.Basic.String():
		return Limits{MaxUsers: 25, MaxOperators: 5, MaxBookingsPerMonth: 1000}
	case tier.Pro.String():
		return Limits{MaxUsers: 100, MaxOperators: 25, MaxBookingsPerMonth: 10000}
	case tier.Enterprise.String():
		return Limits{MaxUsers: 1000, MaxOperators: 250, MaxBookingsPerMonth: 100000}
	}

	return Limits{MaxUsers: 5, MaxOperators: 1, MaxBookingsPerMonth: 100}
}
