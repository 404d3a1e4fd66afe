package grantbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/servicetype"
)

// Grant represents a tenant's enabled/disabled status and consumption
// counter for one gated service.
type Grant struct {
	TenantID      uuid.UUID
	Service       servicetype.ServiceType
	Enabled       bool
	UsageLimit    *int
	UsageCount    int
	PeriodResetAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining returns how much usage is left on the grant. The second return
// is false when the grant is uncapped.
func (g Grant) Remaining() (int, bool) {
	if g.UsageLimit == nil {
		return 0, false
	}

	return *g.UsageLimit - g.UsageCount, true
}

// Access is the answer to a single access question against the registry.
type Access struct {
	Allowed   bool
	Reason    denyreason.Reason
	Remaining *int
}
