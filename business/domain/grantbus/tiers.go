package grantbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/servicetype"
	"github.com/ridewave/ridewave/business/types/tier"
)

// serviceSpec describes one service entry of a tier.
type serviceSpec struct {
	enabled bool
	limit   *int
}

func capped(n int) serviceSpec { return serviceSpec{enabled: true, limit: &n} }
func uncapped() serviceSpec    { return serviceSpec{enabled: true} }
func disabled() serviceSpec    { return serviceSpec{} }

// tierTable is the single source of truth for what each tier grants. Every
// tier lists every service, so a downgrade disables by rewriting rows, not
// by deleting them.
var tierTable = map[string]map[string]serviceSpec{
	tier.Free.String(): {
		servicetype.Analytics.String():       disabled(),
		servicetype.CustomBranding.String():  disabled(),
		servicetype.EmailMarketing.String():  disabled(),
		servicetype.AdvancedReports.String(): disabled(),
		servicetype.APIAccess.String():       disabled(),
	},
	tier.Basic.String(): {
		servicetype.Analytics.String():       capped(1000),
		servicetype.CustomBranding.String():  uncapped(),
		servicetype.EmailMarketing.String():  disabled(),
		servicetype.AdvancedReports.String(): disabled(),
		servicetype.APIAccess.String():       disabled(),
	},
	tier.Pro.String(): {
		servicetype.Analytics.String():       uncapped(),
		servicetype.CustomBranding.String():  uncapped(),
		servicetype.EmailMarketing.String():  capped(5000),
		servicetype.AdvancedReports.String(): capped(100),
		servicetype.APIAccess.String():       capped(10000),
	},
	tier.Enterprise.String(): {
		servicetype.Analytics.String():       uncapped(),
		servicetype.CustomBranding.String():  uncapped(),
		servicetype.EmailMarketing.String():  uncapped(),
		servicetype.AdvancedReports.String(): uncapped(),
		servicetype.APIAccess.String():       uncapped(),
	},
}

// TierGrants builds the full grant set a tier provisions for a tenant. The
// result is ordered by service declaration order so rewrites stay
// deterministic.
func TierGrants(tenantID uuid.UUID, t tier.Tier, now time.Time) []Grant {
	specs := tierTable[t.String()]

	resetAt := now.AddDate(0, 1, 0)

	var grants []Grant
	for _, svc := range servicetype.All() {
		spec := specs[svc.String()]

		var limit *int
		if spec.limit != nil {
			v := *spec.limit
			limit = &v
		}

		grants = append(grants, Grant{
			TenantID:      tenantID,
			Service:       svc,
			Enabled:       spec.enabled,
			UsageLimit:    limit,
			UsageCount:    0,
			PeriodResetAt: resetAt,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return grants
}
