package policybus

import (
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/servicetype"
)

// Rule binds a path prefix to the service a request under that prefix
// requires. Rules live in an ordered table; the first match wins.
type Rule struct {
	Prefix  string
	Service servicetype.ServiceType
}

// Decision is the single allow/deny outcome of evaluating a request
// against a tenant profile.
type Decision struct {
	Allowed    bool
	Reason     denyreason.Reason
	Service    servicetype.ServiceType
	HasService bool
	Redirect   string
}

// DefaultRules returns the ordered prefix table the platform ships with.
// Order is a contract: /api/reports must come before /api or the reports
// rule could never match.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/dashboard/analytics", Service: servicetype.Analytics},
		{Prefix: "/dashboard/branding", Service: servicetype.CustomBranding},
		{Prefix: "/dashboard/marketing", Service: servicetype.EmailMarketing},
		{Prefix: "/dashboard/reports", Service: servicetype.AdvancedReports},
		{Prefix: "/api/reports", Service: servicetype.AdvancedReports},
		{Prefix: "/api", Service: servicetype.APIAccess},
	}
}
