// Package policybus combines a resolved tenant profile, its subscription
// standing and its service grants into one allow/deny decision per request.
package policybus

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/types/denyreason"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/foundation/logger"
)

// BillingPath is the surface deny redirects point at. It is part of the
// core always allowed set so a delinquent tenant can still reach it.
const BillingPath = "/billing"

// corePrefixes is the always allowed set. Requests under these prefixes
// never touch billing or grant state: the revenue path must stay open even
// when billing data is broken or unreachable. The subscription management
// API and the payment webhook belong here for the same reason the billing
// pages do: a delinquent tenant recovers through them, so the standing
// check they would trip must never reach them.
var corePrefixes = []string{
	"/trips",
	"/bookings",
	"/profile",
	"/support",
	BillingPath,
	"/v1/subscription",
	"/v1/webhooks",
}

// Core evaluates access decisions against a validated rule table.
type Core struct {
	log   *logger.Logger
	rules []Rule
}

// NewCore constructs a core for policy evaluation. The rule table is
// validated for precedence ambiguity: a rule shadowed by an earlier, more
// general prefix could never match and is a configuration bug.
func NewCore(log *logger.Logger, rules []Rule) (*Core, error) {
	if err := validateRules(rules); err != nil {
		return nil, err
	}

	return &Core{
		log:   log,
		rules: rules,
	}, nil
}

func validateRules(rules []Rule) error {
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if rules[i].Prefix == rules[j].Prefix {
				return fmt.Errorf("duplicate rule prefix %q", rules[i].Prefix)
			}

			if matchPrefix(rules[j].Prefix, rules[i].Prefix) {
				return fmt.Errorf("rule %q is unreachable: shadowed by earlier rule %q", rules[j].Prefix, rules[i].Prefix)
			}
		}
	}

	return nil
}

// Evaluate runs the fixed decision sequence for a resolved tenant. The
// order is not reorderable: the core set check must run before any billing
// state is consulted, the standing check before any grant lookup, and the
// rule table takes the first prefix match only. Evaluation is read only
// and never consumes usage.
func (c *Core) Evaluate(profile tenantbus.Profile, path string, now time.Time) Decision {
	if isCorePath(path) {
		return Decision{Allowed: true}
	}

	t := profile.Tenant

	if t.Tier.IsPaid() && !inGoodStanding(t, now) {
		return deny(denyreason.SubscriptionInactive, Decision{})
	}

	for _, r := range c.rules {
		if !matchPrefix(path, r.Prefix) {
			continue
		}

		access := grantbus.Check(profile.Grants, r.Service)
		if !access.Allowed {
			reason := access.Reason
			if reason.Equal(denyreason.UsageExceeded) {
				reason = denyreason.UsageLimitExceeded
			}

			return deny(reason, Decision{Service: r.Service, HasService: true})
		}

		return Decision{Allowed: true}
	}

	return Decision{Allowed: true}
}

// IsCorePath reports whether the path belongs to the always allowed set.
// Exposed so the request gate can short circuit before any tenant lookup
// when the store is unreachable.
func IsCorePath(path string) bool {
	return isCorePath(path)
}

func isCorePath(path string) bool {
	for _, prefix := range corePrefixes {
		if matchPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func inGoodStanding(t tenantbus.Tenant, now time.Time) bool {
	switch {
	case t.Status.Equal(substatus.Active):
		return true

	case t.Status.Equal(substatus.Trialing):
		return t.TrialEndsAt == nil || now.Before(*t.TrialEndsAt)
	}

	return false
}

func deny(reason denyreason.Reason, d Decision) Decision {
	d.Allowed = false
	d.Reason = reason

	v := url.Values{}
	v.Set("reason", reason.String())
	if d.HasService {
		v.Set("service", d.Service.String())
	}

	d.Redirect = BillingPath + "/upgrade?" + v.Encode()

	return d
}

// matchPrefix reports whether path falls under prefix on a path segment
// boundary, so /api matches /api and /api/reports but not /apifoo.
func matchPrefix(path string, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}

	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
