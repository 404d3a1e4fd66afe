// Package denyreason represents the machine-readable reason codes attached
// to access denials. Every denial carries exactly one of these.
package denyreason

import "fmt"

// The set of reasons that can be used.
var (
	SubscriptionInactive = newReason("subscription_inactive")
	NotEnabled           = newReason("not_enabled")
	TierInsufficient     = newReason("tier_insufficient")
	UsageExceeded        = newReason("usage_exceeded")
	UsageLimitExceeded   = newReason("usage_limit_exceeded")
)

// =============================================================================

// Set of known reasons.
var reasons = make(map[string]Reason)

// Reason represents a denial reason in the system.
type Reason struct {
	value string
}

func newReason(reason string) Reason {
	r := Reason{reason}
	reasons[reason] = r
	return r
}

// String returns the name of the reason.
func (r Reason) String() string {
	return r.value
}

// Equal provides support for the go-cmp package and testing.
func (r Reason) Equal(r2 Reason) bool {
	return r.value == r2.value
}

// IsZero reports whether the reason is unset.
func (r Reason) IsZero() bool {
	return r.value == ""
}

// MarshalText provides support for logging and any marshal needs.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.value), nil
}

// =============================================================================

// Parse parses the string value and returns a reason if one exists.
func Parse(value string) (Reason, error) {
	reason, exists := reasons[value]
	if !exists {
		return Reason{}, fmt.Errorf("invalid deny reason %q", value)
	}

	return reason, nil
}

// MustParse parses the string value and returns a reason if one exists. If
// an error occurs the function panics.
func MustParse(value string) Reason {
	reason, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return reason
}
