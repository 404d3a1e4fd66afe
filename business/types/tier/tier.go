// Package tier represents the subscription tier type in the system.
package tier

import "fmt"

// The set of tiers that can be used.
var (
	Free       = newTier("FREE")
	Basic      = newTier("BASIC")
	Pro        = newTier("PRO")
	Enterprise = newTier("ENTERPRISE")
)

// =============================================================================

// Set of known tiers.
var tiers = make(map[string]Tier)

// Tier represents a subscription tier in the system.
type Tier struct {
	value string
}

func newTier(tier string) Tier {
	t := Tier{tier}
	tiers[tier] = t
	return t
}

// String returns the name of the tier.
func (t Tier) String() string {
	return t.value
}

// Equal provides support for the go-cmp package and testing.
func (t Tier) Equal(t2 Tier) bool {
	return t.value == t2.value
}

// IsPaid returns true for tiers that carry a billing relationship. The FREE
// tier has no billing to be delinquent on.
func (t Tier) IsPaid() bool {
	return t.value != Free.value
}

// MarshalText provides support for logging and any marshal needs.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.value), nil
}

// =============================================================================

// Parse parses the string value and returns a tier if one exists.
func Parse(value string) (Tier, error) {
	tier, exists := tiers[value]
	if !exists {
		return Tier{}, fmt.Errorf("invalid tier %q", value)
	}

	return tier, nil
}

// MustParse parses the string value and returns a tier if one exists. If
// an error occurs the function panics.
func MustParse(value string) Tier {
	tier, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return tier
}
