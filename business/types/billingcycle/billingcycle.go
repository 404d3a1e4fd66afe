// Package billingcycle represents the billing cycle type in the system.
package billingcycle

import (
	"fmt"
	"time"
)

// The set of cycles that can be used.
var (
	Monthly = newCycle("MONTHLY")
	Yearly  = newCycle("YEARLY")
)

// =============================================================================

// Set of known cycles.
var cycles = make(map[string]Cycle)

// Cycle represents a billing cycle in the system.
type Cycle struct {
	value string
}

func newCycle(cycle string) Cycle {
	c := Cycle{cycle}
	cycles[cycle] = c
	return c
}

// String returns the name of the cycle.
func (c Cycle) String() string {
	return c.value
}

// Equal provides support for the go-cmp package and testing.
func (c Cycle) Equal(c2 Cycle) bool {
	return c.value == c2.value
}

// PeriodEnd returns the end of the billing period that starts at the
// specified time.
func (c Cycle) PeriodEnd(start time.Time) time.Time {
	if c.value == Yearly.value {
		return start.AddDate(1, 0, 0)
	}

	return start.AddDate(0, 1, 0)
}

// MarshalText provides support for logging and any marshal needs.
func (c Cycle) MarshalText() ([]byte, error) {
	return []byte(c.value), nil
}

// =============================================================================

// Parse parses the string value and returns a cycle if one exists.
func Parse(value string) (Cycle, error) {
	cycle, exists := cycles[value]
	if !exists {
		return Cycle{}, fmt.Errorf("invalid billing cycle %q", value)
	}

	return cycle, nil
}

// MustParse parses the string value and returns a cycle if one exists. If
// an error occurs the function panics.
func MustParse(value string) Cycle {
	cycle, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return cycle
}
