// Package slug represents a tenant slug in the system. A slug doubles as
// the tenant's subdomain label, so the rules follow DNS label rules.
package slug

import (
	"fmt"
	"regexp"
)

// Slug represents a tenant slug in the system.
type Slug struct {
	value string
}

// String returns the value of the slug.
func (s Slug) String() string {
	return s.value
}

// Equal provides support for the go-cmp package and testing.
func (s Slug) Equal(s2 Slug) bool {
	return s.value == s2.value
}

// MarshalText provides support for logging and any marshal needs.
func (s Slug) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// =============================================================================

// slugRegEx enforces DNS label rules: lowercase alphanumerics and hyphens,
// no leading or trailing hyphen, max 63 characters.
var slugRegEx = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Set of labels that can never be tenant slugs because the platform owns
// those subdomains.
var reserved = map[string]struct{}{
	"www": {},
	"api": {},
}

// IsReserved reports whether the label is reserved for platform use.
func IsReserved(label string) bool {
	_, exists := reserved[label]
	return exists
}

// Parse parses the string value and returns a slug if the value complies
// with the rules for a slug.
func Parse(value string) (Slug, error) {
	if !slugRegEx.MatchString(value) {
		return Slug{}, fmt.Errorf("invalid slug %q", value)
	}

	if IsReserved(value) {
		return Slug{}, fmt.Errorf("slug %q is reserved", value)
	}

	return Slug{value}, nil
}

// MustParse parses the string value and returns a slug if the value
// complies with the rules for a slug. If an error occurs the function panics.
func MustParse(value string) Slug {
	slug, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return slug
}
