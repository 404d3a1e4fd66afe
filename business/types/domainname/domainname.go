// Package domainname represents a custom domain in the system. Not every
// tenant brings a custom domain, so the type carries a Null form.
package domainname

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

var domainRegEx = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// Null represents a custom domain that can be empty.
type Null struct {
	value string
	valid bool
}

// ToSQLNullString converts a Null value to a sql NullString.
func ToSQLNullString(n Null) sql.NullString {
	return sql.NullString{
		String: n.value,
		Valid:  n.valid,
	}
}

// FromSQLNullString converts a sql NullString into a Null value without
// re-validation. Used when hydrating from the database.
func FromSQLNullString(ns sql.NullString) Null {
	return Null{
		value: ns.String,
		valid: ns.Valid,
	}
}

// String returns the value of the domain.
func (n Null) String() string {
	if !n.valid {
		return "NULL"
	}

	return n.value
}

// Valid reports whether a domain is present.
func (n Null) Valid() bool {
	return n.valid
}

// Matches reports whether the specified host is exactly this domain.
func (n Null) Matches(host string) bool {
	return n.valid && strings.EqualFold(n.value, host)
}

// Equal provides support for the go-cmp package and testing.
func (n Null) Equal(n2 Null) bool {
	return n.value == n2.value && n.valid == n2.valid
}

// MarshalText provides support for logging and any marshal needs.
func (n Null) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

// =============================================================================

// ParseNull parses the string value and returns a domain if the value
// complies with the rules for a fully qualified domain name.
func ParseNull(value string) (Null, error) {
	if value == "" {
		return Null{}, nil
	}

	value = strings.ToLower(value)

	if !domainRegEx.MatchString(value) {
		return Null{}, fmt.Errorf("invalid domain %q", value)
	}

	return Null{value, true}, nil
}

// MustParseNull parses the string value and returns a domain if the value
// complies with the rules for a domain. If an error occurs the function panics.
func MustParseNull(value string) Null {
	domain, err := ParseNull(value)
	if err != nil {
		panic(err)
	}

	return domain
}
