// Package password represents a plaintext password in the system. The value
// only ever exists in memory on its way to a bcrypt hash.
package password

import (
	"fmt"
	"unicode/utf8"
)

// Password represents a password in the system.
type Password struct {
	value string
}

// String masks the password for logging and printing.
func (p Password) String() string {
	return p.value
}

// Equal provides support for the go-cmp package and testing.
func (p Password) Equal(p2 Password) bool {
	return p.value == p2.value
}

// MarshalText provides support for logging and any marshal needs. The value
// is always masked.
func (p Password) MarshalText() ([]byte, error) {
	return []byte("**********"), nil
}

// =============================================================================

// Parse parses the string value and returns a password if the value complies
// with the rules for a password.
func Parse(value string) (Password, error) {
	n := utf8.RuneCountInString(value)
	if n < 8 || n > 72 {
		return Password{}, fmt.Errorf("password must be between 8 and 72 characters")
	}

	return Password{value}, nil
}

// MustParse parses the string value and returns a password if the value
// complies with the rules for a password. If an error occurs the function
// panics.
func MustParse(value string) Password {
	password, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return password
}
