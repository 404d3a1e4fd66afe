// Package servicetype represents the gated feature categories in the system.
package servicetype

import "fmt"

// The set of services that can be gated per tenant.
var (
	Analytics       = newService("ANALYTICS")
	CustomBranding  = newService("CUSTOM_BRANDING")
	EmailMarketing  = newService("EMAIL_MARKETING")
	AdvancedReports = newService("ADVANCED_REPORTS")
	APIAccess       = newService("API_ACCESS")
)

// =============================================================================

// Set of known services. The insertion order is kept so tier provisioning
// and grant rewrites are deterministic.
var (
	services = make(map[string]ServiceType)
	ordered  []ServiceType
)

// ServiceType represents a gated feature category in the system.
type ServiceType struct {
	value string
}

func newService(service string) ServiceType {
	s := ServiceType{service}
	services[service] = s
	ordered = append(ordered, s)
	return s
}

// All returns every known service in declaration order.
func All() []ServiceType {
	all := make([]ServiceType, len(ordered))
	copy(all, ordered)
	return all
}

// String returns the name of the service.
func (s ServiceType) String() string {
	return s.value
}

// Equal provides support for the go-cmp package and testing.
func (s ServiceType) Equal(s2 ServiceType) bool {
	return s.value == s2.value
}

// MarshalText provides support for logging and any marshal needs.
func (s ServiceType) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// =============================================================================

// Parse parses the string value and returns a service if one exists.
func Parse(value string) (ServiceType, error) {
	service, exists := services[value]
	if !exists {
		return ServiceType{}, fmt.Errorf("invalid service type %q", value)
	}

	return service, nil
}

// MustParse parses the string value and returns a service if one exists. If
// an error occurs the function panics.
func MustParse(value string) ServiceType {
	service, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return service
}
