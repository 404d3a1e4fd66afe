package tenantapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/types/domainname"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/slug"
	"github.com/ridewave/ridewave/business/types/tier"
)

// Limits represents the plan limits carried on a tenant.
type Limits struct {
	MaxUsers            int `json:"maxUsers"`
	MaxOperators        int `json:"maxOperators"`
	MaxBookingsPerMonth int `json:"maxBookingsPerMonth"`
}

// Tenant represents information about an individual tenant.
type Tenant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Domain      string `json:"domain,omitempty"`
	Active      bool   `json:"active"`
	Tier        string `json:"tier"`
	Status      string `json:"status"`
	TrialEndsAt string `json:"trialEndsAt,omitempty"`
	Limits      Limits `json:"limits"`
	DateCreated string `json:"dateCreated"`
	DateUpdated string `json:"dateUpdated"`
}

// Encode implements the web.Encoder interface.
func (t Tenant) Encode() ([]byte, string, error) {
	data, err := json.Marshal(t)
	return data, "application/json", err
}

func toAppTenant(bus tenantbus.Tenant) Tenant {
	t := Tenant{
		ID:     bus.ID.String(),
		Name:   bus.Name.String(),
		Slug:   bus.Slug.String(),
		Active: bus.Active,
		Tier:   bus.Tier.String(),
		Status: bus.Status.String(),
		Limits: Limits{
			MaxUsers:            bus.Limits.MaxUsers,
			MaxOperators:        bus.Limits.MaxOperators,
			MaxBookingsPerMonth: bus.Limits.MaxBookingsPerMonth,
		},
		DateCreated: bus.CreatedAt.Format(time.RFC3339),
		DateUpdated: bus.UpdatedAt.Format(time.RFC3339),
	}

	if bus.Domain.Valid() {
		t.Domain = bus.Domain.String()
	}

	if bus.TrialEndsAt != nil {
		t.TrialEndsAt = bus.TrialEndsAt.Format(time.RFC3339)
	}

	return t
}

func toAppTenants(tenants []tenantbus.Tenant) []Tenant {
	app := make([]Tenant, len(tenants))
	for i, tnt := range tenants {
		app[i] = toAppTenant(tnt)
	}
	return app
}

// NewTenant defines the data needed to add a new tenant.
type NewTenant struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"required"`
	Domain       string `json:"domain"`
	Tier         string `json:"tier" validate:"required"`
	BillingCycle string `json:"billingCycle"`
}

// Decode implements the web.Decoder interface.
func (app *NewTenant) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app NewTenant) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusNewTenant(app NewTenant) (tenantbus.NewTenant, error) {
	nme, err := name.Parse(app.Name)
	if err != nil {
		return tenantbus.NewTenant{}, fmt.Errorf("parse name: %w", err)
	}

	slg, err := slug.Parse(app.Slug)
	if err != nil {
		return tenantbus.NewTenant{}, fmt.Errorf("parse slug: %w", err)
	}

	dmn, err := domainname.ParseNull(app.Domain)
	if err != nil {
		return tenantbus.NewTenant{}, fmt.Errorf("parse domain: %w", err)
	}

	tr, err := tier.Parse(app.Tier)
	if err != nil {
		return tenantbus.NewTenant{}, fmt.Errorf("parse tier: %w", err)
	}

	bus := tenantbus.NewTenant{
		Name:   nme,
		Slug:   slg,
		Domain: dmn,
		Tier:   tr,
	}

	return bus, nil
}

// UpdateTenant defines the data needed to update a tenant.
type UpdateTenant struct {
	Name   *string `json:"name"`
	Domain *string `json:"domain"`
	Active *bool   `json:"active"`
	Limits *Limits `json:"limits"`
}

// Decode implements the web.Decoder interface.
func (app *UpdateTenant) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app UpdateTenant) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusUpdateTenant(app UpdateTenant) (tenantbus.UpdateTenant, error) {
	var nme *name.Name
	if app.Name != nil {
		nm, err := name.Parse(*app.Name)
		if err != nil {
			return tenantbus.UpdateTenant{}, fmt.Errorf("parse name: %w", err)
		}
		nme = &nm
	}

	var dmn *domainname.Null
	if app.Domain != nil {
		d, err := domainname.ParseNull(*app.Domain)
		if err != nil {
			return tenantbus.UpdateTenant{}, fmt.Errorf("parse domain: %w", err)
		}
		dmn = &d
	}

	var lim *tenantbus.Limits
	if app.Limits != nil {
		lim = &tenantbus.Limits{
			MaxUsers:            app.Limits.MaxUsers,
			MaxOperators:        app.Limits.MaxOperators,
			MaxBookingsPerMonth: app.Limits.MaxBookingsPerMonth,
		}
	}

	bus := tenantbus.UpdateTenant{
		Name:   nme,
		Domain: dmn,
		Active: app.Active,
		Limits: lim,
	}

	return bus, nil
}
