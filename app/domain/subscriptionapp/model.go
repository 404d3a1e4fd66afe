package subscriptionapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/tier"
)

// Subscription represents information about a subscription period.
type Subscription struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenantId"`
	Tier              string `json:"tier"`
	Cycle             string `json:"billingCycle"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancelAtPeriodEnd"`
	PeriodStart       string `json:"periodStart"`
	PeriodEnd         string `json:"periodEnd"`
}

// Encode implements the web.Encoder interface.
func (s Subscription) Encode() ([]byte, string, error) {
	data, err := json.Marshal(s)
	return data, "application/json", err
}

func toAppSubscription(bus subscriptionbus.Subscription) Subscription {
	return Subscription{
		ID:                bus.ID.String(),
		TenantID:          bus.TenantID.String(),
		Tier:              bus.Tier.String(),
		Cycle:             bus.Cycle.String(),
		Status:            bus.Status.String(),
		CancelAtPeriodEnd: bus.CancelAtPeriodEnd,
		PeriodStart:       bus.PeriodStart.Format(time.RFC3339),
		PeriodEnd:         bus.PeriodEnd.Format(time.RFC3339),
	}
}

// Grant represents a service grant with its usage counters.
type Grant struct {
	Service       string `json:"service"`
	Enabled       bool   `json:"enabled"`
	UsageLimit    *int   `json:"usageLimit"`
	UsageCount    int    `json:"usageCount"`
	PeriodResetAt string `json:"periodResetAt"`
}

// Grants is the collection returned by the grants route.
type Grants []Grant

// Encode implements the web.Encoder interface.
func (g Grants) Encode() ([]byte, string, error) {
	data, err := json.Marshal(g)
	return data, "application/json", err
}

func toAppGrants(grants []grantbus.Grant) Grants {
	app := make(Grants, len(grants))
	for i, g := range grants {
		app[i] = Grant{
			Service:       g.Service.String(),
			Enabled:       g.Enabled,
			UsageLimit:    g.UsageLimit,
			UsageCount:    g.UsageCount,
			PeriodResetAt: g.PeriodResetAt.Format(time.RFC3339),
		}
	}
	return app
}

// CheckoutSession carries the checkout URL for a plan change.
type CheckoutSession struct {
	URL           string `json:"url,omitempty"`
	Tier          string `json:"tier"`
	Cycle         string `json:"billingCycle"`
	AlreadyActive bool   `json:"alreadyActive"`
}

// Encode implements the web.Encoder interface.
func (c CheckoutSession) Encode() ([]byte, string, error) {
	data, err := json.Marshal(c)
	return data, "application/json", err
}

func toAppCheckoutSession(bus subscriptionbus.CheckoutSession) CheckoutSession {
	return CheckoutSession{
		URL:           bus.URL,
		Tier:          bus.Tier.String(),
		Cycle:         bus.Cycle.String(),
		AlreadyActive: bus.AlreadyActive,
	}
}

// ChangePlan defines the data needed to start a plan change.
type ChangePlan struct {
	Tier         string `json:"tier" validate:"required"`
	BillingCycle string `json:"billingCycle" validate:"required"`
	SuccessURL   string `json:"successUrl" validate:"required,url"`
	CancelURL    string `json:"cancelUrl" validate:"required,url"`
}

// Decode implements the web.Decoder interface.
func (app *ChangePlan) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app ChangePlan) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusChangePlan(tenantID uuid.UUID, app ChangePlan) (subscriptionbus.ChangePlan, error) {
	t, err := tier.Parse(app.Tier)
	if err != nil {
		return subscriptionbus.ChangePlan{}, fmt.Errorf("parse tier: %w", err)
	}

	cycle, err := billingcycle.Parse(app.BillingCycle)
	if err != nil {
		return subscriptionbus.ChangePlan{}, fmt.Errorf("parse billing cycle: %w", err)
	}

	bus := subscriptionbus.ChangePlan{
		TenantID:   tenantID,
		Tier:       t,
		Cycle:      cycle,
		SuccessURL: app.SuccessURL,
		CancelURL:  app.CancelURL,
	}

	return bus, nil
}

// PaymentWebhook is the payload the checkout provider posts after a
// successful payment.
type PaymentWebhook struct {
	TenantID     string `json:"tenantId" validate:"required,uuid"`
	Tier         string `json:"tier" validate:"required"`
	BillingCycle string `json:"billingCycle" validate:"required"`
	Signature    string `json:"signature" validate:"required"`
}

// Decode implements the web.Decoder interface.
func (app *PaymentWebhook) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app PaymentWebhook) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusWebhook(app PaymentWebhook) (uuid.UUID, tier.Tier, billingcycle.Cycle, error) {
	tenantID, err := uuid.Parse(app.TenantID)
	if err != nil {
		return uuid.Nil, tier.Tier{}, billingcycle.Cycle{}, fmt.Errorf("parse tenant id: %w", err)
	}

	t, err := tier.Parse(app.Tier)
	if err != nil {
		return uuid.Nil, tier.Tier{}, billingcycle.Cycle{}, fmt.Errorf("parse tier: %w", err)
	}

	cycle, err := billingcycle.Parse(app.BillingCycle)
	if err != nil {
		return uuid.Nil, tier.Tier{}, billingcycle.Cycle{}, fmt.Errorf("parse billing cycle: %w", err)
	}

	return tenantID, t, cycle, nil
}
