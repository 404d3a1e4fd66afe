// Package payment provides the hosted checkout gateway used to collect
// payment for plan changes. The platform never touches card data; it hands
// the customer a checkout URL and learns the outcome through a webhook.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Config holds the settings for talking to the checkout provider.
type Config struct {
	Log           *logger.Logger
	CheckoutURL   string
	SigningSecret string
}

// Gateway builds hosted checkout sessions and verifies the webhook
// signatures the provider sends back.
type Gateway struct {
	log         *logger.Logger
	checkoutURL string
	secret      []byte
}

// New constructs a gateway for hosted checkout access.
func New(cfg Config) *Gateway {
	return &Gateway{
		log:         cfg.Log,
		checkoutURL: cfg.CheckoutURL,
		secret:      []byte(cfg.SigningSecret),
	}
}

// CreateCheckoutSession builds a signed checkout URL for the specified plan.
// The signature binds tenant and plan so the redirect can't be tampered with
// between here and payment confirmation.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle, successURL string, cancelURL string) (string, error) {
	base, err := url.Parse(g.checkoutURL)
	if err != nil {
		return "", fmt.Errorf("parsing checkout url: %w", err)
	}

	q := url.Values{}
	q.Set("tenant_id", tenantID.String())
	q.Set("tier", t.String())
	q.Set("cycle", cycle.String())
	q.Set("success_url", successURL)
	q.Set("cancel_url", cancelURL)
	q.Set("sig", g.sign(tenantID, t, cycle))

	base.RawQuery = q.Encode()

	g.log.Info(ctx, "payment: checkout session", "tenantID", tenantID, "tier", t, "cycle", cycle)

	return base.String(), nil
}

// VerifyWebhookSignature checks the signature carried by a payment
// confirmation webhook against the plan details it claims.
func (g *Gateway) VerifyWebhookSignature(tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle, signature string) error {
	expected := g.sign(tenantID, t, cycle)

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch for tenant %s", tenantID)
	}

	return nil
}

func (g *Gateway) sign(tenantID uuid.UUID, t tier.Tier, cycle billingcycle.Cycle) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "%s|%s|%s", tenantID, t, cycle)
	return hex.EncodeToString(mac.Sum(nil))
}
