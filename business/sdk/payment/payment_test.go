package payment_test

import (
	"context"
	"net/url"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/tier"
	"github.com/ridewave/ridewave/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, secret string) *payment.Gateway {
	t.Helper()

	return payment.New(payment.Config{
		Log:           logger.New(os.Stdout, logger.LevelError, "TEST", nil),
		CheckoutURL:   "https://checkout.test/session",
		SigningSecret: secret,
	})
}

func Test_CheckoutSessionSignatureRoundTrip(t *testing.T) {
	gw := newGateway(t, "secret-a")
	tenantID := uuid.New()

	raw, err := gw.CreateCheckoutSession(context.Background(), tenantID, tier.Pro, billingcycle.Monthly, "https://acme.test/ok", "https://acme.test/no")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, tenantID.String(), q.Get("tenant_id"))
	assert.Equal(t, "PRO", q.Get("tier"))
	assert.Equal(t, "MONTHLY", q.Get("cycle"))
	assert.Equal(t, "https://acme.test/ok", q.Get("success_url"))

	// The signature the session carries is the one the webhook must echo.
	require.NoError(t, gw.VerifyWebhookSignature(tenantID, tier.Pro, billingcycle.Monthly, q.Get("sig")))
}

func Test_WebhookSignatureMismatch(t *testing.T) {
	gw := newGateway(t, "secret-a")
	other := newGateway(t, "secret-b")
	tenantID := uuid.New()

	raw, err := other.CreateCheckoutSession(context.Background(), tenantID, tier.Pro, billingcycle.Monthly, "", "")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)

	// Signed under the wrong secret.
	err = gw.VerifyWebhookSignature(tenantID, tier.Pro, billingcycle.Monthly, u.Query().Get("sig"))
	require.Error(t, err)

	// Signed for a different plan.
	ok, err2 := gw.CreateCheckoutSession(context.Background(), tenantID, tier.Basic, billingcycle.Monthly, "", "")
	require.NoError(t, err2)
	u, err = url.Parse(ok)
	require.NoError(t, err)
	err = gw.VerifyWebhookSignature(tenantID, tier.Pro, billingcycle.Monthly, u.Query().Get("sig"))
	require.Error(t, err)
}
