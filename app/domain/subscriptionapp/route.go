package subscriptionapp

import (
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/resource"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth            *auth.Auth
	SubscriptionBus *subscriptionbus.Core
	GrantBus        *grantbus.Core
	Gateway         *payment.Gateway
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)
	authorize := mid.Authorize(cfg.Auth, resource.Subscription)

	api := newApp(cfg.SubscriptionBus, cfg.GrantBus, cfg.Gateway)

	app.HandlerFunc(http.MethodGet, version, "/subscription", api.current, authen, authorize)
	app.HandlerFunc(http.MethodGet, version, "/subscription/grants", api.grants, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/subscription/upgrade", api.upgrade, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/subscription/downgrade", api.downgrade, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/subscription/reactivate", api.reactivate, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/subscription/cancel", api.cancel, authen, authorize)

	// The provider authenticates with its payload signature, not a JWT.
	app.HandlerFunc(http.MethodPost, version, "/webhooks/payment", api.webhook)
}
