package tenantapp

import (
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/resource"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log             *logger.Logger
	DB              sqldb.Beginner
	Auth            *auth.Auth
	TenantBus       *tenantbus.Core
	SubscriptionBus *subscriptionbus.Core
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)
	authorize := mid.Authorize(cfg.Auth, resource.Tenant)
	transaction := mid.BeginCommitRollback(cfg.Log, cfg.DB)

	api := newApp(cfg.TenantBus, cfg.SubscriptionBus)

	app.HandlerFunc(http.MethodGet, version, "/tenants", api.query, authen, authorize)
	app.HandlerFunc(http.MethodGet, version, "/tenants/{tenant_id}", api.queryByID, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/tenants", api.create, authen, authorize, transaction)
	app.HandlerFunc(http.MethodPut, version, "/tenants/{tenant_id}", api.update, authen, authorize)
}
