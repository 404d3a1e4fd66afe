// Package all binds all the routes into the specified app.
package all

import (
	"github.com/ridewave/ridewave/app/domain/authapp"
	"github.com/ridewave/ridewave/app/domain/checkapp"
	"github.com/ridewave/ridewave/app/domain/subscriptionapp"
	"github.com/ridewave/ridewave/app/domain/tenantapp"
	"github.com/ridewave/ridewave/app/domain/userapp"
	"github.com/ridewave/ridewave/app/sdk/mux"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/business/sdk/web"
)

// Routes constructs the add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

func (add) Add(app *web.App, cfg mux.Config) {
	checkapp.Routes(app, checkapp.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
		DB:    cfg.DB,
	})

	authapp.Routes(app, authapp.Config{
		Auth:      cfg.Auth,
		ActiveKID: cfg.ActiveKID,
	})

	tenantapp.Routes(app, tenantapp.Config{
		Log:             cfg.Log,
		DB:              sqldb.NewBeginner(cfg.DB),
		Auth:            cfg.Auth,
		TenantBus:       cfg.BusConfig.TenantBus,
		SubscriptionBus: cfg.BusConfig.SubscriptionBus,
	})

	subscriptionapp.Routes(app, subscriptionapp.Config{
		Auth:            cfg.Auth,
		SubscriptionBus: cfg.BusConfig.SubscriptionBus,
		GrantBus:        cfg.BusConfig.GrantBus,
		Gateway:         cfg.BusConfig.Gateway,
	})

	userapp.Routes(app, userapp.Config{
		Auth:    cfg.Auth,
		UserBus: cfg.BusConfig.UserBus,
	})
}
