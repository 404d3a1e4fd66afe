// Package mux provides support to bind domain level routes
// to the application mux.
package mux

import (
	"github.com/jmoiron/sqlx"
	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/policybus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/domain/userbus"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/foundation/logger"
	"go.opentelemetry.io/otel/trace"
)

// Options represent optional parameters.
type Options struct {
	corsOrigins []string
}

// WithCORS provides configuration options for CORS.
func WithCORS(origins []string) func(opts *Options) {
	return func(opts *Options) {
		opts.corsOrigins = origins
	}
}

// BusConfig contains the business layer values the handlers need.
type BusConfig struct {
	UserBus         *userbus.Core
	TenantBus       *tenantbus.Core
	SubscriptionBus *subscriptionbus.Core
	GrantBus        *grantbus.Core
	PolicyBus       *policybus.Core
	Gateway         *payment.Gateway
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build     string
	Log       *logger.Logger
	DB        *sqlx.DB
	Tracer    trace.Tracer
	Auth      *auth.Auth
	ActiveKID string
	BusConfig BusConfig
}

// RouteAdder defines behavior that sets the routes to bind for an instance
// of the service.
type RouteAdder interface {
	Add(app *web.App, cfg Config)
}

// WebAPI constructs a http.Handler with all application routes bound. The
// tenant gate runs last in the global chain so every routed handler sees a
// resolved and policy-checked tenant context.
func WebAPI(cfg Config, routeAdder RouteAdder, options ...func(opts *Options)) *web.App {
	app := web.NewApp(
		cfg.Log.Info,
		cfg.Tracer,
		mid.Otel(cfg.Tracer),
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Panics(),
		mid.Tenant(cfg.Log, cfg.BusConfig.TenantBus, cfg.BusConfig.SubscriptionBus, cfg.BusConfig.PolicyBus),
	)

	var opts Options
	for _, option := range options {
		option(&opts)
	}

	if len(opts.corsOrigins) > 0 {
		app.EnableCORS(opts.corsOrigins)
	}

	routeAdder.Add(app, cfg)

	return app
}
