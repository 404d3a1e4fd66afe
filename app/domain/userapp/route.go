package userapp

import (
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/domain/userbus"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/resource"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth    *auth.Auth
	UserBus *userbus.Core
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)
	authorize := mid.Authorize(cfg.Auth, resource.User)

	api := newApp(cfg.Auth, cfg.UserBus)

	app.HandlerFunc(http.MethodGet, version, "/users", api.query, authen, authorize)
	app.HandlerFunc(http.MethodGet, version, "/users/{user_id}", api.queryByID, authen, authorize)
	app.HandlerFunc(http.MethodPost, version, "/users", api.create, authen, authorize)
	app.HandlerFunc(http.MethodPut, version, "/users/{user_id}", api.update, authen, authorize)
	app.HandlerFunc(http.MethodDelete, version, "/users/{user_id}", api.delete, authen, authorize)
}
