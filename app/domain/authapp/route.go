package authapp

import (
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/sdk/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth      *auth.Auth
	ActiveKID string
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)

	api := newApp(cfg.Auth, cfg.ActiveKID)

	app.HandlerFunc(http.MethodPost, version, "/auth/login", api.login)
	app.HandlerFunc(http.MethodGet, version, "/auth/verify", api.verify, authen)
}
