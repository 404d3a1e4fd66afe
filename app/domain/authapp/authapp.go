// Package authapp maintains the app layer api for the auth domain.
package authapp

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/sdk/web"
)

type app struct {
	auth      *auth.Auth
	activeKID string
}

func newApp(ath *auth.Auth, activeKID string) *app {
	return &app{
		auth:      ath,
		activeKID: activeKID,
	}
}

// login verifies credentials against the resolved tenant's member list and
// returns a token bound to that tenant.
func (a *app) login(ctx context.Context, r *http.Request) web.Encoder {
	var req Login
	if err := web.Decode(r, &req); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "login requires a tenant address")
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("parsing email: %w", err))
	}

	usr, err := a.auth.Login(ctx, tenantID, *addr, req.Password)
	if err != nil {
		return errs.New(errs.Unauthenticated, err)
	}

	tokenStr, err := a.auth.GenerateToken(a.activeKID, usr.TenantID, usr.ID, usr.Role)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	return toAppToken(tokenStr)
}

// verify reports the claims of the presented token. Useful for debugging a
// tenant binding without decoding the token by hand.
func (a *app) verify(ctx context.Context, r *http.Request) web.Encoder {
	claims := mid.GetClaims(ctx)

	return TokenInfo{
		UserID:   claims.Subject,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}
}
