package mid

import (
	"context"
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/actions"
	"github.com/ridewave/ridewave/business/types/resource"
)

// Authorize validates that the authenticated user's role may perform the
// request's action against the specified resource type.
func Authorize(ath *auth.Auth, res resource.Resource) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			claims := GetClaims(ctx)
			if claims.Subject == "" {
				return errs.Errorf(errs.Unauthenticated, "authorize: you are not authorized for that action, no claims")
			}

			act, err := methodAction(r.Method)
			if err != nil {
				return errs.New(errs.Internal, err)
			}

			if err := ath.Authorize(claims, res, act); err != nil {
				return errs.Errorf(errs.PermissionDenied, "authorize: role %q resource %q action %q: %s", claims.Role, res, act, err)
			}

			return next(ctx, r)
		}

		return h
	}

	return m
}

// methodAction maps the HTTP verb to the action vocabulary the enforcer
// understands.
func methodAction(method string) (actions.Action, error) {
	switch method {
	case http.MethodPost:
		return actions.Create, nil
	case http.MethodGet:
		return actions.Get, nil
	case http.MethodPut, http.MethodPatch:
		return actions.Update, nil
	case http.MethodDelete:
		return actions.Delete, nil
	}

	return actions.Action{}, errs.Errorf(errs.Internal, "no action mapping for method %q", method)
}
