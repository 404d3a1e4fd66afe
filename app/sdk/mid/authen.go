package mid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/sdk/web"
)

// Authenticate validates authentication via the auth service.
func Authenticate(ath *auth.Auth) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			claims, err := ath.Authenticate(ctx, r.Header.Get("authorization"))
			if err != nil {
				return errs.New(errs.Unauthenticated, err)
			}

			if claims.Subject == "" {
				return errs.Errorf(errs.Unauthenticated, "you are not authorized for that action, no claims")
			}

			subjectID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return errs.Errorf(errs.Unauthenticated, "parsing subject: %s", err)
			}

			// A token minted for one tenant never works against another.
			// The resolved tenant is authoritative when present.
			if tc, err := GetTenantContext(ctx); err == nil {
				if claims.TenantID != tc.TenantID.String() {
					return errs.Errorf(errs.PermissionDenied, "token not issued for this tenant")
				}
			}

			ctx = setUserID(ctx, subjectID)
			ctx = setClaims(ctx, claims)

			return next(ctx, r)
		}

		return h
	}

	return m
}
