package mid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/domain/policybus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/role"
	"github.com/ridewave/ridewave/business/types/substatus"
	"github.com/ridewave/ridewave/foundation/logger"
)

// denyResponse is the structured body returned for denied API shaped
// requests.
type denyResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Service string `json:"service,omitempty"`
}

// Encode implements the web.Encoder interface.
func (d denyResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(d)
	return data, "application/json", err
}

// HTTPStatus implements the web httpStatus interface.
func (d denyResponse) HTTPStatus() int {
	return http.StatusForbidden
}

// Tenant resolves the request's addressing info to a tenant, evaluates the
// access policy and either propagates the tenant context or terminates the
// request. Order matters inside: the core path check runs before any store
// lookup result is needed, so the booking path survives a store outage. A
// resolution miss means platform traffic and the gate steps aside.
func Tenant(log *logger.Logger, tenantBus *tenantbus.Core, subscriptionBus *subscriptionbus.Core, policy *policybus.Core) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			res, err := tenantBus.Resolve(ctx, r.Host, r.URL.Path)
			if err != nil {
				if errors.Is(err, tenantbus.ErrNotFound) {
					return next(ctx, r)
				}

				// The store is unreachable. Fail safe: the always
				// allowed set proceeds untouched, everything else denies.
				log.Error(ctx, "tenant: resolve", "host", r.Host, "err", err)

				if policybus.IsCorePath(requestPath(r.URL.Path)) {
					return next(ctx, r)
				}

				return errs.Errorf(errs.Unavailable, "tenant resolution unavailable")
			}

			profile := res.Profile
			now := time.Now()

			// Trials expire lazily: the first request after the trial
			// window persists the transition before policy runs.
			if trialExpired(profile.Tenant, now) {
				if _, err := subscriptionBus.ExpireTrialIfDue(ctx, profile.Tenant.ID); err != nil {
					log.Error(ctx, "tenant: expire trial", "tenantID", profile.Tenant.ID, "err", err)
				}
				profile.Tenant.Status = substatus.PastDue
			}

			path := r.URL.Path
			if res.Via == tenantbus.ViaPath {
				path = stripTenantPrefix(path, profile.Tenant.Slug.String())
			}

			decision := policy.Evaluate(profile, path, now)
			if !decision.Allowed {
				if isAPIShaped(path) {
					d := denyResponse{
						Error:  "access denied",
						Reason: decision.Reason.String(),
					}
					if decision.HasService {
						d.Service = decision.Service.String()
					}
					return d
				}

				// A path addressed tenant must stay path addressed or the
				// redirect lands on the platform host with no tenant.
				redirect := decision.Redirect
				if res.Via == tenantbus.ViaPath {
					redirect = "/tenant/" + profile.Tenant.Slug.String() + redirect
				}

				return web.NewRedirect(redirect)
			}

			tc := TenantContext{
				TenantID: profile.Tenant.ID,
				Slug:     profile.Tenant.Slug.String(),
			}

			if profile.Tenant.Domain.Valid() {
				tc.Domain = profile.Tenant.Domain.String()
			}

			claims := GetClaims(ctx)
			if claims.TenantID != "" {
				if id, err := uuid.Parse(claims.TenantID); err == nil {
					tc.UserTenantID = id
				}
				if r, err := role.Parse(claims.Role); err == nil {
					tc.UserRole = r
				}
			}

			ctx = setTenantContext(ctx, tc)

			return next(ctx, r)
		}

		return h
	}

	return m
}

func trialExpired(t tenantbus.Tenant, now time.Time) bool {
	return t.Status.Equal(substatus.Trialing) && t.TrialEndsAt != nil && now.After(*t.TrialEndsAt)
}

// requestPath strips a /tenant/{slug} prefix without knowing the slug, so
// the core path check can run even when resolution failed.
func requestPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/tenant/")
	if !ok {
		return path
	}

	i := strings.Index(rest, "/")
	if i == -1 {
		return "/"
	}

	return rest[i:]
}

func stripTenantPrefix(path string, slug string) string {
	stripped := strings.TrimPrefix(path, "/tenant/"+slug)
	if stripped == "" {
		return "/"
	}

	return stripped
}

// isAPIShaped reports whether a denied request should get a structured 403
// body instead of a redirect to the billing surface.
func isAPIShaped(path string) bool {
	return strings.HasPrefix(path, "/api") || strings.HasPrefix(path, "/v1")
}
