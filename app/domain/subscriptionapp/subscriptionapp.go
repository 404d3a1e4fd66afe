// Package subscriptionapp maintains the app layer api for the billing
// domain. All routes except the payment webhook operate on the resolved
// tenant.
package subscriptionapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/business/domain/grantbus"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/sdk/payment"
	"github.com/ridewave/ridewave/business/sdk/web"
)

type app struct {
	subscriptionBus *subscriptionbus.Core
	grantBus        *grantbus.Core
	gateway         *payment.Gateway
}

func newApp(subscriptionBus *subscriptionbus.Core, grantBus *grantbus.Core, gateway *payment.Gateway) *app {
	return &app{
		subscriptionBus: subscriptionBus,
		grantBus:        grantBus,
		gateway:         gateway,
	}
}

// current returns the tenant's current subscription.
func (a *app) current(ctx context.Context, r *http.Request) web.Encoder {
	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	sub, err := a.subscriptionBus.Current(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscriptionbus.ErrNotFound) {
			return errs.New(errs.NotFound, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "current: tenantID[%s]: %s", tenantID, err)
	}

	return toAppSubscription(sub)
}

// grants returns the tenant's service grants with usage counters.
func (a *app) grants(ctx context.Context, r *http.Request) web.Encoder {
	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	grants, err := a.grantBus.QueryByTenant(ctx, tenantID)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "grants: tenantID[%s]: %s", tenantID, err)
	}

	return toAppGrants(grants)
}

// upgrade starts a checkout session for a higher plan.
func (a *app) upgrade(ctx context.Context, r *http.Request) web.Encoder {
	cp, enc := a.decodeChangePlan(ctx, r)
	if enc != nil {
		return enc
	}

	session, err := a.subscriptionBus.Upgrade(ctx, cp)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "upgrade: tenantID[%s]: %s", cp.TenantID, err)
	}

	return toAppCheckoutSession(session)
}

// downgrade starts a checkout session for a lower plan.
func (a *app) downgrade(ctx context.Context, r *http.Request) web.Encoder {
	cp, enc := a.decodeChangePlan(ctx, r)
	if enc != nil {
		return enc
	}

	session, err := a.subscriptionBus.Downgrade(ctx, cp)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "downgrade: tenantID[%s]: %s", cp.TenantID, err)
	}

	return toAppCheckoutSession(session)
}

// reactivate resumes a plan. Reactivating the plan that is already active
// and not flagged for cancellation is a no-op.
func (a *app) reactivate(ctx context.Context, r *http.Request) web.Encoder {
	cp, enc := a.decodeChangePlan(ctx, r)
	if enc != nil {
		return enc
	}

	session, err := a.subscriptionBus.Reactivate(ctx, cp)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "reactivate: tenantID[%s]: %s", cp.TenantID, err)
	}

	return toAppCheckoutSession(session)
}

// cancel flags the current subscription to end at the period boundary.
// Access stays intact until then. Repeat calls change nothing.
func (a *app) cancel(ctx context.Context, r *http.Request) web.Encoder {
	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	sub, err := a.subscriptionBus.Cancel(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscriptionbus.ErrNotFound) {
			return errs.New(errs.NotFound, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "cancel: tenantID[%s]: %s", tenantID, err)
	}

	return toAppSubscription(sub)
}

// webhook receives the payment confirmation from the checkout provider.
// Providers retry deliveries, so confirmation must tolerate duplicates.
func (a *app) webhook(ctx context.Context, r *http.Request) web.Encoder {
	var req PaymentWebhook
	if err := web.Decode(r, &req); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	tenantID, t, cycle, err := toBusWebhook(req)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	if err := a.gateway.VerifyWebhookSignature(tenantID, t, cycle, req.Signature); err != nil {
		return errs.Errorf(errs.PermissionDenied, "webhook signature: %s", err)
	}

	sub, err := a.subscriptionBus.ConfirmPayment(ctx, tenantID, t, cycle)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "confirm payment: tenantID[%s]: %s", tenantID, err)
	}

	return toAppSubscription(sub)
}

func (a *app) decodeChangePlan(ctx context.Context, r *http.Request) (subscriptionbus.ChangePlan, web.Encoder) {
	var req ChangePlan
	if err := web.Decode(r, &req); err != nil {
		return subscriptionbus.ChangePlan{}, errs.New(errs.InvalidArgument, err)
	}

	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return subscriptionbus.ChangePlan{}, errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	cp, err := toBusChangePlan(tenantID, req)
	if err != nil {
		return subscriptionbus.ChangePlan{}, errs.New(errs.InvalidArgument, err)
	}

	return cp, nil
}
