// Package tenantapp maintains the app layer api for the tenant domain. This
// is the platform operator surface, not something tenants reach themselves.
package tenantapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/app/sdk/query"
	"github.com/ridewave/ridewave/business/domain/subscriptionbus"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/web"
	"github.com/ridewave/ridewave/business/types/billingcycle"
	"github.com/ridewave/ridewave/business/types/substatus"
)

type app struct {
	tenantBus       *tenantbus.Core
	subscriptionBus *subscriptionbus.Core
}

func newApp(tenantBus *tenantbus.Core, subscriptionBus *subscriptionbus.Core) *app {
	return &app{
		tenantBus:       tenantBus,
		subscriptionBus: subscriptionBus,
	}
}

// newWithTx constructs a new app value using the transaction in the context.
func (a *app) newWithTx(ctx context.Context) (*app, error) {
	tx, err := mid.GetTran(ctx)
	if err != nil {
		return a, nil
	}

	tenantBus, err := a.tenantBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	subscriptionBus, err := a.subscriptionBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	return newApp(tenantBus, subscriptionBus), nil
}

// create provisions a tenant together with its opening subscription and the
// grant rows its tier provides. Runs under the request transaction so a
// partial provision never survives.
func (a *app) create(ctx context.Context, r *http.Request) web.Encoder {
	var app NewTenant
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	a, err := a.newWithTx(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	nt, err := toBusNewTenant(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	tnt, err := a.tenantBus.Create(ctx, nt)
	if err != nil {
		if errors.Is(err, tenantbus.ErrUniqueSlug) {
			return errs.New(errs.Aborted, tenantbus.ErrUniqueSlug)
		}
		if errors.Is(err, tenantbus.ErrUniqueDomain) {
			return errs.New(errs.Aborted, tenantbus.ErrUniqueDomain)
		}
		return errs.Errorf(errs.InternalOnlyLog, "create: tnt[%+v]: %s", app, err)
	}

	cycle := billingcycle.Monthly
	if app.BillingCycle != "" {
		cycle, err = billingcycle.Parse(app.BillingCycle)
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}
	}

	sub, err := a.subscriptionBus.Create(ctx, subscriptionbus.NewSubscription{
		TenantID: tnt.ID,
		Tier:     tnt.Tier,
		Cycle:    cycle,
	})
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "create subscription: tenantID[%s]: %s", tnt.ID, err)
	}

	tnt.Status = sub.Status
	tnt.TrialEndsAt = trialEndsAt(sub)

	return toAppTenant(tnt)
}

// update modifies a tenant's record.
func (a *app) update(ctx context.Context, r *http.Request) web.Encoder {
	var app UpdateTenant
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	tnt, err := a.queryTenant(ctx, r)
	if err != nil {
		return errs.GetError(err)
	}

	ut, err := toBusUpdateTenant(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	updTnt, err := a.tenantBus.Update(ctx, tnt, ut)
	if err != nil {
		if errors.Is(err, tenantbus.ErrUniqueDomain) {
			return errs.New(errs.Aborted, tenantbus.ErrUniqueDomain)
		}
		return errs.Errorf(errs.InternalOnlyLog, "update: tenantID[%s] ut[%+v]: %s", tnt.ID, ut, err)
	}

	return toAppTenant(updTnt)
}

// query returns a list of tenants with paging.
func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	qp := parseQueryParams(r)

	page, err := page.Parse(qp.Page, qp.Rows)
	if err != nil {
		return errs.NewFieldErrors("page", err)
	}

	filter, err := parseFilter(qp)
	if err != nil {
		return errs.GetFieldErrors(err)
	}

	orderBy, err := order.Parse(orderByFields, qp.OrderBy, tenantbus.DefaultOrderBy)
	if err != nil {
		return errs.NewFieldErrors("order", err)
	}

	tnts, err := a.tenantBus.Query(ctx, filter, orderBy, page)
	if err != nil {
		return errs.Errorf(errs.Internal, "query: %s", err)
	}

	total, err := a.tenantBus.Count(ctx, filter)
	if err != nil {
		return errs.Errorf(errs.Internal, "count: %s", err)
	}

	return query.NewResult(toAppTenants(tnts), total, page)
}

// queryByID returns a tenant by its ID.
func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	tnt, err := a.queryTenant(ctx, r)
	if err != nil {
		return errs.GetError(err)
	}

	return toAppTenant(tnt)
}

func (a *app) queryTenant(ctx context.Context, r *http.Request) (tenantbus.Tenant, error) {
	tenantID, err := uuid.Parse(web.Param(r, "tenant_id"))
	if err != nil {
		return tenantbus.Tenant{}, errs.New(errs.InvalidArgument, err)
	}

	tnt, err := a.tenantBus.QueryByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantbus.ErrNotFound) {
			return tenantbus.Tenant{}, errs.New(errs.NotFound, err)
		}
		return tenantbus.Tenant{}, errs.Errorf(errs.InternalOnlyLog, "query: tenantID[%s]: %s", tenantID, err)
	}

	return tnt, nil
}

func trialEndsAt(sub subscriptionbus.Subscription) *time.Time {
	if sub.Status.Equal(substatus.Trialing) {
		t := sub.PeriodEnd
		return &t
	}
	return nil
}
