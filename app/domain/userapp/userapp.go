// Package userapp maintains the app layer api for the user domain.
package userapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/app/sdk/auth"
	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/app/sdk/mid"
	"github.com/ridewave/ridewave/app/sdk/query"
	"github.com/ridewave/ridewave/business/domain/userbus"
	"github.com/ridewave/ridewave/business/sdk/order"
	"github.com/ridewave/ridewave/business/sdk/page"
	"github.com/ridewave/ridewave/business/sdk/web"
)

type app struct {
	auth    *auth.Auth
	userBus *userbus.Core
}

func newApp(ath *auth.Auth, userBus *userbus.Core) *app {
	return &app{
		auth:    ath,
		userBus: userBus,
	}
}

// create adds a new member to the resolved tenant.
func (a *app) create(ctx context.Context, r *http.Request) web.Encoder {
	var app NewUser
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	nu, err := toBusNewUser(tenantID, app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	usr, err := a.userBus.Create(ctx, nu)
	if err != nil {
		if errors.Is(err, userbus.ErrUniqueEmail) {
			return errs.New(errs.Aborted, userbus.ErrUniqueEmail)
		}
		return errs.Errorf(errs.InternalOnlyLog, "create: usr[%+v]: %s", usr, err)
	}

	return toAppUser(usr)
}

// update modifies a member of the resolved tenant.
func (a *app) update(ctx context.Context, r *http.Request) web.Encoder {
	var app UpdateUser
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	usr, err := a.tenantUser(ctx, r)
	if err != nil {
		return errs.GetError(err)
	}

	uu, err := toBusUpdateUser(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	updUsr, err := a.userBus.Update(ctx, usr, uu)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "update: userID[%s] uu[%+v]: %s", usr.ID, uu, err)
	}

	return toAppUser(updUsr)
}

// delete removes a member from the resolved tenant.
func (a *app) delete(ctx context.Context, r *http.Request) web.Encoder {
	usr, err := a.tenantUser(ctx, r)
	if err != nil {
		return errs.GetError(err)
	}

	if err := a.userBus.Delete(ctx, usr); err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "delete: userID[%s]: %s", usr.ID, err)
	}

	return nil
}

// query returns the resolved tenant's members with paging.
func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	qp := parseQueryParams(r)

	page, err := page.Parse(qp.Page, qp.Rows)
	if err != nil {
		return errs.NewFieldErrors("page", err)
	}

	tenantID, err := mid.GetTenantID(ctx)
	if err != nil {
		return errs.Errorf(errs.PermissionDenied, "no tenant resolved for request")
	}

	filter, err := parseFilter(qp)
	if err != nil {
		return errs.GetFieldErrors(err)
	}

	filter.TenantID = &tenantID

	orderBy, err := order.Parse(orderByFields, qp.OrderBy, userbus.DefaultOrderBy)
	if err != nil {
		return errs.NewFieldErrors("order", err)
	}

	usrs, err := a.userBus.Query(ctx, filter, orderBy, page)
	if err != nil {
		return errs.Errorf(errs.Internal, "query: %s", err)
	}

	total, err := a.userBus.Count(ctx, filter)
	if err != nil {
		return errs.Errorf(errs.Internal, "count: %s", err)
	}

	return query.NewResult(toAppUsers(usrs), total, page)
}

// queryByID returns a member of the resolved tenant by id.
func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	usr, err := a.tenantUser(ctx, r)
	if err != nil {
		return errs.GetError(err)
	}

	return toAppUser(usr)
}

// tenantUser loads the user addressed by the route and checks it belongs to
// the resolved tenant. A cross tenant id is indistinguishable from a miss.
func (a *app) tenantUser(ctx context.Context, r *http.Request) (userbus.User, error) {
	userID, err := uuid.Parse(web.Param(r, "user_id"))
	if err != nil {
		return userbus.User{}, errs.New(errs.InvalidArgument, err)
	}

	usr, err := a.userBus.QueryByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userbus.ErrNotFound) {
			return userbus.User{}, errs.New(errs.NotFound, err)
		}
		return userbus.User{}, errs.Errorf(errs.InternalOnlyLog, "query: userID[%s]: %s", userID, err)
	}

	tenantID, err := mid.GetTenantID(ctx)
	if err != nil || usr.TenantID != tenantID {
		return userbus.User{}, errs.Errorf(errs.NotFound, "user not found")
	}

	return usr, nil
}
