package tenantapp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ridewave/ridewave/app/sdk/errs"
	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/tier"
)

type queryParams struct {
	Page             string
	Rows             string
	OrderBy          string
	Name             string
	Tier             string
	Active           string
	StartCreatedDate string
	EndCreatedDate   string
}

func parseQueryParams(r *http.Request) queryParams {
	values := r.URL.Query()

	return queryParams{
		Page:             values.Get("page"),
		Rows:             values.Get("rows"),
		OrderBy:          values.Get("orderBy"),
		Name:             values.Get("name"),
		Tier:             values.Get("tier"),
		Active:           values.Get("active"),
		StartCreatedDate: values.Get("start_created_date"),
		EndCreatedDate:   values.Get("end_created_date"),
	}
}

func parseFilter(qp queryParams) (tenantbus.QueryFilter, error) {
	var fieldErrors errs.FieldErrors
	var filter tenantbus.QueryFilter

	if qp.Name != "" {
		nme, err := name.Parse(qp.Name)
		switch err {
		case nil:
			filter.Name = &nme
		default:
			fieldErrors.Add("name", err)
		}
	}

	if qp.Tier != "" {
		tr, err := tier.Parse(qp.Tier)
		switch err {
		case nil:
			filter.Tier = &tr
		default:
			fieldErrors.Add("tier", err)
		}
	}

	if qp.Active != "" {
		active, err := strconv.ParseBool(qp.Active)
		switch err {
		case nil:
			filter.Active = &active
		default:
			fieldErrors.Add("active", err)
		}
	}

	if qp.StartCreatedDate != "" {
		t, err := time.Parse(time.RFC3339, qp.StartCreatedDate)
		switch err {
		case nil:
			filter.StartCreatedAt = &t
		default:
			fieldErrors.Add("start_created_date", err)
		}
	}

	if qp.EndCreatedDate != "" {
		t, err := time.Parse(time.RFC3339, qp.EndCreatedDate)
		switch err {
		case nil:
			filter.EndCreatedAt = &t
		default:
			fieldErrors.Add("end_created_date", err)
		}
	}

	if fieldErrors != nil {
		return tenantbus.QueryFilter{}, fieldErrors
	}

	return filter, nil
}
