package tenantbus

import "github.com/ridewave/ridewave/business/sdk/order"

var DefaultOrderBy = order.NewBy(OrderByName, order.ASC)

const (
	OrderByID        = "a"
	OrderByName      = "b"
	OrderBySlug      = "c"
	OrderByTier      = "d"
	OrderByCreatedAt = "e"
)
