package tenantdb

import (
	"fmt"

	"github.com/ridewave/ridewave/business/domain/tenantbus"
	"github.com/ridewave/ridewave/business/sdk/order"
)

var orderByFields = map[string]string{
	tenantbus.OrderByID:        "tenant_id",
	tenantbus.OrderByName:      "name",
	tenantbus.OrderBySlug:      "slug",
	tenantbus.OrderByTier:      "tier",
	tenantbus.OrderByCreatedAt: "created_at",
}

func orderByClause(orderBy order.By) (string, error) {
	by, exists := orderByFields[orderBy.Field]
	if !exists {
		return "", fmt.Errorf("field %q does not exist", orderBy.Field)
	}

	return " ORDER BY " + by + " " + orderBy.Direction, nil
}
