package tenantapp

import (
	"github.com/ridewave/ridewave/business/domain/tenantbus"
)

var orderByFields = map[string]string{
	"tenant_id":    tenantbus.OrderByID,
	"name":         tenantbus.OrderByName,
	"slug":         tenantbus.OrderBySlug,
	"tier":         tenantbus.OrderByTier,
	"date_created": tenantbus.OrderByCreatedAt,
}
