package userbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/name"
	"github.com/ridewave/ridewave/business/types/role"
)

type QueryFilter struct {
	ID             *uuid.UUID
	TenantID       *uuid.UUID
	Name           *name.Name
	Email          *mail.Address
	Role           *role.Role
	StartCreatedAt *time.Time
	EndCreatedAt   *time.Time
}
