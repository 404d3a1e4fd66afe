// Package audit provides a fire and forget sink for recording who did what
// to which resource. A failing sink must never block or fail the operation
// that produced the event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/types/resource"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Event represents a single recorded action against a resource.
type Event struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Action    string
	Resource  resource.Resource
	Metadata  map[string]any
	CreatedAt time.Time
}

// Auditor declares the behavior transition code depends on. Implementations
// must swallow their own failures.
type Auditor interface {
	Append(ctx context.Context, event Event)
}

// Storer defines the behavior required to persist events.
type Storer interface {
	Create(ctx context.Context, event Event) error
}

// Core writes events through a Storer, logging instead of returning any
// failure.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for audit event access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
	}
}

// Append records the event. Errors are logged and dropped so callers on the
// transition path are never blocked by the sink.
func (c *Core) Append(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := c.storer.Create(ctx, event); err != nil {
		c.log.Error(ctx, "audit: append", "action", event.Action, "tenantID", event.TenantID, "err", err)
	}
}
