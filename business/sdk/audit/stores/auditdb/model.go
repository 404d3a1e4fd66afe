package auditdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ridewave/ridewave/business/sdk/audit"
)

type eventDB struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	UserID    uuid.UUID `db:"user_id"`
	Action    string    `db:"action"`
	Resource  string    `db:"resource"`
	Metadata  []byte    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

func toDBEvent(bus audit.Event) (eventDB, error) {
	metadata := []byte("{}")
	if bus.Metadata != nil {
		var err error
		metadata, err = json.Marshal(bus.Metadata)
		if err != nil {
			return eventDB{}, fmt.Errorf("marshal metadata: %w", err)
		}
	}

	return eventDB{
		ID:        bus.ID,
		TenantID:  bus.TenantID,
		UserID:    bus.UserID,
		Action:    bus.Action,
		Resource:  bus.Resource.String(),
		Metadata:  metadata,
		CreatedAt: bus.CreatedAt,
	}, nil
}
