// Package auditdb contains audit event storage functionality.
package auditdb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/ridewave/ridewave/business/sdk/audit"
	"github.com/ridewave/ridewave/business/sdk/sqldb"
	"github.com/ridewave/ridewave/foundation/logger"
)

// Store manages the set of APIs for audit event database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db *sqlx.DB) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// Create inserts a new audit event into the database.
func (s *Store) Create(ctx context.Context, event audit.Event) error {
	dbEvent, err := toDBEvent(event)
	if err != nil {
		return fmt.Errorf("todbevent: %w", err)
	}

	const q = `
	INSERT INTO "public"."audit_event"
		(id, tenant_id, user_id, action, resource, metadata, created_at)
	VALUES
		(:id, :tenant_id, :user_id, :action, :resource, :metadata, :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, dbEvent); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}
