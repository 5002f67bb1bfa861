package postgres

import (
	"context"

	"mercado/internal/domain"
	"mercado/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AuditRepository reads the append-only audit trail. Writes happen only
// inside governance transactions via the store.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// FindByEntity returns events for one entity, newest first.
func (r *AuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*domain.AdminAuditEvent, error) {
	var events []*domain.AdminAuditEvent
	query := `
		SELECT id, entity_type, entity_id, action, performed_by, comment, metadata, created_at
		FROM admin_audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	if err := r.db.SelectContext(ctx, &events, query, entityType, entityID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to query audit events")
	}
	return events, nil
}

// CountByEntity returns the total history length for one entity.
func (r *AuditRepository) CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM admin_audit_events WHERE entity_type = $1 AND entity_id = $2`
	if err := r.db.GetContext(ctx, &total, query, entityType, entityID); err != nil {
		return 0, errors.Wrap(err, "failed to count audit events")
	}
	return total, nil
}
