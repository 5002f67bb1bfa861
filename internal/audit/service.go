// Package audit serves the read side of the append-only administrative
// audit trail. Writes only ever happen inside governance and ticket
// transactions; nothing here can modify history.
package audit

import (
	"context"

	"mercado/internal/domain"
	"mercado/pkg/errors"
	"mercado/pkg/logger"

	"github.com/google/uuid"
)

// Reader pages stored audit events.
type Reader interface {
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*domain.AdminAuditEvent, error)
	CountByEntity(ctx context.Context, entityType string, entityID uuid.UUID) (int, error)
}

type Service struct {
	reader Reader
	logger logger.Logger
}

func NewService(reader Reader, log logger.Logger) *Service {
	return &Service{reader: reader, logger: log}
}

// History returns an entity's audit trail, newest first. The core imposes
// no cap; limit <= 0 falls back to a transport-friendly page size.
func (s *Service) History(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]*domain.AdminAuditEvent, int, error) {
	if entityType == "" {
		return nil, 0, errors.Validation("entity_type", "is required")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.reader.FindByEntity(ctx, entityType, entityID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.reader.CountByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
