// Package auditlog stores the append-only security event trail.
package auditlog

import (
	"context"

	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
	// Recent returns up to limit entries whose kind is in kinds, newest first.
	Recent(ctx context.Context, kinds []models.AuditKind, limit int) ([]*models.AuditEntry, error)
}
