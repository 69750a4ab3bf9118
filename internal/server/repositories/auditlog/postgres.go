package auditlog

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/trainerauth/internal/dbx"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query :=
		`INSERT INTO audit_entries (id, account_id, username, kind, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.AccountID, e.Username, string(e.Kind), e.IPAddress, e.UserAgent, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Recent(ctx context.Context, kinds []models.AuditKind, limit int) ([]*models.AuditEntry, error) {
	if len(kinds) == 0 || limit <= 0 {
		return nil, nil
	}

	placeholders := make([]string, len(kinds))
	args := make([]any, 0, len(kinds)+1)
	for i, k := range kinds {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, string(k))
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, account_id, username, kind, ip_address, user_agent, created_at
		 FROM audit_entries
		 WHERE kind IN (%s)
		 ORDER BY created_at DESC
		 LIMIT $%d`, strings.Join(placeholders, ", "), len(kinds)+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		var (
			e    models.AuditEntry
			kind string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Username, &kind, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		e.Kind = models.AuditKind(kind)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
