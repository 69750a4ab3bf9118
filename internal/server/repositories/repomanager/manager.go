// Package repomanager opens the configured store and vends its repositories.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/auditlog"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	AuditLog() auditlog.Repository
	Close() error
}

// Open returns a Postgres-backed manager for a non-empty dsn and an
// in-memory one otherwise.
func Open(dsn string) (RepositoryManager, error) {
	if dsn == "" {
		return NewInMemoryRepositoryManager(), nil
	}
	m, err := NewPostgresRepositoryManager(dsn)
	if err != nil {
		return nil, err
	}
	return m, nil
}
