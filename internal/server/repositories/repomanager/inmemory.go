package repomanager

import (
	"context"

	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/auditlog"
)

// InMemoryRepositoryManager backs a single process with no database.
// State is lost on exit.
type InMemoryRepositoryManager struct {
	accounts *accounts.MemoryRepository
	auditLog *auditlog.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		accounts: accounts.NewMemoryRepository(),
		auditLog: auditlog.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Accounts() accounts.Repository       { return m.accounts }
func (m *InMemoryRepositoryManager) AuditLog() auditlog.Repository       { return m.auditLog }
func (m *InMemoryRepositoryManager) Close() error                        { return nil }
