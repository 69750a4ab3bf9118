package auditlog

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

// MemoryRepository keeps entries in insertion order.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []models.AuditEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(_ context.Context, e *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryRepository) Recent(_ context.Context, kinds []models.AuditKind, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	want := make(map[models.AuditKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}

	r.mu.RLock()
	var matched []*models.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if _, ok := want[r.entries[i].Kind]; ok {
			e := r.entries[i]
			matched = append(matched, &e)
		}
	}
	r.mu.RUnlock()

	// Collected newest-appended first, so ties on timestamp keep that order.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
