package accounts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process memory. One mutex guards all
// state, so every method is atomic with respect to the others. Callers get
// copies and never alias stored records.
type MemoryRepository struct {
	mu         sync.Mutex
	byID       map[string]*models.Account
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*models.Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	if a.LockoutUntil != nil {
		t := *a.LockoutUntil
		c.LockoutUntil = &t
	}
	if a.ResetTokenHash != nil {
		h := *a.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if a.ResetTokenExpires != nil {
		t := *a.ResetTokenExpires
		c.ResetTokenExpires = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, acc *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[acc.Username]; ok {
		return nil, &common.ConflictError{Field: FieldUsername}
	}
	if _, ok := r.byEmail[acc.Email]; ok {
		return nil, &common.ConflictError{Field: FieldEmail}
	}

	acc.ID = uuid.NewString()
	acc.CreatedAt = r.now()

	r.byID[acc.ID] = clone(acc)
	r.byUsername[acc.Username] = acc.ID
	r.byEmail[acc.Email] = acc.ID

	return acc, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (r *MemoryRepository) getByIndex(index map[string]string, key string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := index[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.getByIndex(r.byUsername, username)
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return r.getByIndex(r.byEmail, email)
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*models.Account, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, clone(a))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) ModifyLockout(_ context.Context, id string, fn func(lockout.State) lockout.State) (lockout.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return lockout.State{}, common.ErrorNotFound
	}

	next := fn(lockout.State{FailedAttempts: a.FailedAttempts, LockedUntil: a.LockoutUntil})
	a.FailedAttempts = next.FailedAttempts
	a.LockoutUntil = nil
	if next.LockedUntil != nil {
		t := *next.LockedUntil
		a.LockoutUntil = &t
	}
	return next, nil
}

func (r *MemoryRepository) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.ResetTokenHash = &tokenHash
	a.ResetTokenExpires = &expires
	return nil
}

func (r *MemoryRepository) ConsumeResetToken(_ context.Context, id, tokenHash string, now time.Time, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok || a.ResetTokenHash == nil || a.ResetTokenExpires == nil {
		return common.ErrorNotFound
	}
	if *a.ResetTokenHash != tokenHash || !a.ResetTokenExpires.After(now) {
		return common.ErrorNotFound
	}

	a.PasswordHash = passwordHash
	a.ResetTokenHash = nil
	a.ResetTokenExpires = nil
	a.FailedAttempts = 0
	a.LockoutUntil = nil
	return nil
}

func (r *MemoryRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *MemoryRepository) UpdateRole(_ context.Context, id string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Role = role
	return nil
}
