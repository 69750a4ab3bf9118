// Package audit records security events and serves the grouped read view
// used by the admin activity page.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/auditlog"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultRecentLimit = 10

// Recorder appends one event for acc. It never fails the caller.
type Recorder interface {
	Record(ctx context.Context, acc *models.Account, kind models.AuditKind, origin models.Origin)
}

// Groups is the admin read model, each group newest first.
type Groups struct {
	RecentLogins    []*models.AuditEntry `json:"recentLogins"`
	FailedAttempts  []*models.AuditEntry `json:"failedAttempts"`
	AccountLockouts []*models.AuditEntry `json:"accountLockouts"`
	PasswordChanges []*models.AuditEntry `json:"passwordChanges"`
}

type Log struct {
	repo     auditlog.Repository
	logger   logging.Logger
	failures prometheus.Counter
	now      func() time.Time
}

// NewLog wires the store. failures counts entries that could not be
// written; it may be nil.
func NewLog(repo auditlog.Repository, logger logging.Logger, failures prometheus.Counter) *Log {
	return &Log{repo: repo, logger: logger, failures: failures, now: time.Now}
}

func (l *Log) Record(ctx context.Context, acc *models.Account, kind models.AuditKind, origin models.Origin) {
	e := &models.AuditEntry{
		ID:        uuid.NewString(),
		AccountID: acc.ID,
		Username:  acc.Username,
		Kind:      kind,
		IPAddress: origin.IPAddress,
		UserAgent: origin.UserAgent,
		CreatedAt: l.now().UTC(),
	}

	if err := l.repo.Append(ctx, e); err != nil {
		if l.failures != nil {
			l.failures.Inc()
		}
		l.logger.Error(ctx, "audit write failed",
			"kind", string(kind), "account_id", acc.ID, "error", err)
	}
}

// Recent returns up to limit entries per group. A non-positive limit means
// DefaultRecentLimit.
func (l *Log) Recent(ctx context.Context, limit int) (*Groups, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	g := &Groups{}
	targets := []struct {
		dst   *[]*models.AuditEntry
		kinds []models.AuditKind
	}{
		{&g.RecentLogins, []models.AuditKind{models.AuditLoginSuccess}},
		{&g.FailedAttempts, []models.AuditKind{models.AuditLoginFailed}},
		{&g.AccountLockouts, []models.AuditKind{models.AuditAccountLocked}},
		{&g.PasswordChanges, []models.AuditKind{models.AuditPasswordChanged, models.AuditPasswordReset}},
	}

	for _, t := range targets {
		entries, err := l.repo.Recent(ctx, t.kinds, limit)
		if err != nil {
			return nil, fmt.Errorf("audit recent %v: %w", t.kinds, err)
		}
		if entries == nil {
			entries = []*models.AuditEntry{}
		}
		*t.dst = entries
	}
	return g, nil
}
