package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/url"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/auth"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/dmitrijs2005/trainerauth/internal/server/notify"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/accounts"
)

const DefaultResetTokenTTL = time.Hour

// ResetAck is the only answer a reset request ever gets.
const ResetAck = "If an account with that email exists, a password reset link has been sent."

// ResetService runs the forgot-password flow. Only the digest of a reset
// token is stored; the plaintext leaves the process once, via the notifier.
type ResetService struct {
	repo     accounts.Repository
	hasher   auth.Hasher
	audit    audit.Recorder
	notifier notify.Notifier
	logger   logging.Logger
	ttl      time.Duration
	urlBase  string
	now      func() time.Time
}

func NewResetService(
	repo accounts.Repository,
	hasher auth.Hasher,
	recorder audit.Recorder,
	notifier notify.Notifier,
	logger logging.Logger,
	ttl time.Duration,
	urlBase string,
) *ResetService {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetService{
		repo:     repo,
		hasher:   hasher,
		audit:    recorder,
		notifier: notifier,
		logger:   logger,
		ttl:      ttl,
		urlBase:  urlBase,
		now:      time.Now,
	}
}

// IssueResetToken stores a new token for acc, superseding any earlier one,
// and returns the plaintext.
func (s *ResetService) IssueResetToken(ctx context.Context, acc *models.Account) (string, error) {
	plain, digest, err := auth.NewResetToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.SetResetToken(ctx, acc.ID, digest, s.now().Add(s.ttl)); err != nil {
		return "", err
	}
	return plain, nil
}

func (s *ResetService) resetLink(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return s.urlBase + "?" + q.Encode()
}

// RequestReset answers the same way whether or not the address is known.
// A malformed address is still a validation error.
func (s *ResetService) RequestReset(ctx context.Context, email string, origin models.Origin) error {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	acc, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "reset requested for unknown address", "ip", origin.IPAddress)
			return nil
		}
		return storageError(ctx, s.logger, "get account", err)
	}

	token, err := s.IssueResetToken(ctx, acc)
	if err != nil {
		return storageError(ctx, s.logger, "issue reset token", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, acc.Email, acc.Username, s.resetLink(token, acc.Email)); err != nil {
		s.logger.Error(ctx, "reset delivery failed", "account_id", acc.ID, "error", err)
	}
	return nil
}

// Redeem sets a new password if token is the account's current, unexpired
// reset token. It also clears the lockout. Every token failure, including an
// unknown address, is reported as common.ErrInvalidOrExpiredToken.
func (s *ResetService) Redeem(ctx context.Context, email, token, newPassword string, origin models.Origin) error {
	if err := validateNewPassword("newPassword", newPassword); err != nil {
		return err
	}
	if token == "" {
		return common.ErrInvalidOrExpiredToken
	}

	acc, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return storageError(ctx, s.logger, "get account", err)
	}

	now := s.now()
	digest := auth.HashResetToken(token)

	if acc.ResetTokenHash == nil || acc.ResetTokenExpires == nil ||
		subtle.ConstantTimeCompare([]byte(*acc.ResetTokenHash), []byte(digest)) != 1 ||
		!acc.ResetTokenExpires.After(now) {
		return common.ErrInvalidOrExpiredToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return storageError(ctx, s.logger, "hash password", err)
	}

	// The store re-checks hash and expiry, so a concurrent redemption of the
	// same token cannot both succeed.
	if err := s.repo.ConsumeResetToken(ctx, acc.ID, digest, now, passwordHash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return storageError(ctx, s.logger, "consume reset token", err)
	}

	s.audit.Record(ctx, acc, models.AuditPasswordReset, origin)
	return nil
}
