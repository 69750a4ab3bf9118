// Package services holds the authentication business logic: registration,
// login with progressive lockout, password changes, password resets and
// account administration. Handlers call into it; it calls the repositories.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/audit"
	"github.com/dmitrijs2005/trainerauth/internal/server/auth"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/accounts"
)

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token     string
	Role      models.Role
	ExpiresAt time.Time
	ExpiresIn int64 // seconds
	AccountID string
	Username  string
}

type AccountService struct {
	repo   accounts.Repository
	hasher auth.Hasher
	policy *lockout.Policy
	issuer *auth.SessionIssuer
	audit  audit.Recorder
	logger logging.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(
	repo accounts.Repository,
	hasher auth.Hasher,
	policy *lockout.Policy,
	issuer *auth.SessionIssuer,
	recorder audit.Recorder,
	logger logging.Logger,
) *AccountService {
	return &AccountService{
		repo:   repo,
		hasher: hasher,
		policy: policy,
		issuer: issuer,
		audit:  recorder,
		logger: logger,
		now:    time.Now,
	}
}

// storageError logs err with detail and returns the opaque public error.
func storageError(ctx context.Context, logger logging.Logger, op string, err error) error {
	logger.Error(ctx, "storage failure", "op", op, "error", err)
	return common.ErrStorage
}

// CreateAccount validates and stores a new account with the given role.
func (s *AccountService) CreateAccount(ctx context.Context, username, email, password string, role models.Role) (*models.Account, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if err := ValidateRegistration(username, email, password); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, storageError(ctx, s.logger, "hash password", err)
	}

	acc, err := s.repo.Create(ctx, &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         role,
	})
	if err != nil {
		var ce *common.ConflictError
		if errors.As(err, &ce) {
			switch ce.Field {
			case accounts.FieldUsername:
				return nil, common.NewValidationError("username", "Username already taken")
			case accounts.FieldEmail:
				return nil, common.NewValidationError("email", "Email already registered")
			}
		}
		return nil, storageError(ctx, s.logger, "create account", err)
	}

	s.logger.Info(ctx, "account created", "account_id", acc.ID, "role", string(acc.Role))
	return acc, nil
}

// Register creates a standard account and signs it in.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	acc, err := s.CreateAccount(ctx, username, email, password, models.RoleStandard)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, acc)
}

// Login verifies credentials under the lockout policy. Unknown usernames and
// wrong passwords produce the same error. Attempts against a locked account
// are audited but never reach the hasher and do not extend the count.
func (s *AccountService) Login(ctx context.Context, username, password string, origin models.Origin) (*AuthResult, error) {
	acc, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnHash(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, storageError(ctx, s.logger, "get account", err)
	}

	now := s.now()

	state := lockout.State{FailedAttempts: acc.FailedAttempts, LockedUntil: acc.LockoutUntil}
	if d := s.policy.Check(state, now); d.Locked {
		s.audit.Record(ctx, acc, models.AuditLoginFailed, origin)
		return nil, &common.LockedError{Remaining: d.Remaining}
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		return nil, s.loginFailed(ctx, acc, now, origin)
	}

	lockedMeanwhile := false
	_, err = s.repo.ModifyLockout(ctx, acc.ID, func(cur lockout.State) lockout.State {
		if s.policy.Check(cur, now).Locked {
			lockedMeanwhile = true
			return cur
		}
		return s.policy.RegisterSuccess()
	})
	if err != nil {
		return nil, storageError(ctx, s.logger, "reset lockout", err)
	}
	if lockedMeanwhile {
		s.audit.Record(ctx, acc, models.AuditLoginFailed, origin)
		cur, err := s.repo.GetByID(ctx, acc.ID)
		if err != nil {
			return nil, storageError(ctx, s.logger, "get account", err)
		}
		d := s.policy.Check(lockout.State{FailedAttempts: cur.FailedAttempts, LockedUntil: cur.LockoutUntil}, now)
		return nil, &common.LockedError{Remaining: d.Remaining}
	}

	s.audit.Record(ctx, acc, models.AuditLoginSuccess, origin)
	return s.issue(ctx, acc)
}

func (s *AccountService) loginFailed(ctx context.Context, acc *models.Account, now time.Time, origin models.Origin) error {
	justLocked := false
	next, err := s.repo.ModifyLockout(ctx, acc.ID, func(cur lockout.State) lockout.State {
		var n lockout.State
		n, justLocked = s.policy.RegisterFailure(cur, now)
		return n
	})
	if err != nil {
		return storageError(ctx, s.logger, "register failure", err)
	}

	s.audit.Record(ctx, acc, models.AuditLoginFailed, origin)
	if justLocked {
		s.audit.Record(ctx, acc, models.AuditAccountLocked, origin)
		s.logger.Warn(ctx, "account locked", "account_id", acc.ID, "failed_attempts", next.FailedAttempts)
	}

	if d := s.policy.Check(next, now); d.Locked {
		return &common.LockedError{Remaining: d.Remaining}
	}
	return common.ErrInvalidCredentials
}

// burnHash spends roughly one verification worth of CPU so unknown
// usernames take as long as wrong passwords.
func (s *AccountService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password-0")
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *AccountService) issue(ctx context.Context, acc *models.Account) (*AuthResult, error) {
	token, expiresAt, err := s.issuer.Issue(acc.ID, acc.Role)
	if err != nil {
		s.logger.Error(ctx, "session issue failed", "account_id", acc.ID, "error", err)
		return nil, common.ErrStorage
	}
	return &AuthResult{
		Token:     token,
		Role:      acc.Role,
		ExpiresAt: expiresAt,
		ExpiresIn: common.CeilSeconds(s.issuer.TTL()),
		AccountID: acc.ID,
		Username:  acc.Username,
	}, nil
}

// ChangePassword replaces the password of a signed-in account after checking
// the current one. Lockout does not apply: the caller already holds a session.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next string, origin models.Origin) error {
	if err := validateNewPassword("newPassword", next); err != nil {
		return err
	}

	acc, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnauthenticated
		}
		return storageError(ctx, s.logger, "get account", err)
	}

	if !s.hasher.Verify(current, acc.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(next)
	if err != nil {
		return storageError(ctx, s.logger, "hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, acc.ID, digest); err != nil {
		return storageError(ctx, s.logger, "update password", err)
	}

	s.audit.Record(ctx, acc, models.AuditPasswordChanged, origin)
	return nil
}

// GetAccount returns common.ErrorNotFound for unknown ids.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, storageError(ctx, s.logger, "get account", err)
	}
	return acc, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageError(ctx, s.logger, "list accounts", err)
	}
	return list, nil
}

// SetRole changes targetID's role on behalf of actorID. An admin may not
// demote themselves.
func (s *AccountService) SetRole(ctx context.Context, actorID, targetID, role string) (*models.Account, error) {
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, common.NewValidationError("role", `Invalid role. Must be "standard" or "admin"`)
	}
	if actorID == targetID && r != models.RoleAdmin {
		return nil, common.ErrSelfDemotion
	}

	if err := s.repo.UpdateRole(ctx, targetID, r); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, storageError(ctx, s.logger, "update role", err)
	}

	s.logger.Info(ctx, "role changed", "actor_id", actorID, "account_id", targetID, "role", role)
	return s.GetAccount(ctx, targetID)
}

// SetRoleByUsername is the operator variant used by the admin CLI.
func (s *AccountService) SetRoleByUsername(ctx context.Context, username, role string) (*models.Account, error) {
	acc, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, storageError(ctx, s.logger, "get account", err)
	}
	return s.SetRole(ctx, "", acc.ID, role)
}
