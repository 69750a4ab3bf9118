package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/dbx"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
)

const (
	usernameConstraint = "accounts_username_key"
	emailConstraint    = "accounts_email_key"
)

const accountColumns = `id, username, email, password_hash, role, created_at,
		failed_attempts, lockout_until, reset_token_hash, reset_token_expires`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc          models.Account
		role         string
		lockoutUntil sql.NullTime
		resetHash    sql.NullString
		resetExpires sql.NullTime
	)

	err := row.Scan(&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &role, &acc.CreatedAt,
		&acc.FailedAttempts, &lockoutUntil, &resetHash, &resetExpires)
	if err != nil {
		return nil, err
	}

	acc.Role = models.Role(role)
	if lockoutUntil.Valid {
		acc.LockoutUntil = &lockoutUntil.Time
	}
	if resetHash.Valid {
		acc.ResetTokenHash = &resetHash.String
	}
	if resetExpires.Valid {
		acc.ResetTokenExpires = &resetExpires.Time
	}
	return &acc, nil
}

func (r *PostgresRepository) Create(ctx context.Context, acc *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (username, email, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		acc.Username, acc.Email, acc.PasswordHash, string(acc.Role)).Scan(&acc.ID, &acc.CreatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			switch constraint {
			case usernameConstraint:
				return nil, &common.ConflictError{Field: FieldUsername}
			case emailConstraint:
				return nil, &common.ConflictError{Field: FieldEmail}
			}
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return acc, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, "username = $1", username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// ModifyLockout locks the account row for the duration of fn. When the
// repository is bound to a *sql.DB it opens its own transaction; bound to
// a *sql.Tx it runs inside the caller's.
func (r *PostgresRepository) ModifyLockout(ctx context.Context, id string, fn func(lockout.State) lockout.State) (lockout.State, error) {
	var next lockout.State

	err := dbx.RunInTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			cur   lockout.State
			until sql.NullTime
		)

		err := tx.QueryRowContext(ctx,
			`SELECT failed_attempts, lockout_until FROM accounts
			 WHERE id = $1
			 FOR UPDATE`, id).Scan(&cur.FailedAttempts, &until)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}
		if until.Valid {
			cur.LockedUntil = &until.Time
		}

		next = fn(cur)
		if next.Equal(cur) {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET failed_attempts = $2, lockout_until = $3
			 WHERE id = $1`, id, next.FailedAttempts, nullTime(next.LockedUntil))
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return lockout.State{}, err
	}
	return next, nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query :=
		`UPDATE accounts SET reset_token_hash = $2, reset_token_expires = $3
		 WHERE id = $1`

	return r.execOne(ctx, query, id, tokenHash, expires)
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, id, tokenHash string, now time.Time, passwordHash string) error {
	query :=
		`UPDATE accounts
		 SET password_hash = $4,
		     reset_token_hash = NULL,
		     reset_token_expires = NULL,
		     failed_attempts = 0,
		     lockout_until = NULL
		 WHERE id = $1 AND reset_token_hash = $2 AND reset_token_expires > $3`

	return r.execOne(ctx, query, id, tokenHash, now, passwordHash)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return r.execOne(ctx, `UPDATE accounts SET role = $2 WHERE id = $1`, id, string(role))
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
