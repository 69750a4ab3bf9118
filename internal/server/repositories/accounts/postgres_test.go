package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var accountCols = []string{"id", "username", "email", "password_hash", "role", "created_at",
	"failed_attempts", "lockout_until", "reset_token_hash", "reset_token_expires"}

const insertQ = `(?s)^INSERT\s+INTO\s+accounts\s*\(username,\s*email,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id,\s*created_at\s*$`

func newAccount() *models.Account {
	return &models.Account{Username: "trainer1", Email: "t1@example.com", PasswordHash: "$2a$hash", Role: models.RoleStandard}
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("trainer1", "t1@example.com", "$2a$hash", "standard").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("acc-1", t0))

	got, err := repo.Create(context.Background(), newAccount())
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.True(t, got.CreatedAt.Equal(t0))
}

func TestCreate_UniqueViolations(t *testing.T) {
	cases := map[string]string{
		"accounts_username_key": FieldUsername,
		"accounts_email_key":    FieldEmail,
	}
	for constraint, field := range cases {
		t.Run(field, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(insertQ).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: constraint})

			_, err := repo.Create(context.Background(), newAccount())

			var ce *common.ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, field, ce.Field)
			assert.ErrorIs(t, err, common.ErrorAlreadyExists)
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newAccount())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByUsername_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	until := t0.Add(30 * time.Minute)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1$`).
		WithArgs("trainer1").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("acc-1", "trainer1", "t1@example.com", "h", "admin", t0, 5, until, "abc", t0.Add(time.Hour)))

	got, err := repo.GetByUsername(context.Background(), "trainer1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got.ID)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, 5, got.FailedAttempts)
	require.NotNil(t, got.LockoutUntil)
	assert.True(t, got.LockoutUntil.Equal(until))
	require.NotNil(t, got.ResetTokenHash)
	assert.Equal(t, "abc", *got.ResetTokenHash)
	require.NotNil(t, got.ResetTokenExpires)
}

func TestGetByEmail_NullableColumns(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("t1@example.com").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("acc-1", "trainer1", "t1@example.com", "h", "standard", t0, 0, nil, nil, nil))

	got, err := repo.GetByEmail(context.Background(), "t1@example.com")
	require.NoError(t, err)
	assert.Nil(t, got.LockoutUntil)
	assert.Nil(t, got.ResetTokenHash)
	assert.Nil(t, got.ResetTokenExpires)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+ORDER\s+BY\s+created_at\s+DESC$`).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("b", "bob_", "b@example.com", "h", "standard", t0.Add(time.Hour), 0, nil, nil, nil).
			AddRow("a", "alice", "a@example.com", "h", "admin", t0, 0, nil, nil, nil))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

const (
	selectForUpdateQ = `(?s)SELECT\s+failed_attempts,\s*lockout_until\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE`
	updateLockoutQ   = `(?s)UPDATE\s+accounts\s+SET\s+failed_attempts\s*=\s*\$2,\s*lockout_until\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1`
)

func TestModifyLockout_UpdatesInsideTx(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "lockout_until"}).AddRow(4, nil))
	mock.ExpectExec(updateLockoutQ).
		WithArgs("acc-1", 5, t0.Add(30*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := lockout.NewPolicy()
	var justLocked bool
	got, err := repo.ModifyLockout(context.Background(), "acc-1", func(s lockout.State) lockout.State {
		var next lockout.State
		next, justLocked = p.RegisterFailure(s, t0)
		return next
	})
	require.NoError(t, err)
	assert.True(t, justLocked)
	assert.Equal(t, 5, got.FailedAttempts)
}

func TestModifyLockout_NoChangeSkipsUpdate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "lockout_until"}).AddRow(0, nil))
	mock.ExpectCommit()

	got, err := repo.ModifyLockout(context.Background(), "acc-1", func(lockout.State) lockout.State {
		return lockout.State{}
	})
	require.NoError(t, err)
	assert.Equal(t, 0, got.FailedAttempts)
}

func TestModifyLockout_ClearsLockout(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "lockout_until"}).AddRow(3, nil))
	mock.ExpectExec(updateLockoutQ).
		WithArgs("acc-1", 0, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.ModifyLockout(context.Background(), "acc-1", func(lockout.State) lockout.State {
		return lockout.State{}
	})
	require.NoError(t, err)
}

func TestModifyLockout_NotFoundRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ModifyLockout(context.Background(), "ghost", func(s lockout.State) lockout.State { return s })
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestModifyLockout_UpdateErrorRollsBack(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "lockout_until"}).AddRow(1, nil))
	mock.ExpectExec(updateLockoutQ).WillReturnError(errors.New("db err"))
	mock.ExpectRollback()

	_, err := repo.ModifyLockout(context.Background(), "acc-1", func(lockout.State) lockout.State {
		return lockout.State{FailedAttempts: 2}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db err")
}

func TestModifyLockout_ReusesCallerTx(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(selectForUpdateQ).
		WillReturnRows(sqlmock.NewRows([]string{"failed_attempts", "lockout_until"}).AddRow(0, nil))
	mock.ExpectExec(updateLockoutQ).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewPostgresRepository(tx)
	_, err = repo.ModifyLockout(context.Background(), "acc-1", func(lockout.State) lockout.State {
		return lockout.State{FailedAttempts: 1}
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

const consumeQ = `(?s)UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$4,.*failed_attempts\s*=\s*0,\s*lockout_until\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1\s+AND\s+reset_token_hash\s*=\s*\$2\s+AND\s+reset_token_expires\s*>\s*\$3`

func TestConsumeResetToken_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(consumeQ).
		WithArgs("acc-1", "hash", t0, "newhash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ConsumeResetToken(context.Background(), "acc-1", "hash", t0, "newhash"))
}

func TestConsumeResetToken_NoMatch(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(consumeQ).
		WithArgs("acc-1", "hash", t0, "newhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeResetToken(context.Background(), "acc-1", "hash", t0, "newhash")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSetResetToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE\s+accounts\s+SET\s+reset_token_hash\s*=\s*\$2,\s*reset_token_expires\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("acc-1", "hash", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetResetToken(context.Background(), "acc-1", "hash", t0))
}

func TestUpdatePasswordAndRole(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE accounts SET password_hash = \$2 WHERE id = \$1`).
		WithArgs("acc-1", "h2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE accounts SET role = \$2 WHERE id = \$1`).
		WithArgs("ghost", "admin").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE accounts SET role = \$2 WHERE id = \$1`).
		WithArgs("acc-1", "admin").
		WillReturnError(errors.New("db err"))

	require.NoError(t, repo.UpdatePassword(context.Background(), "acc-1", "h2"))
	assert.ErrorIs(t, repo.UpdateRole(context.Background(), "ghost", models.RoleAdmin), common.ErrorNotFound)

	err := repo.UpdateRole(context.Background(), "acc-1", models.RoleAdmin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
