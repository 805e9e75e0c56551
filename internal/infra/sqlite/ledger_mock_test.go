package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takax-network/takax/internal/domain"
)

func TestApplyMutation_BalanceFailureRollsBackHistory(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs("1001", int64(250), "task_add", "Task completion: Visit", "task:s1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE users SET balance_cents").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = db.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.ApplyMutation(context.Background(), domain.Mutation{
			UserID: "1001", Delta: domain.Coins(2.5), Type: domain.EntryTaskAdd,
			Reason: "Task completion: Visit", Key: "task:s1",
		})
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMutation_UnknownUserRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET balance_cents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = db.InTx(context.Background(), func(tx *Tx) error {
		_, err := tx.ApplyMutation(context.Background(), domain.Mutation{
			UserID: "ghost", Delta: domain.Coins(1), Type: domain.EntryBonusAdd, Key: "bonus:1",
		})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_CommitsOnSuccess(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	db := NewFromConn(conn)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO admin_actions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = db.InTx(context.Background(), func(tx *Tx) error {
		return tx.LogAdminAction(context.Background(), "42", "user_management", "ban 1001")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
