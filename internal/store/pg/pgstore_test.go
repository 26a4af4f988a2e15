package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qazna.org/txengine/internal/ledger"
)

func newMockStore(t *testing.T, opts ...Option) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, opts...), mock
}

func balances() []ledger.Balance {
	return []ledger.Balance{
		{Client: 1, Available: decimal.RequireFromString("1.5"), Held: decimal.Zero, Total: decimal.RequireFromString("1.5")},
		{Client: 2, Available: decimal.RequireFromString("3"), Held: decimal.Zero, Total: decimal.RequireFromString("3"), Locked: true},
	}
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t, WithTable("balances_v2"))
	mock.ExpectExec(regexp.QuoteMeta("create table if not exists balances_v2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTableIgnoresInvalidNames(t *testing.T) {
	store, _ := newMockStore(t, WithTable("x; drop table y"))
	assert.Equal(t, DefaultTable, store.table)
}

func TestSaveBalances(t *testing.T) {
	store, mock := newMockStore(t)
	insert := regexp.QuoteMeta("insert into account_balances(run_id, client, available, held, total, locked, recorded_at)")

	mock.ExpectBegin()
	mock.ExpectExec(insert).
		WithArgs("run-1", int64(1), "1.5", "0", "1.5", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("run-1", int64(2), "3", "0", "3", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveBalances(context.Background(), "run-1", balances()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBalancesRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into account_balances").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into account_balances").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.SaveBalances(context.Background(), "run-2", balances())
	require.ErrorContains(t, err, "client 2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountBalances(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("select count(*) from account_balances where run_id=$1")).
		WithArgs("run-3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountBalances(context.Background(), "run-3")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
