package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTx overrides the pgx.Tx methods RunInTx uses; the embedded nil
// interface panics if anything else is called.
type fakeTx struct {
	pgx.Tx
	mockDBTX
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.mockDBTX.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.mockDBTX.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.mockDBTX.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestTxManager_CommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	tx.mockDBTX.On("Exec", mock.Anything, "SELECT 1", mock.Anything).
		Return(pgconn.NewCommandTag("SELECT 1"), nil)
	tm := NewTxManager(&fakeBeginner{tx: tx})

	err := tm.RunInTx(context.Background(), func(ctx context.Context, q DBTX) error {
		_, err := q.Exec(ctx, "SELECT 1")
		return err
	})
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTxManager(&fakeBeginner{tx: tx})
	boom := errors.New("boom")

	err := tm.RunInTx(context.Background(), func(context.Context, DBTX) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestTxManager_BeginAndCommitErrors(t *testing.T) {
	tm := NewTxManager(&fakeBeginner{err: errors.New("pool closed")})
	err := tm.RunInTx(context.Background(), func(context.Context, DBTX) error { return nil })
	assert.ErrorContains(t, err, "begin transaction")

	tx := &fakeTx{commitErr: errors.New("serialization failure")}
	tm = NewTxManager(&fakeBeginner{tx: tx})
	err = tm.RunInTx(context.Background(), func(context.Context, DBTX) error { return nil })
	assert.ErrorContains(t, err, "commit transaction")
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("x")))
}

func TestMigrate_AppliesPendingFilesOnce(t *testing.T) {
	pool := new(mockDBTX)
	pool.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return len(sql) > 0 && sql[:12] == "CREATE TABLE"
	}), mock.Anything).Return(pgconn.NewCommandTag("CREATE TABLE"), nil)
	pool.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"migrations/0001_init.sql"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*bool) = true
			return nil
		}})
	pool.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"migrations/0002_notification_status.sql"}).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*bool) = false
			return nil
		}})

	tx := &fakeTx{}
	tx.mockDBTX.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("OK"), nil)

	applied, err := Migrate(context.Background(), NewTxManager(&fakeBeginner{tx: tx}), pool)
	require.NoError(t, err)
	assert.Equal(t, []string{"migrations/0002_notification_status.sql"}, applied)
	assert.True(t, tx.committed)
	// Schema body plus the schema_migrations insert.
	tx.mockDBTX.AssertNumberOfCalls(t, "Exec", 2)
}

func TestMigrate_SkipsRecordedVersions(t *testing.T) {
	pool := new(mockDBTX)
	pool.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("CREATE TABLE"), nil)
	pool.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*bool) = true
			return nil
		}})

	applied, err := Migrate(context.Background(), NewTxManager(&fakeBeginner{err: errors.New("unused")}), pool)
	require.NoError(t, err)
	assert.Empty(t, applied)
}
