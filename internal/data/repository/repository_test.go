package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRepository_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock := newMock(t)
		repo := NewRepository(mock, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("alice").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err := repo.WithTx(ctx, func(tx *Repository) error {
			created, err := tx.User.Ensure(ctx, "alice")
			assert.True(t, created)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback On Error", func(t *testing.T) {
		mock := newMock(t)
		repo := NewRepository(mock, zap.NewNop())
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.WithTx(ctx, func(tx *Repository) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nested Is Rejected", func(t *testing.T) {
		mock := newMock(t)
		repo := NewRepository(mock, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.WithTx(ctx, func(tx *Repository) error {
			return tx.WithTx(ctx, func(*Repository) error { return nil })
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already bound")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
