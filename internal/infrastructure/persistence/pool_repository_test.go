package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPoolRepository_Get_NotFound(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := NewGormPoolRepository(mdb.DB)

	mdb.Mock.ExpectQuery(`SELECT .* FROM "capital_pools"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	mdb.ExpectationsWereMet(t)
}

func TestGormPoolRepository_Get_DatabaseError(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := NewGormPoolRepository(mdb.DB)

	mdb.Mock.ExpectQuery(`SELECT .* FROM "capital_pools"`).
		WillReturnError(assert.AnError)

	_, err := repo.Get(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
	mdb.ExpectationsWereMet(t)
}

func TestGormPoolRepository_FindShareHolder_NotFound(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := NewGormPoolRepository(mdb.DB)

	mdb.Mock.ExpectQuery(`SELECT .* FROM "share_holders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindShareHolder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	mdb.ExpectationsWereMet(t)
}
