package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-status-backend/internal/model"
	"table-status-backend/internal/store/storetest"
)

func TestSeedIfEmpty(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx := context.Background()

	created, err := SeedIfEmpty(ctx, s, testCollection, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, created)

	tables, err := s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	require.Len(t, tables, 10)
	for _, tbl := range tables {
		assert.Equal(t, model.StatusAvailable, tbl.Status)
		assert.Empty(t, tbl.Order)
	}

	created, err = SeedIfEmpty(ctx, s, testCollection, 10)
	require.NoError(t, err)
	assert.Zero(t, created)

	tables, err = s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	assert.Len(t, tables, 10)
}

func TestSeedIfEmpty_LeavesPopulatedCollection(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx := context.Background()
	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-7", Fields{Status: statusPtr(model.StatusOccupied)}))

	created, err := SeedIfEmpty(ctx, s, testCollection, 10)
	require.NoError(t, err)
	assert.Zero(t, created)

	tables, err := s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, model.StatusOccupied, tables[0].Status)
}
