package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// newTestSQLiteStore opens an isolated in-memory database per test.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%s?mode=memory&cache=shared", ulid.Make().String())
	s, err := NewSQLiteStore(context.Background(), dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository {
		return newTestSQLiteStore(t)
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "cigarros.db")

	first, err := NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)

	created, err := first.Create(ctx, newTestCigarro("Original"))
	require.NoError(t, err)
	_, err = first.UpdateQuantity(ctx, created.ID, 10, 42)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(ctx, dsn)
	require.NoError(t, err)
	defer second.Close()

	found, err := second.FindByName(ctx, "Original")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 42, found.Quantity)
	assert.Equal(t, model.TypeLager, found.Type)
}

func TestSQLiteStore_UniqueViolationMapped(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, newTestCigarro("Twice"))
	require.NoError(t, err)

	_, err = s.Create(ctx, newTestCigarro("Twice"))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestSQLiteStore_ClosedDatabase(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.Close())

	assert.Error(t, s.Ping(context.Background()))

	_, err := s.FindAll(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InvalidDSN(t *testing.T) {
	_, err := NewSQLiteStore(context.Background(), "file:"+filepath.Join(t.TempDir(), "missing", "dir", "x.db")+"?mode=ro")
	assert.Error(t, err)
}

func TestSQLiteStore_ImplementsInterface(_ *testing.T) {
	var _ Repository = (*SQLiteStore)(nil)
}
