package repository

import (
	"context"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migration = "../../../migrations/001_init_documents.sql"

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "overlay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background(), migration))
	return repo
}

func TestRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	doc, err := repo.Register(ctx, " Lease ", "https://files.example.com/lease.pdf", 4)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Lease", doc.Name)
	assert.Equal(t, 4, doc.PageCount)
	assert.NotEmpty(t, doc.CreatedAt)

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	h := got.Handle()
	assert.Equal(t, doc.URL, h.URL)
	assert.Equal(t, 4, h.Pages)
}

func TestRegisterDefaultsNameAndRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	doc, err := repo.Register(ctx, "", "/uploads/contract.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", doc.Name)
	assert.Zero(t, doc.PageCount)

	_, err = repo.Register(ctx, "x", "  ", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = repo.Register(ctx, "x", "/a.pdf", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetUnknown(t *testing.T) {
	_, err := newRepo(t).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListKeepsInsertOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	empty, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first, err := repo.Register(ctx, "one", "/1.pdf", 1)
	require.NoError(t, err)
	second, err := repo.Register(ctx, "two", "/2.pdf", 2)
	require.NoError(t, err)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, first.ID, docs[0].ID)
	assert.Equal(t, second.ID, docs[1].ID)

	// migrations are idempotent
	require.NoError(t, repo.Init(ctx, migration))
}
