package favorites

import (
	"errors"
	"testing"

	"pocketchef/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKV(t *testing.T) *database.KV {
	t.Helper()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return database.NewKV(db)
}

func TestToggleIsAnInvolution(t *testing.T) {
	kv := newKV(t)
	store := New(kv)
	require.NoError(t, store.Load())

	on, err := store.Toggle(7)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, store.IsFavorite(7))

	off, err := store.Toggle(7)
	require.NoError(t, err)
	assert.False(t, off)
	assert.False(t, store.IsFavorite(7))
	assert.Empty(t, store.IDs())
}

func TestEachTogglePersists(t *testing.T) {
	kv := newKV(t)
	store := New(kv)
	require.NoError(t, store.Load())

	_, err := store.Toggle(3)
	require.NoError(t, err)

	reloaded := New(kv)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.IsFavorite(3))
	assert.Equal(t, []int{3}, reloaded.IDs())

	_, err = store.Toggle(5)
	require.NoError(t, err)
	_, err = store.Toggle(3)
	require.NoError(t, err)

	require.NoError(t, reloaded.Load())
	assert.Equal(t, []int{5}, reloaded.IDs())
}

func TestLoadTreatsCorruptDataAsEmpty(t *testing.T) {
	kv := newKV(t)
	require.NoError(t, kv.Set(storageKey, "not json"))

	store := New(kv)
	require.NoError(t, store.Load())
	assert.Empty(t, store.IDs())
}

type failingStorage struct{ memory map[string]string }

func (f *failingStorage) Get(key string) (string, bool, error) {
	v, ok := f.memory[key]
	return v, ok, nil
}

func (f *failingStorage) Set(string, string) error { return errors.New("disk full") }

func (f *failingStorage) Delete(string) error { return nil }

func TestToggleRollsBackWhenSaveFails(t *testing.T) {
	store := New(&failingStorage{memory: map[string]string{}})
	require.NoError(t, store.Load())

	_, err := store.Toggle(9)
	require.Error(t, err)
	assert.False(t, store.IsFavorite(9))
}
