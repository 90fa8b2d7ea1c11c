package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "ns1", "a.txt", []byte("alpha")))
	require.NoError(t, store.Upload(ctx, "ns1", "b.txt", []byte("beta")))
	require.NoError(t, store.Upload(ctx, "ns2", "c.txt", []byte("gamma")))

	data, err := store.Download(ctx, "ns1", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), data)

	names, err := store.List(ctx, "ns1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestLocalStoreOverwrite(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "ns", "f", []byte("v1")))
	require.NoError(t, store.Upload(ctx, "ns", "f", []byte("v2")))

	data, err := store.Download(ctx, "ns", "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestLocalStoreMissingFile(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "ns", "absent")
	assert.Error(t, err)
	_, err = store.List(context.Background(), "empty-ns")
	assert.Error(t, err)
}
