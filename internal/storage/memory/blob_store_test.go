package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "bse/1/2024/06/01/a.pdf", "application/pdf", []byte("doc"))
	require.NoError(t, err)
	require.Equal(t, "memory://bse/1/2024/06/01/a.pdf", uri)

	data, ok := store.Get("bse/1/2024/06/01/a.pdf")
	require.True(t, ok)
	require.Equal(t, []byte("doc"), data)
	require.Equal(t, 1, store.Len())
}

func TestNoOpBlobStore(t *testing.T) {
	t.Parallel()

	uri, err := NoOpBlobStore{}.PutObject(context.Background(), "k", "application/pdf", []byte("doc"))
	require.NoError(t, err)
	require.Equal(t, "noop://k", uri)
}
