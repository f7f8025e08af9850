package memory

import (
	"context"
	"testing"

	"github.com/marmos91/kobject/pkg/store/content"
	storetesting "github.com/marmos91/kobject/pkg/store/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContentStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func() content.Store {
			store, err := NewMemoryContentStore(context.Background(), 0)
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestMemoryContentStore_MaxSize(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryContentStore(ctx, 8)
	require.NoError(t, err)

	_, err = store.WriteAt(ctx, "a", []byte("12345"), 0)
	require.NoError(t, err)

	_, err = store.WriteAt(ctx, "b", []byte("12345"), 0)
	assert.Error(t, err)

	// Freed space is reusable
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.WriteAt(ctx, "b", []byte("12345"), 0)
	assert.NoError(t, err)
}

func TestMemoryContentStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryContentStore(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.WriteAt(ctx, "a", []byte("x"), 0)
	assert.ErrorIs(t, err, content.ErrStoreClosed)
}

func TestMemoryContentStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryContentStore(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
