package testing

import (
	"testing"

	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes all write, truncate and delete tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteAt_Creates", suite.testWriteCreates)
	t.Run("WriteAt_Overwrite", suite.testWriteOverwrite)
	t.Run("WriteAt_Sparse", suite.testWriteSparse)
	t.Run("Truncate_Shrink", suite.testTruncateShrink)
	t.Run("Truncate_Grow", suite.testTruncateGrow)
	t.Run("Truncate_NotFound", suite.testTruncateNotFound)
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
}

// ============================================================================
// WriteAt Tests
// ============================================================================

func (suite *StoreTestSuite) testWriteCreates(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("write-creates")
	mustWrite(t, store, id, []byte("data"), 0)

	assert.Equal(t, uint64(4), mustGetSize(t, store, id))
}

func (suite *StoreTestSuite) testWriteOverwrite(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("write-overwrite")
	mustWrite(t, store, id, []byte("hello world"), 0)
	mustWrite(t, store, id, []byte("HELLO"), 0)

	assert.Equal(t, []byte("HELLO world"), mustReadAll(t, store, id))
}

func (suite *StoreTestSuite) testWriteSparse(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("write-sparse")
	mustWrite(t, store, id, []byte("ab"), 0)
	mustWrite(t, store, id, []byte("z"), 5)

	assert.Equal(t, []byte{'a', 'b', 0, 0, 0, 'z'}, mustReadAll(t, store, id))
}

// ============================================================================
// Truncate Tests
// ============================================================================

func (suite *StoreTestSuite) testTruncateShrink(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("truncate-shrink")
	mustWrite(t, store, id, []byte("0123456789"), 0)

	require.NoError(t, store.Truncate(testContext(), id, 4))
	assert.Equal(t, []byte("0123"), mustReadAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateGrow(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("truncate-grow")
	mustWrite(t, store, id, []byte("ab"), 0)

	require.NoError(t, store.Truncate(testContext(), id, 4))
	assert.Equal(t, []byte{'a', 'b', 0, 0}, mustReadAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateNotFound(t *testing.T) {
	store := suite.NewStore()

	err := store.Truncate(testContext(), generateTestID("truncate-missing"), 10)
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

// ============================================================================
// Delete Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("delete-success")
	mustWrite(t, store, id, []byte("bye"), 0)

	require.NoError(t, store.Delete(testContext(), id))

	_, err := store.Size(testContext(), id)
	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("delete-idempotent")
	require.NoError(t, store.Delete(testContext(), id))
	require.NoError(t, store.Delete(testContext(), id))
}
