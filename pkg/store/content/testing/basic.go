package testing

import (
	"testing"

	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes all basic read and size tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadAt_NotFound", suite.testReadNotFound)
	t.Run("ReadAt_Success", suite.testReadSuccess)
	t.Run("ReadAt_Offset", suite.testReadOffset)
	t.Run("ReadAt_PastEnd", suite.testReadPastEnd)
	t.Run("ReadAt_NegativeOffset", suite.testReadNegativeOffset)
	t.Run("ReadAt_LargeContent", suite.testReadLarge)
	t.Run("Size_NotFound", suite.testSizeNotFound)
	t.Run("Size_Success", suite.testSizeSuccess)
}

// ============================================================================
// ReadAt Tests
// ============================================================================

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store := suite.NewStore()

	buf := make([]byte, 8)
	_, err := store.ReadAt(testContext(), generateTestID("nonexistent"), buf, 0)

	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testReadSuccess(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("read-success")
	testData := []byte("Hello, World!")
	mustWrite(t, store, id, testData, 0)

	assert.Equal(t, testData, mustReadAll(t, store, id))
}

func (suite *StoreTestSuite) testReadOffset(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("read-offset")
	mustWrite(t, store, id, []byte("0123456789"), 0)

	buf := make([]byte, 4)
	n, err := store.ReadAt(testContext(), id, buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("3456"), buf)

	// Short read at the tail
	n, err = store.ReadAt(testContext(), id, buf, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("89"), buf[:n])
}

func (suite *StoreTestSuite) testReadPastEnd(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("read-past-end")
	mustWrite(t, store, id, []byte("abc"), 0)

	buf := make([]byte, 4)
	n, err := store.ReadAt(testContext(), id, buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func (suite *StoreTestSuite) testReadNegativeOffset(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("read-negative")
	mustWrite(t, store, id, []byte("abc"), 0)

	_, err := store.ReadAt(testContext(), id, make([]byte, 1), -1)
	AssertErrorIs(t, content.ErrInvalidOffset, err)
}

func (suite *StoreTestSuite) testReadLarge(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("large")
	testData := generateTestData(1024 * 1024)
	mustWrite(t, store, id, testData, 0)

	assert.Equal(t, testData, mustReadAll(t, store, id))
}

// ============================================================================
// Size Tests
// ============================================================================

func (suite *StoreTestSuite) testSizeNotFound(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Size(testContext(), generateTestID("nonexistent-size"))

	AssertErrorIs(t, content.ErrContentNotFound, err)
}

func (suite *StoreTestSuite) testSizeSuccess(t *testing.T) {
	store := suite.NewStore()

	id := generateTestID("size-success")
	testData := []byte("Test data for size")
	mustWrite(t, store, id, testData, 0)

	assert.Equal(t, uint64(len(testData)), mustGetSize(t, store, id))
}
