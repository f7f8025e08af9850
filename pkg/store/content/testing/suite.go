package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/marmos91/kobject/pkg/store/content"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a comprehensive test suite for content.Store implementations.
// It tests the interface contract, not implementation details, making it reusable
// across different implementations (memory, filesystem, S3).
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func() content.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Store instance
	// for each test. This ensures test isolation.
	NewStore func() content.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
	t.Run("List", suite.testList)
}

// testList checks listing for stores that implement content.Lister.
func (suite *StoreTestSuite) testList(t *testing.T) {
	store := suite.NewStore()
	lister, ok := store.(content.Lister)
	if !ok {
		t.Skip("store does not implement content.Lister")
	}

	a := generateTestID("list-a")
	b := generateTestID("list-b")
	mustWrite(t, store, a, []byte("a"), 0)
	mustWrite(t, store, b, []byte("b"), 0)

	ids, err := lister.List(testContext())
	require.NoError(t, err)
	require.Contains(t, ids, a)
	require.Contains(t, ids, b)

	require.NoError(t, store.Delete(testContext(), a))

	ids, err = lister.List(testContext())
	require.NoError(t, err)
	require.NotContains(t, ids, a)
	require.Contains(t, ids, b)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

var testIDCounter int

// generateTestID returns a unique content ID for one test.
func generateTestID(name string) content.ContentID {
	testIDCounter++
	return content.ContentID(fmt.Sprintf("test-%s-%d", name, testIDCounter))
}

// generateTestData returns size bytes of a repeating pattern.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func mustWrite(t *testing.T, store content.Store, id content.ContentID, data []byte, offset int64) {
	t.Helper()
	n, err := store.WriteAt(testContext(), id, data, offset)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

func mustReadAll(t *testing.T, store content.Store, id content.ContentID) []byte {
	t.Helper()
	size := mustGetSize(t, store, id)
	buf := make([]byte, size)
	n, err := store.ReadAt(testContext(), id, buf, 0)
	require.NoError(t, err)
	return buf[:n]
}

func mustGetSize(t *testing.T, store content.Store, id content.ContentID) uint64 {
	t.Helper()
	size, err := store.Size(testContext(), id)
	require.NoError(t, err)
	return size
}

// AssertErrorIs checks that err wraps target.
func AssertErrorIs(t *testing.T, target, err error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, target)
}
