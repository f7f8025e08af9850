package testing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/kobject/pkg/store/metadata"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for metadata.Store implementations.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func() metadata.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() metadata.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Tree", suite.RunTreeTests)
	t.Run("Remove", suite.RunRemoveTests)
}

func testContext() context.Context {
	return context.Background()
}

func mustRoot(t *testing.T, store metadata.Store) *metadata.Node {
	t.Helper()
	root, err := store.Root(testContext())
	require.NoError(t, err)
	return root
}

func mustCreate(t *testing.T, store metadata.Store, parent uuid.UUID, name string, typ metadata.NodeType) *metadata.Node {
	t.Helper()
	node, err := store.Create(testContext(), parent, name, typ)
	require.NoError(t, err)
	return node
}

// AssertCode checks that err is a StoreError with the expected code.
func AssertCode(t *testing.T, code metadata.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, metadata.IsCode(err, code), "expected code %d, got %v", code, err)
}
