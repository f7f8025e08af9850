package testing

import (
	"testing"

	"github.com/marmos91/kobject/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRemoveTests covers unlinking files and directories.
func (suite *StoreTestSuite) RunRemoveTests(t *testing.T) {
	t.Run("RemoveFile", suite.testRemoveFile)
	t.Run("RemoveEmptyDirectory", suite.testRemoveEmptyDirectory)
	t.Run("RemoveNonEmptyDirectory", suite.testRemoveNonEmptyDirectory)
	t.Run("RemoveMissing", suite.testRemoveMissing)
}

func (suite *StoreTestSuite) testRemoveFile(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	file := mustCreate(t, store, root.ID, "f", metadata.NodeFile)

	removed, err := store.Remove(testContext(), root.ID, "f")
	require.NoError(t, err)
	assert.Equal(t, file.ID, removed.ID)
	assert.Equal(t, file.ContentID, removed.ContentID)

	_, err = store.Get(testContext(), file.ID)
	AssertCode(t, metadata.ErrNotFound, err)

	_, err = store.Lookup(testContext(), root.ID, "f")
	AssertCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testRemoveEmptyDirectory(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	mustCreate(t, store, root.ID, "d", metadata.NodeDirectory)

	_, err := store.Remove(testContext(), root.ID, "d")
	require.NoError(t, err)

	nodes, err := store.List(testContext(), root.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func (suite *StoreTestSuite) testRemoveNonEmptyDirectory(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	dir := mustCreate(t, store, root.ID, "d", metadata.NodeDirectory)
	mustCreate(t, store, dir.ID, "inner", metadata.NodeFile)

	_, err := store.Remove(testContext(), root.ID, "d")
	AssertCode(t, metadata.ErrNotEmpty, err)

	// Emptying the directory allows removal
	_, err = store.Remove(testContext(), dir.ID, "inner")
	require.NoError(t, err)
	_, err = store.Remove(testContext(), root.ID, "d")
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testRemoveMissing(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	_, err := store.Remove(testContext(), root.ID, "ghost")
	AssertCode(t, metadata.ErrNotFound, err)
}
