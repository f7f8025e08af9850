package testing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/kobject/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeTests covers root, create, lookup, list and size updates.
func (suite *StoreTestSuite) RunTreeTests(t *testing.T) {
	t.Run("Root", suite.testRoot)
	t.Run("CreateAndLookup", suite.testCreateAndLookup)
	t.Run("CreateDuplicate", suite.testCreateDuplicate)
	t.Run("CreateInvalidName", suite.testCreateInvalidName)
	t.Run("CreateUnderFile", suite.testCreateUnderFile)
	t.Run("LookupMissing", suite.testLookupMissing)
	t.Run("GetMissing", suite.testGetMissing)
	t.Run("ListSorted", suite.testListSorted)
	t.Run("ListEmpty", suite.testListEmpty)
	t.Run("SetSize", suite.testSetSize)
	t.Run("ReturnedNodesAreCopies", suite.testReturnedCopies)
}

func (suite *StoreTestSuite) testRoot(t *testing.T) {
	store := suite.NewStore()

	root := mustRoot(t, store)
	assert.True(t, root.IsDir())
	assert.Equal(t, root.ID, root.Parent)

	again := mustRoot(t, store)
	assert.Equal(t, root.ID, again.ID)
}

func (suite *StoreTestSuite) testCreateAndLookup(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	file := mustCreate(t, store, root.ID, "notes.txt", metadata.NodeFile)
	dir := mustCreate(t, store, root.ID, "docs", metadata.NodeDirectory)

	assert.Equal(t, metadata.NodeFile, file.Type)
	assert.NotEmpty(t, file.ContentID)
	assert.Equal(t, root.ID, file.Parent)
	assert.Empty(t, dir.ContentID)

	found, err := store.Lookup(testContext(), root.ID, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, file.ID, found.ID)

	found, err = store.Get(testContext(), dir.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs", found.Name)
	assert.True(t, found.IsDir())
}

func (suite *StoreTestSuite) testCreateDuplicate(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	mustCreate(t, store, root.ID, "a", metadata.NodeFile)
	_, err := store.Create(testContext(), root.ID, "a", metadata.NodeDirectory)

	AssertCode(t, metadata.ErrAlreadyExists, err)
}

func (suite *StoreTestSuite) testCreateInvalidName(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	for _, name := range []string{"", ".", "..", "a/b", "nul\x00"} {
		_, err := store.Create(testContext(), root.ID, name, metadata.NodeFile)
		AssertCode(t, metadata.ErrInvalidArgument, err)
	}
}

func (suite *StoreTestSuite) testCreateUnderFile(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	file := mustCreate(t, store, root.ID, "f", metadata.NodeFile)
	_, err := store.Create(testContext(), file.ID, "child", metadata.NodeFile)

	AssertCode(t, metadata.ErrNotDirectory, err)
}

func (suite *StoreTestSuite) testLookupMissing(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	_, err := store.Lookup(testContext(), root.ID, "ghost")
	AssertCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.NewStore()

	_, err := store.Get(testContext(), uuid.New())
	AssertCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testListSorted(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	for _, name := range []string{"c", "a", "b"} {
		mustCreate(t, store, root.ID, name, metadata.NodeFile)
	}

	nodes, err := store.List(testContext(), root.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a", nodes[0].Name)
	assert.Equal(t, "b", nodes[1].Name)
	assert.Equal(t, "c", nodes[2].Name)
}

func (suite *StoreTestSuite) testListEmpty(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	nodes, err := store.List(testContext(), root.ID)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func (suite *StoreTestSuite) testSetSize(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	file := mustCreate(t, store, root.ID, "f", metadata.NodeFile)
	require.NoError(t, store.SetSize(testContext(), file.ID, 42))

	got, err := store.Get(testContext(), file.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Size)
	assert.False(t, got.Mtime.Before(file.Mtime))

	err = store.SetSize(testContext(), uuid.New(), 1)
	AssertCode(t, metadata.ErrNotFound, err)
}

func (suite *StoreTestSuite) testReturnedCopies(t *testing.T) {
	store := suite.NewStore()
	root := mustRoot(t, store)

	file := mustCreate(t, store, root.ID, "f", metadata.NodeFile)
	file.Size = 999

	got, err := store.Get(testContext(), file.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got.Size)
}
