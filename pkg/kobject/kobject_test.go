package kobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsStartFresh(t *testing.T) {
	for _, kind := range AllKinds() {
		k, rec := fixture(kind)
		assert.Equal(t, kind, k.Kind())
		assert.Equal(t, 1, k.Refcount())
		assert.Equal(t, int64(0), k.Offset())
		_, ok := k.Tag()
		assert.False(t, ok)
		assert.Equal(t, 1, rec.refs, "constructor takes over the caller's reference")
	}
}

func TestAddRefThenCloseTwice(t *testing.T) {
	for _, kind := range AllKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			k, rec := fixture(kind)

			alias := k.AddRef()
			require.Same(t, k, alias)
			assert.Equal(t, 2, k.Refcount())

			k.Close()
			assert.Equal(t, 1, k.Refcount())
			assert.Zero(t, rec.releases, "resource destroyed after first close")

			k.Close()
			assert.Equal(t, 0, k.Refcount())
			assert.Equal(t, 1, rec.releases)
		})
	}
}

func TestAliasesShareOffsetAndTag(t *testing.T) {
	f := newFakeFile("abcdef")
	k := NewFile(f)
	alias := k.AddRef()

	buf := make([]byte, 2)
	_, err := alias.Read(buf, 0)
	require.NoError(t, err)
	require.NoError(t, alias.SetTag("shared"))

	assert.Equal(t, int64(2), k.Offset())
	tag, ok := k.Tag()
	assert.True(t, ok)
	assert.Equal(t, "shared", tag)
}

func TestCopySurvivesClosingOriginal(t *testing.T) {
	for _, kind := range AllKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			k, rec := fixture(kind)
			dup := k.Copy()
			require.NotNil(t, dup)
			require.NotSame(t, k, dup)
			assert.Equal(t, 2, rec.refs)

			k.Close()
			assert.Equal(t, 1, rec.releases)
			assert.Equal(t, 1, rec.refs, "copy still holds the resource")

			dims := make([]int, kind.Dimensions())
			assert.NoError(t, dup.Size(dims))

			dup.Close()
			assert.Equal(t, 2, rec.releases)
			assert.Equal(t, 0, rec.refs)
		})
	}
}

func TestCopyResetsOffsetAndIsIndependent(t *testing.T) {
	f := newFakeFile("0123456789")
	k := NewFile(f)

	buf := make([]byte, 4)
	_, err := k.Read(buf, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4), k.Offset())

	dup := k.Copy()
	assert.Equal(t, int64(0), dup.Offset())
	assert.Equal(t, 1, dup.Refcount())

	n, err := dup.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))
	assert.Equal(t, int64(4), dup.Offset())
	_, err = dup.Read(buf, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(4), k.Offset(), "copy I/O must not move the source offset")
}

func TestCopyDuplicatesTag(t *testing.T) {
	k, _ := fixture(KindWindow)
	require.NoError(t, k.SetTag("main"))

	dup := k.Copy()
	tag, ok := dup.Tag()
	require.True(t, ok)
	assert.Equal(t, "main", tag)

	require.NoError(t, dup.SetTag("other"))
	tag, _ = k.Tag()
	assert.Equal(t, "main", tag)

	untagged, _ := fixture(KindPipe)
	_, ok = untagged.Copy().Tag()
	assert.False(t, ok)
}

func TestWriteThenReadThroughCopy(t *testing.T) {
	f := newFakeFile("")
	k := NewFile(f)
	payload := []byte("kernel objects")

	n, err := k.Write(payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	assert.Equal(t, int64(len(payload)), k.Offset())

	dup := k.Copy()
	got := make([]byte, len(payload))
	n, err = dup.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)
}

func TestPipeCloseWithAliasesFlushes(t *testing.T) {
	p := newFakePipe()
	k := NewPipe(p)
	k.AddRef()

	k.Close()
	assert.Equal(t, 1, p.flushes)
	assert.Zero(t, p.releases)

	k.Close()
	assert.Equal(t, 1, p.flushes, "final close destroys without flushing")
	assert.Equal(t, 1, p.releases)
}

func TestNonPipeCloseDoesNotFlush(t *testing.T) {
	k, rec := fixture(KindFile)
	k.AddRef()
	k.Close()
	assert.NotContains(t, rec.calls, "flush")
}

func TestDestroyedHandle(t *testing.T) {
	k, rec := fixture(KindFile)
	k.Close()
	require.Equal(t, 1, rec.releases)

	_, err := k.Read(make([]byte, 4), 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, k.Size(make([]int, 1)), ErrInvalidRequest)
	assert.Nil(t, k.Copy())

	k.Close()
	k.AddRef()
	assert.Equal(t, 1, rec.releases, "release runs exactly once")
	assert.Equal(t, 0, k.Refcount())
}
