package kobject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceReadTargetsBlockZero(t *testing.T) {
	d := newFakeDevice(512, 8)
	copy(d.data, []byte("boot"))
	k := NewDevice(d)

	buf := make([]byte, 1300)
	n, err := k.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1024, n, "only whole blocks are transferred")
	assert.Equal(t, 0, d.lastStart)
	assert.Equal(t, 2, d.lastCount)
	assert.Equal(t, "boot", string(buf[:4]))
	assert.Equal(t, int64(1024), k.Offset())

	// The offset never selects the block
	_, err = k.Read(buf, IONonBlock)
	require.NoError(t, err)
	assert.Equal(t, 0, d.lastStart)
	assert.True(t, d.nonblock)
}

func TestDeviceWriteTargetsBlockZero(t *testing.T) {
	d := newFakeDevice(4, 4)
	k := NewDevice(d)

	n, err := k.Write([]byte("abcdefghij"), 0)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 0, d.lastStart)
	assert.Equal(t, "abcdefgh", string(d.data[:8]))
	assert.Equal(t, int64(0), k.Offset(), "device writes leave the offset alone")
}

func TestDeviceZeroBlockSize(t *testing.T) {
	d := &fakeDevice{recorder: recorder{refs: 1}}
	k := NewDevice(d)
	_, err := k.Read(make([]byte, 8), 0)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, d.calls)
}

func TestReadNonBlockFlagSelection(t *testing.T) {
	tests := []struct {
		kind     Kind
		blocking string
		nonblock string
	}{
		{KindPipe, "read", "read_nonblock"},
		{KindWindow, "read_events", "read_events_nonblock"},
		{KindConsole, "read", "read_nonblock"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			k, rec := fixture(tt.kind)
			_, err := k.Read(make([]byte, 4), 0)
			require.NoError(t, err)
			_, err = k.Read(make([]byte, 4), IONonBlock)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.blocking, tt.nonblock}, rec.calls)
		})
	}
}

func TestReadAdvancesOffsetForEveryKind(t *testing.T) {
	p := newFakePipe()
	p.buf = []byte("stream")
	k := NewPipe(p)

	n, err := k.Read(make([]byte, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), k.Offset())

	// Zero-byte reads do not move the cursor
	p.buf = nil
	n, err = k.Read(make([]byte, 4), IONonBlock)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(4), k.Offset())
}

func TestWindowWritePostFlag(t *testing.T) {
	w := newFakeWindow(100, 100)
	k := NewWindow(w)

	_, err := k.Write([]byte{1, 2, 3}, 0)
	require.NoError(t, err)
	_, err = k.Write([]byte{9}, IOPost)
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 2, 3}, w.graphics)
	assert.Equal(t, []byte{9}, w.events)

	buf := make([]byte, 8)
	n, err := k.Read(buf, IONonBlock)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, buf[:n])
}

func TestConsoleWritePostFlag(t *testing.T) {
	k, err := NewWindow(newFakeWindow(80, 80)).CreateConsole(fakeBinder{})
	require.NoError(t, err)

	_, err = k.Write([]byte("shown"), 0)
	require.NoError(t, err)
	_, err = k.Write([]byte("typed"), IOPost)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := k.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "typed", string(buf[:n]))
}

func TestPipeWriteNonBlockFlag(t *testing.T) {
	p := newFakePipe()
	k := NewPipe(p)
	_, _ = k.Write([]byte("a"), 0)
	_, _ = k.Write([]byte("b"), IONonBlock)
	assert.Equal(t, []string{"write", "write_nonblock"}, p.calls)
	assert.Equal(t, int64(0), k.Offset())
}

func TestDirectoryWriteIsNoOp(t *testing.T) {
	k, rec := fixture(KindDirectory)
	n, err := k.Write([]byte("ignored"), 0)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.calls)
}

type failingPipe struct{ fakePipe }

var errBroken = errors.New("broken pipe")

func (p *failingPipe) Read(buf []byte) (int, error) { return 2, errBroken }

func TestBackendErrorsPassThrough(t *testing.T) {
	p := &failingPipe{fakePipe: fakePipe{recorder: recorder{refs: 1}}}
	k := NewPipe(p)

	n, err := k.Read(make([]byte, 4), 0)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, int64(2), k.Offset(), "partial transfers still advance the cursor")
}
