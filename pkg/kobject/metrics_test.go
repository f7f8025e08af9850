package kobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMetrics struct {
	live  map[string]int
	ops   map[string]int
	errs  map[string]int
	bytes map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		live:  map[string]int{},
		ops:   map[string]int{},
		errs:  map[string]int{},
		bytes: map[string]int{},
	}
}

func (m *recordingMetrics) RecordCreated(kind string)   { m.live[kind]++ }
func (m *recordingMetrics) RecordDestroyed(kind string) { m.live[kind]-- }

func (m *recordingMetrics) RecordOperation(operation string, kind string, err error) {
	m.ops[operation+"/"+kind]++
	if err != nil {
		m.errs[operation+"/"+kind]++
	}
}

func (m *recordingMetrics) RecordBytes(direction string, kind string, bytes int) {
	m.bytes[direction] += bytes
}

func TestMetricsInheritedByDerivedHandles(t *testing.T) {
	m := newRecordingMetrics()
	root := newFakeDir()
	root.children["f"] = newFakeFile("payload")

	dir := NewDirectory(root, WithMetrics(m))
	f, err := dir.Lookup("f")
	require.NoError(t, err)
	dup := f.Copy()

	assert.Equal(t, 1, m.live["directory"])
	assert.Equal(t, 2, m.live["file"])

	_, err = dup.Read(make([]byte, 3), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, m.bytes["read"])

	_, err = f.List(make([]byte, 8))
	require.Error(t, err)
	assert.Equal(t, 1, m.errs["list/file"])

	f.Close()
	dup.Close()
	assert.Equal(t, 0, m.live["file"])
}

func TestNilMetricsOptionKeepsNoop(t *testing.T) {
	k := NewPipe(newFakePipe(), WithMetrics(nil))
	_, err := k.Write([]byte("x"), 0)
	assert.NoError(t, err)
}
