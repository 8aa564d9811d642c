package sink

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	lines []string
}

func (c *captureSink) AppendLine(line string) {
	c.lines = append(c.lines, line)
}

func TestLogrusSinkAppendLine(t *testing.T) {
	s := NewLogrusSink(nil, nil)
	require.NotPanics(t, func() { s.AppendLine("hello") })
}

func TestQueuedSinkDrainsToDownstream(t *testing.T) {
	dir := t.TempDir()
	downstream := &captureSink{}

	qs, err := NewQueuedSink(filepath.Join(dir, "queue"), downstream, nil, nil)
	require.NoError(t, err)
	defer qs.Close()

	qs.AppendLine("first")
	qs.AppendLine("second")

	require.Eventually(t, func() bool {
		return len(downstream.lines) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, downstream.lines)
}

func TestQueuedSinkSpillsToDisk(t *testing.T) {
	dir := t.TempDir()
	downstream := &captureSink{}

	qs, err := NewQueuedSink(filepath.Join(dir, "queue"), downstream, nil, nil)
	require.NoError(t, err)
	defer qs.Close()
	qs.maxInMem = 2

	for i := 0; i < 10; i++ {
		qs.AppendLine("line")
	}

	require.Eventually(t, func() bool {
		return len(downstream.lines) == 10
	}, 2*time.Second, 10*time.Millisecond)
}
