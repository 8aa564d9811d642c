package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(RoleSender, 7, "hello world")
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, RoleSender, got.Role)
	assert.Equal(t, uint64(7), got.Sequence)
	assert.Equal(t, "hello world", got.Line)
}

type stubPublisher struct {
	published [][]byte
}

func (p *stubPublisher) Publish(data []byte) error {
	p.published = append(p.published, data)
	return nil
}

func TestForwardingSinkIncrementsSequence(t *testing.T) {
	pub := &stubPublisher{}
	fs := NewForwardingSink(pub, RoleReceiver, nil)

	fs.AppendLine("one")
	fs.AppendLine("two")

	require.Len(t, pub.published, 2)

	var first, second Event
	require.NoError(t, json.Unmarshal(pub.published[0], &first))
	require.NoError(t, json.Unmarshal(pub.published[1], &second))
	assert.Equal(t, uint64(1), first.Sequence)
	assert.Equal(t, uint64(2), second.Sequence)
}
