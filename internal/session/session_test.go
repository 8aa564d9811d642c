package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTouchCreatesThenReusesEntry(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	first := c.Touch("127.0.0.1:9000")
	require.NotEqual(t, first.SessionID.String(), "")

	second := c.Touch("127.0.0.1:9000")
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestMarkHandshakedAndIsHandshaked(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	assert.False(t, c.IsHandshaked("127.0.0.1:9001"))
	c.MarkHandshaked("127.0.0.1:9001")
	assert.True(t, c.IsHandshaked("127.0.0.1:9001"))
}

func TestDistinctPeersGetDistinctSessions(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Stop()

	a := c.Touch("127.0.0.1:9002")
	b := c.Touch("127.0.0.1:9003")
	assert.NotEqual(t, a.SessionID, b.SessionID)
}
