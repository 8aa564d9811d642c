package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpointStringServer(t *testing.T) {
	c := RunConfig{ListenIP: "0.0.0.0", ListenPort: 9700}
	assert.Equal(t, "0.0.0.0:9700", c.EndpointString())
}

func TestEndpointStringClientWithMode(t *testing.T) {
	c := RunConfig{
		ListenIP:   "127.0.0.1",
		ListenPort: 9800,
		PeerAddr:   "127.0.0.1:9700",
		Mode:       "nonblocking",
	}
	assert.Equal(t, "127.0.0.1:9800 127.0.0.1:9700 mode=nonblocking", c.EndpointString())
}

func TestLoadAppliesDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load([]string{dir}, nil)
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal("0.0.0.0", cfg.ListenIP)
	assert.Equal(9700, cfg.ListenPort)
	assert.Equal("tcp", cfg.Protocol)
	assert.Equal(3, cfg.ApproveCount)
}
