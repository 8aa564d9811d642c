package netio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigServerOneEndpoint(t *testing.T) {
	cfg, err := ParseConfig("0.0.0.0:9700")
	require.NoError(t, err)
	assert.Equal(t, RoleServer, cfg.Role())
	assert.Equal(t, Blocking, cfg.Mode)
	assert.Equal(t, Endpoint{Addr: "0.0.0.0", Port: 9700}, cfg.Local())
}

func TestParseConfigClientTwoEndpointsWithMode(t *testing.T) {
	cfg, err := ParseConfig("127.0.0.1:9800 10.0.0.1:9700 mode=nonblocking")
	require.NoError(t, err)
	assert.Equal(t, RoleClient, cfg.Role())
	assert.Equal(t, NonBlocking, cfg.Mode)
	assert.Equal(t, Endpoint{Addr: "127.0.0.1", Port: 9800}, cfg.Local())
	assert.Equal(t, Endpoint{Addr: "10.0.0.1", Port: 9700}, cfg.Remote())
}

func TestParseConfigNeverPanicsOnMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"no-port-here",
		":9700",
		"1.2.3.4:notaport",
		"1.2.3.4:9700 1.2.3.5:9701 1.2.3.6:9702",
		"1.2.3.4:9700 mode=sideways",
	}
	for _, c := range cases {
		assert.NotPanics(t, func() {
			_, err := ParseConfig(c)
			assert.Error(t, err)
		}, "input: %q", c)
	}
}

func TestParseConfigEmptyStringIsError(t *testing.T) {
	_, err := ParseConfig("")
	assert.Error(t, err)
}
