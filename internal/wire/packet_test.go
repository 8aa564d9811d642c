package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeScalar(t *testing.T) {
	got := Encode(NetPacket{Head: DataReqt})
	assert.Equal(t, []byte{0x00, 0x01}, got)
}

func TestDecodeScalar(t *testing.T) {
	p, err := Decode([]byte{0x00, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, FileSent, p.Head)
	assert.Empty(t, p.Data)
}

func TestDecodeUnknownHeadIsInvalidNotError(t *testing.T) {
	p, err := Decode([]byte{0x12, 0x34, 'x'})
	require.NoError(t, err)
	assert.Equal(t, CommandInvalid, p.Head.Command())
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0x01})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	cases := []NetPacket{
		{Head: DataReqt, Data: nil},
		{Head: DataResp, Data: []byte("hello")},
		{Head: EchoReqt, Data: []byte{3}},
		{Head: EchoResp, Data: []byte{}},
		{Head: FileSent, Data: nil},
	}
	for _, c := range cases {
		got, err := Decode(Encode(c))
		require.NoError(t, err)
		assert.Equal(t, c.Head, got.Head)
		if len(c.Data) == 0 {
			assert.Empty(t, got.Data)
		} else {
			assert.Equal(t, c.Data, got.Data)
		}
	}
}

func TestRoundTripMaxPayload(t *testing.T) {
	data := make([]byte, 8190)
	for i := range data {
		data[i] = byte(i)
	}
	p := NetPacket{Head: DataResp, Data: data}
	got, err := Decode(Encode(p))
	require.NoError(t, err)
	assert.Equal(t, p.Data, got.Data)
}
