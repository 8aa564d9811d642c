package netio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesxfer/mesxfer/internal/wire"
)

// pipePeer is an in-memory udpPeer: sends from one side land in the other
// side's inbound queue, so the two handshake halves can run against each
// other without opening real sockets.
type pipePeer struct {
	mu     sync.Mutex
	inbox  [][]byte
	peer   *pipePeer
}

func newPipePair() (*pipePeer, *pipePeer) {
	a := &pipePeer{}
	b := &pipePeer{}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *pipePeer) Send(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.peer.mu.Lock()
	p.peer.inbox = append(p.peer.inbox, cp)
	p.peer.mu.Unlock()
	return nil
}

func (p *pipePeer) Recv(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inbox) == 0 {
		return 0, ErrWouldBlock
	}
	next := p.inbox[0]
	p.inbox = p.inbox[1:]
	n := copy(buf, next)
	return n, nil
}

func TestHandshakeQuorum(t *testing.T) {
	receiverSock, senderSock := newPipePair()

	var wg sync.WaitGroup
	var senderErr, receiverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		senderErr = RunSenderHandshake(senderSock)
	}()
	go func() {
		defer wg.Done()
		receiverErr = RunReceiverHandshake(receiverSock, DefaultApproveCount)
	}()
	wg.Wait()

	require.NoError(t, senderErr)
	require.NoError(t, receiverErr)
}

func TestReceiverHandshakeSendsApproveCount(t *testing.T) {
	receiverSock, senderSock := newPipePair()

	done := make(chan struct{})
	go func() {
		_ = RunReceiverHandshake(receiverSock, 2)
		close(done)
	}()

	buf := make([]byte, BufferSize)
	var got *wire.NetPacket
	for got == nil {
		n, err := senderSock.Recv(buf)
		if err == ErrWouldBlock {
			continue
		}
		require.NoError(t, err)
		pkt, err := wire.Decode(buf[:n])
		require.NoError(t, err)
		got = &pkt
	}
	assert.Equal(t, wire.EchoReqt, got.Head)
	require.Len(t, got.Data, 1)
	assert.Equal(t, byte(2), got.Data[0])

	// Unblock the receiver goroutine with the quorum of replies so the
	// test doesn't leak it.
	resp := wire.Encode(wire.NetPacket{Head: wire.EchoResp})
	require.NoError(t, senderSock.Send(resp))
	require.NoError(t, senderSock.Send(resp))
	<-done
}

func TestSenderHandshakeEmitsExactlyN(t *testing.T) {
	receiverSock, senderSock := newPipePair()

	done := make(chan struct{})
	go func() {
		_ = RunSenderHandshake(senderSock)
		close(done)
	}()

	req := wire.Encode(wire.NetPacket{Head: wire.EchoReqt, Data: []byte{4}})
	require.NoError(t, receiverSock.Send(req))

	<-done

	receiverSock.mu.Lock()
	echoes := len(receiverSock.inbox)
	receiverSock.mu.Unlock()
	assert.Equal(t, 4, echoes)

	for _, raw := range receiverSock.inbox {
		pkt, err := wire.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, wire.EchoResp, pkt.Head)
	}
}
