package netio

import (
	"time"

	"github.com/mesxfer/mesxfer/internal/metrics"
	"github.com/mesxfer/mesxfer/internal/wire"
)

// DefaultApproveCount is the handshake's "N": the number of EchoResp
// envelopes the receiver demands before declaring the UDP session
// connected.
const DefaultApproveCount = 3

// staleIdle is the sleep between handshake iterations that made no
// progress.
const staleIdle = 100 * time.Millisecond

// udpPeer is the minimal Send/Recv surface the handshake needs; both
// udpSocket and tests can satisfy it.
type udpPeer interface {
	Send(data []byte) error
	Recv(buf []byte) (int, error)
}

// RunReceiverHandshake drives the receiver/initiator side of the UDP
// session handshake: send EchoReqt carrying approveCount, count EchoResp
// replies, and keep re-requesting until the quorum is reached. It runs to
// completion synchronously; the handshake is not cancellable.
func RunReceiverHandshake(sock udpPeer, approveCount byte) error {
	buf := make([]byte, BufferSize)
	counter := 0

	for counter < int(approveCount) {
		req := wire.Encode(wire.NetPacket{Head: wire.EchoReqt, Data: []byte{approveCount}})
		if err := sock.Send(req); err != nil && err != ErrWouldBlock {
			return err
		}

		progressed := false
		for {
			n, err := sock.Recv(buf)
			if err != nil {
				if err == ErrWouldBlock {
					break
				}
				return err
			}
			pkt, err := wire.Decode(buf[:n])
			if err != nil {
				break
			}
			if pkt.Head == wire.EchoResp {
				counter++
				progressed = true
				if counter >= int(approveCount) {
					break
				}
			}
		}

		if !progressed {
			metrics.HandshakeRetries.Inc()
			time.Sleep(staleIdle)
		}
	}
	return nil
}

// RunSenderHandshake drives the sender/responder side of the UDP session
// handshake: wait for EchoReqt, capture the peer's requested count, and
// emit that many EchoResp envelopes.
func RunSenderHandshake(sock udpPeer) error {
	buf := make([]byte, BufferSize)
	var approveCount byte
	haveCount := false
	sent := 0

	for !haveCount || sent < int(approveCount) {
		if !haveCount {
			n, err := sock.Recv(buf)
			if err != nil {
				if err == ErrWouldBlock {
					metrics.HandshakeRetries.Inc()
					time.Sleep(staleIdle)
					continue
				}
				return err
			}
			pkt, err := wire.Decode(buf[:n])
			if err != nil || pkt.Head != wire.EchoReqt || len(pkt.Data) < 1 {
				continue
			}
			approveCount = pkt.Data[0]
			haveCount = true
			continue
		}

		resp := wire.Encode(wire.NetPacket{Head: wire.EchoResp})
		if err := sock.Send(resp); err != nil {
			if err == ErrWouldBlock {
				metrics.HandshakeRetries.Inc()
				time.Sleep(staleIdle)
				continue
			}
			return err
		}
		sent++
	}
	return nil
}
