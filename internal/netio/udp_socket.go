package netio

import (
	"context"
	"fmt"
	"net"
	"time"
)

// udpSocket implements Socket over UDP. UDP has no connect/accept step at
// the transport level, so both roles simply bind a local endpoint; the
// server role additionally learns its peer's address from the first
// datagram it receives (or from a completed handshake, see handshake.go),
// while the client role resolves the configured remote endpoint up front.
type udpSocket struct {
	socketBase

	conn *net.UDPConn
	peer *net.UDPAddr
}

func (s *udpSocket) Open() error {
	return nil
}

func (s *udpSocket) Setup(configStr string) error {
	if err := s.setup(configStr); err != nil {
		return err
	}

	local := s.cfg.Local()
	lc := net.ListenConfig{Control: controlReuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp", local.String())
	if err != nil {
		return fmt.Errorf("netio: udp listen %s: %w", local, err)
	}
	s.conn = pc.(*net.UDPConn)

	if s.cfg.Role() == RoleClient {
		remote := s.cfg.Remote()
		raddr, err := net.ResolveUDPAddr("udp", remote.String())
		if err != nil {
			return fmt.Errorf("netio: udp resolve %s: %w", remote, err)
		}
		s.peer = raddr
	}
	return nil
}

// Connect is a no-op for UDP: there is no transport-level handshake to
// perform here. The session-level handshake (EchoReqt/EchoResp quorum)
// that replaces TCP's connect/accept is driven separately by the
// sender/receiver state machines via handshake.go, after Connect returns.
func (s *udpSocket) Connect() error {
	return nil
}

func (s *udpSocket) Send(data []byte) error {
	if s.conn == nil {
		return fmt.Errorf("netio: udp send: not set up")
	}
	if s.peer == nil {
		return fmt.Errorf("netio: udp send: peer unknown")
	}
	if s.cfg.Mode == NonBlocking {
		_ = s.conn.SetWriteDeadline(s.deadline())
	} else {
		_ = s.conn.SetWriteDeadline(time.Time{})
	}

	n, err := s.conn.WriteToUDP(data, s.peer)
	if err != nil {
		if isTimeout(err) {
			return ErrWouldBlock
		}
		return fmt.Errorf("netio: udp send: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("netio: udp send: short write %d of %d bytes", n, len(data))
	}
	return nil
}

// Recv reads one datagram. On the server role it learns (or confirms) the
// peer address from whoever sent it, since the server side doesn't need a
// pre-configured remote endpoint for UDP.
func (s *udpSocket) Recv(buf []byte) (int, error) {
	if s.conn == nil {
		return 0, fmt.Errorf("netio: udp recv: not set up")
	}
	if s.cfg.Mode == NonBlocking {
		_ = s.conn.SetReadDeadline(s.deadline())
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, ErrWouldBlock
		}
		return 0, fmt.Errorf("netio: udp recv: %w", err)
	}
	if s.cfg.Role() == RoleServer {
		s.peer = from
	}
	return n, nil
}

func (s *udpSocket) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *udpSocket) Name() string {
	if s.peer != nil {
		return s.name(s.peer)
	}
	return s.name(s.cfg.Local())
}
