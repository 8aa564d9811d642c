package netio

import (
	"fmt"
	"os"
	"time"

	"github.com/mesxfer/mesxfer/internal/metrics"
	"github.com/mesxfer/mesxfer/internal/recfile"
	"github.com/mesxfer/mesxfer/internal/session"
	"github.com/mesxfer/mesxfer/internal/wire"
)

type senderState int

const (
	senderSetup senderState = iota
	senderConnect
	senderRecvPacket
	senderParsePacket
	senderLoadFile
	senderSendHeader
	senderSendPacket
	senderFinish
	senderDone
)

// finishLinger is how long Finish waits after sending FileSent before
// closing, to give the peer a chance to drain.
const finishLinger = 50 * time.Millisecond

// Sender implements the C6 state machine: accept or UDP-handshake a peer,
// stream a .mes file's header and records with inter-record pacing, and
// signal completion.
type Sender struct {
	Lifecycle

	sock     Socket
	proto    Protocol
	sink     LineSink
	filePath string
	sessions *session.Cache
	debug    bool

	state        senderState
	buf          []byte
	pending      wire.NetPacket
	headerIsSent bool
	nextIndex    int
	prevTime     uint32

	ix *recfile.Indexer
}

// NewSender builds a Sender bound to filePath, communicating over a socket
// constructed for proto labeled "sender". sink receives diagnostic lines;
// it may be nil.
func NewSender(proto Protocol, filePath string, sink LineSink) *Sender {
	return &Sender{
		sock:     New(proto, "sender"),
		proto:    proto,
		sink:     sink,
		filePath: filePath,
		buf:      make([]byte, BufferSize),
	}
}

// SetSessionCache attaches a peer liveness cache (C15). Purely diagnostic:
// it never skips or shortens the handshake, only logs whether the peer
// that just handshaked was already known.
func (s *Sender) SetSessionCache(c *session.Cache) {
	s.sessions = c
}

// SetDebug turns on per-packet/per-record tracing through the diagnostic
// sink. Off by default since it doubles the log volume of a transfer.
func (s *Sender) SetDebug(debug bool) {
	s.debug = debug
}

func (s *Sender) log(format string, args ...any) {
	if s.sink != nil {
		s.sink.AppendLine(fmt.Sprintf(format, args...))
	}
}

// Work runs the state machine until it reaches Finish or Stop is called.
// configStr is the endpoint configuration string (see ParseConfig).
func (s *Sender) Work(configStr string) {
	s.Start()
	s.state = senderSetup
	defer s.teardown()

	for s.ShouldContinue() && s.state != senderDone {
		next, slept := s.step(configStr)
		if !slept && next == s.state {
			idle(s.idleFor(s.state))
		}
		s.state = next
	}
}

func (s *Sender) idleFor(st senderState) time.Duration {
	switch st {
	case senderSetup, senderConnect:
		return setupIdle
	default:
		return ioIdle
	}
}

// step runs one state transition and reports whether it already slept (the
// pacing subroutine sleeps internally and shouldn't also pay the idle
// sleep).
func (s *Sender) step(configStr string) (senderState, bool) {
	switch s.state {
	case senderSetup:
		if err := s.sock.Open(); err != nil {
			s.log("sender: open: %v", err)
			return senderSetup, false
		}
		if err := s.sock.Setup(configStr); err != nil {
			s.log("sender: setup: %v", err)
			return senderSetup, false
		}
		return senderConnect, false

	case senderConnect:
		if err := s.sock.Connect(); err != nil {
			if err != ErrWouldBlock {
				s.log("sender: connect: %v", err)
			}
			return senderConnect, false
		}
		if s.proto == UDP {
			if err := RunSenderHandshake(s.sock); err != nil {
				s.log("sender: handshake: %v", err)
				return senderConnect, false
			}
			if s.sessions != nil {
				peer := s.sock.Name()
				if s.sessions.IsHandshaked(peer) {
					s.log("sender: peer %s re-handshaked within liveness window", peer)
				}
				s.sessions.MarkHandshaked(peer)
			}
		}
		s.log("sender: connected to %s", s.sock.Name())
		return senderRecvPacket, false

	case senderRecvPacket:
		n, err := s.sock.Recv(s.buf)
		if err != nil {
			if err != ErrWouldBlock {
				s.log("sender: recv: %v", err)
			}
			return senderRecvPacket, false
		}
		pkt, err := wire.Decode(s.buf[:n])
		if err != nil {
			s.log("sender: decode: %v", err)
			return senderRecvPacket, false
		}
		metrics.PacketsReceived.Inc()
		if s.debug && s.sink != nil {
			wire.DumpPacket(s.sink, "sender: recv", pkt)
		}
		s.pending = pkt
		return senderParsePacket, false

	case senderParsePacket:
		if s.pending.Head.Command() != wire.CommandData {
			return senderRecvPacket, false
		}
		if !s.headerIsSent {
			return senderLoadFile, false
		}
		return senderSendPacket, false

	case senderLoadFile:
		if err := s.loadFile(); err != nil {
			s.log("sender: load file: %v", err)
		}
		return senderSendHeader, false

	case senderSendHeader:
		if s.ix == nil {
			s.log("sender: send header: no file loaded")
			return senderFinish, false
		}
		header := s.ix.Slice(s.ix.HeaderRange())
		pkt := wire.NetPacket{Head: wire.DataResp, Data: header}
		if s.debug && s.sink != nil {
			recfile.DumpHeader(s.sink, s.ix.Header())
			wire.DumpPacket(s.sink, "sender: send header", pkt)
		}
		if err := s.sock.Send(wire.Encode(pkt)); err != nil {
			if err != ErrWouldBlock {
				s.log("sender: send header: %v", err)
			}
			return senderSendHeader, false
		}
		metrics.PacketsSent.Inc()
		metrics.BytesTransferred.Add(float64(len(header)))
		s.headerIsSent = true
		return senderRecvPacket, false

	case senderSendPacket:
		if s.ix == nil || s.nextIndex >= s.ix.PacketCount() {
			return senderFinish, false
		}
		s.sendRecord(s.nextIndex)
		return senderRecvPacket, true

	case senderFinish:
		env := wire.Encode(wire.NetPacket{Head: wire.FileSent})
		if err := s.sock.Send(env); err != nil {
			s.log("sender: send finish: %v", err)
		}
		time.Sleep(finishLinger)
		s.log("sender: finished")
		return senderDone, false
	}
	return s.state, false
}

// sendRecord runs the inter-record pacing subroutine and sends record i,
// advancing nextIndex on success.
func (s *Sender) sendRecord(i int) {
	rh, err := s.ix.GetPacketPtr(i)
	if err != nil {
		s.log("sender: record %d: %v", i, err)
		return
	}

	delta := time.Duration(int64(rh.Time)-int64(s.prevTime)) * time.Millisecond
	sleep := delta
	if sleep < 10*time.Millisecond {
		sleep = 10*time.Millisecond + 10*time.Millisecond
	}
	time.Sleep(sleep)
	metrics.PacingDelay.Observe(sleep.Seconds())

	rng := s.ix.PacketRange(i, s.sink)
	payload := s.ix.Slice(rng)
	pkt := wire.NetPacket{Head: wire.DataResp, Data: payload}
	if s.debug && s.sink != nil {
		recfile.DumpRecord(s.sink, i, rh)
		wire.DumpPacket(s.sink, "sender: send record", pkt)
	}
	if err := s.sock.Send(wire.Encode(pkt)); err != nil {
		if err != ErrWouldBlock {
			s.log("sender: send record %d: %v", i, err)
		}
		return
	}
	metrics.PacketsSent.Inc()
	metrics.BytesTransferred.Add(float64(len(payload)))
	s.nextIndex++
	s.prevTime = rh.Time
}

func (s *Sender) loadFile() error {
	f, err := os.Open(s.filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	ix, err := recfile.BuildIndex(f, 0)
	if err != nil {
		return err
	}
	if err := recfile.ValidateFileHeader(ix.Header(), 1_000_000); err != nil {
		s.log("sender: file header failed sanity check: %v", err)
	}
	s.ix = ix
	return nil
}

// teardown guarantees cleanup: close the socket, clear the receive
// buffer, reset the indexer, emit a finished line.
func (s *Sender) teardown() {
	_ = s.sock.Close()
	s.buf = nil
	s.ix = nil
	s.log("sender: teardown complete")
}
