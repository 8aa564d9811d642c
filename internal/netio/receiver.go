package netio

import (
	"fmt"
	"os"
	"time"

	"github.com/mesxfer/mesxfer/internal/metrics"
	"github.com/mesxfer/mesxfer/internal/recfile"
	"github.com/mesxfer/mesxfer/internal/wire"
)

type receiverState int

const (
	receiverSetup receiverState = iota
	receiverConnect
	receiverSendPacket
	receiverRecvPacket
	receiverParseComand
	receiverWriteHeader
	receiverWritePacket
	receiverFinish
	receiverDone
)

// Receiver implements the C7 state machine: connect or UDP-handshake to
// the sender, request records one at a time, and persist the file header
// and each record to disk.
type Receiver struct {
	Lifecycle

	sock       Socket
	proto      Protocol
	sink       LineSink
	outPath    string
	approveCnt byte
	debug      bool

	state       receiverState
	buf         []byte
	pending     wire.NetPacket
	recvCounter int
	out         *os.File
}

// NewReceiver builds a Receiver that writes the transferred file to
// outPath, communicating over a socket constructed for proto labeled
// "receiver". sink receives diagnostic lines; it may be nil.
func NewReceiver(proto Protocol, outPath string, sink LineSink) *Receiver {
	return &Receiver{
		sock:       New(proto, "receiver"),
		proto:      proto,
		sink:       sink,
		outPath:    outPath,
		approveCnt: DefaultApproveCount,
		buf:        make([]byte, BufferSize),
	}
}

// SetDebug turns on per-packet/per-record tracing through the diagnostic
// sink. Off by default since it doubles the log volume of a transfer.
func (r *Receiver) SetDebug(debug bool) {
	r.debug = debug
}

func (r *Receiver) log(format string, args ...any) {
	if r.sink != nil {
		r.sink.AppendLine(fmt.Sprintf(format, args...))
	}
}

// Work runs the state machine until Finish or Stop is called.
func (r *Receiver) Work(configStr string) {
	r.Start()
	r.state = receiverSetup
	defer r.teardown()

	for r.ShouldContinue() && r.state != receiverDone {
		next := r.step(configStr)
		if next == r.state {
			idle(r.idleFor(r.state))
		}
		r.state = next
	}
}

func (r *Receiver) idleFor(st receiverState) time.Duration {
	switch st {
	case receiverSetup, receiverConnect:
		return setupIdle
	default:
		return ioIdle
	}
}

func (r *Receiver) step(configStr string) receiverState {
	switch r.state {
	case receiverSetup:
		if err := r.sock.Open(); err != nil {
			r.log("receiver: open: %v", err)
			return receiverSetup
		}
		if err := r.sock.Setup(configStr); err != nil {
			r.log("receiver: setup: %v", err)
			return receiverSetup
		}
		return receiverConnect

	case receiverConnect:
		if err := r.sock.Connect(); err != nil {
			if err != ErrWouldBlock {
				r.log("receiver: connect: %v", err)
			}
			return receiverConnect
		}
		if r.proto == UDP {
			if err := RunReceiverHandshake(r.sock, r.approveCnt); err != nil {
				r.log("receiver: handshake: %v", err)
				return receiverConnect
			}
		}
		r.log("receiver: connected to %s", r.sock.Name())
		return receiverSendPacket

	case receiverSendPacket:
		env := wire.Encode(wire.NetPacket{Head: wire.DataReqt})
		if err := r.sock.Send(env); err != nil {
			if err != ErrWouldBlock {
				r.log("receiver: send request: %v", err)
			}
			return receiverSendPacket
		}
		metrics.PacketsSent.Inc()
		return receiverRecvPacket

	case receiverRecvPacket:
		n, err := r.sock.Recv(r.buf)
		if err != nil {
			if err != ErrWouldBlock {
				r.log("receiver: recv: %v", err)
			}
			return receiverRecvPacket
		}
		pkt, err := wire.Decode(r.buf[:n])
		if err != nil {
			r.log("receiver: decode: %v", err)
			return receiverRecvPacket
		}
		metrics.PacketsReceived.Inc()
		if r.debug && r.sink != nil {
			wire.DumpPacket(r.sink, "receiver: recv", pkt)
		}
		r.pending = pkt
		r.recvCounter++
		return receiverParseComand

	case receiverParseComand:
		if r.pending.Head.Command() == wire.CommandFinish {
			return receiverFinish
		}
		if r.recvCounter == 1 {
			return receiverWriteHeader
		}
		return receiverWritePacket

	case receiverWriteHeader:
		if err := r.openOutput(); err != nil {
			r.log("receiver: open output: %v", err)
			return receiverSendPacket
		}
		n := recfile.FileHeaderSize
		if n > len(r.pending.Data) {
			n = len(r.pending.Data)
		}
		if _, err := r.out.Write(r.pending.Data[:n]); err != nil {
			r.log("receiver: write header: %v", err)
		} else {
			metrics.BytesTransferred.Add(float64(n))
		}
		if r.debug && r.sink != nil {
			if h, err := recfile.DecodeFileHeader(r.pending.Data[:n]); err == nil {
				recfile.DumpHeader(r.sink, h)
			}
		}
		return receiverSendPacket

	case receiverWritePacket:
		if r.out == nil {
			r.log("receiver: write packet: output not open")
			return receiverSendPacket
		}
		if _, err := r.out.Write(r.pending.Data); err != nil {
			r.log("receiver: write packet: %v", err)
		} else {
			metrics.BytesTransferred.Add(float64(len(r.pending.Data)))
		}
		if r.debug && r.sink != nil {
			wire.DumpPacket(r.sink, "receiver: write record", r.pending)
		}
		return receiverSendPacket

	case receiverFinish:
		r.log("receiver: finished")
		return receiverDone
	}
	return r.state
}

func (r *Receiver) openOutput() error {
	if r.out != nil {
		return nil
	}
	f, err := os.OpenFile(r.outPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, os.SEEK_SET); err != nil {
		f.Close()
		return err
	}
	r.out = f
	return nil
}

// teardown guarantees cleanup: close file and socket, clear the receive
// buffer, emit a finished line.
func (r *Receiver) teardown() {
	if r.out != nil {
		_ = r.out.Close()
		r.out = nil
	}
	_ = r.sock.Close()
	r.buf = nil
	r.log("receiver: teardown complete")
}
