package netio

import (
	"errors"
	"fmt"
	"time"
)

// ErrWouldBlock is returned by Send/Recv/Accept in NonBlocking mode when
// the operation could not complete immediately. This is a soft failure:
// callers must not log it as an error, only retry on their next tick.
var ErrWouldBlock = errors.New("netio: would block")

// ErrPeerClosed is returned by Recv when the peer closed the connection
// (a zero-length TCP read). This is a hard transport error: the state
// machine stays in its current state until Stop is called, retrying each
// tick and logging the error again on every retry — recovery and
// reconnect are not attempted.
var ErrPeerClosed = errors.New("netio: connection closed by peer")

// pollInterval is the deadline granularity used to emulate non-blocking
// socket calls with Go's net package, which has no raw non-blocking mode
// exposed above the syscall layer.
const pollInterval = 5 * time.Millisecond

// Socket is the uniform interface over TCP and UDP: open/setup/connect/
// send/recv/close/name, with client-vs-server role inferred from how many
// endpoints the configuration string names.
type Socket interface {
	Open() error
	Setup(configStr string) error
	Connect() error
	Send(data []byte) error
	Recv(buf []byte) (int, error)
	Close() error
	Name() string
}

// BufferSize is the fixed size of the receive buffer and of TCP sends.
const BufferSize = 8 * 1024

// New constructs the Socket implementation for proto. label is used only
// for the human-readable Name().
func New(proto Protocol, label string) Socket {
	switch proto {
	case UDP:
		return &udpSocket{socketBase: socketBase{label: label}}
	default:
		return &tcpSocket{socketBase: socketBase{label: label}}
	}
}

type socketBase struct {
	label string
	cfg   Config
}

func (b *socketBase) setup(configStr string) error {
	cfg, err := ParseConfig(configStr)
	if err != nil {
		return err
	}
	b.cfg = cfg
	return nil
}

func (b *socketBase) deadline() time.Time {
	if b.cfg.Mode == NonBlocking {
		return time.Now().Add(pollInterval)
	}
	return time.Time{}
}

func (b *socketBase) name(addr fmt.Stringer) string {
	return fmt.Sprintf("[%s %s]", b.label, addr)
}
