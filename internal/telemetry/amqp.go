package telemetry

import (
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const (
	reconnectDelay = 5 * time.Second
	reInitDelay    = 2 * time.Second
	resendDelay    = 5 * time.Second
)

var (
	errNotConnected  = errors.New("telemetry: not connected to amqp server")
	errAlreadyClosed = errors.New("telemetry: already closed")
	errShutdown      = errors.New("telemetry: session is shutting down")
)

// AMQPForwarder publishes Events to an AMQP exchange, reconnecting
// automatically on connection or channel loss. Connection credentials are
// part of the configured URL, not a rotating on-disk token (see
// DESIGN.md).
type AMQPForwarder struct {
	url      url.URL
	exchange string
	logger   logrus.FieldLogger

	mu              sync.Mutex
	connection      *amqp.Connection
	channel         *amqp.Channel
	done            chan struct{}
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	isReady         bool
}

// NewAMQPForwarder connects to rawURL and begins publishing to exchange.
// Connection happens in the background; Publish blocks until ready.
func NewAMQPForwarder(rawURL, exchange string, logger logrus.FieldLogger) (*AMQPForwarder, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	f := &AMQPForwarder{
		url:      *u,
		exchange: exchange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go f.handleReconnect()
	return f, nil
}

func (f *AMQPForwarder) handleReconnect() {
	for {
		f.setReady(false)
		f.logger.Debugln("telemetry: attempting amqp connection")

		conn, err := f.connect()
		if err != nil {
			f.logger.Warnln("telemetry: amqp connect failed, retrying:", err)
			select {
			case <-f.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		if done := f.handleReInit(conn); done {
			return
		}
	}
}

func (f *AMQPForwarder) connect() (*amqp.Connection, error) {
	conn, err := amqp.Dial(f.url.String())
	if err != nil {
		return nil, err
	}
	f.changeConnection(conn)
	return conn, nil
}

func (f *AMQPForwarder) handleReInit(conn *amqp.Connection) bool {
	for {
		f.setReady(false)
		if err := f.init(conn); err != nil {
			f.logger.Warnln("telemetry: amqp channel init failed, retrying:", err)
			select {
			case <-f.done:
				return true
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-f.done:
			return true
		case err := <-f.notifyConnClose:
			f.logger.Warnln("telemetry: amqp connection closed, reconnecting:", err)
			return false
		case err := <-f.notifyChanClose:
			f.logger.Warnln("telemetry: amqp channel closed, re-initializing:", err)
		}
	}
}

func (f *AMQPForwarder) init(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		return err
	}
	f.changeChannel(ch)
	f.setReady(true)
	return nil
}

func (f *AMQPForwarder) changeConnection(conn *amqp.Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connection = conn
	f.notifyConnClose = make(chan *amqp.Error)
	f.connection.NotifyClose(f.notifyConnClose)
}

func (f *AMQPForwarder) changeChannel(ch *amqp.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = ch
	f.notifyChanClose = make(chan *amqp.Error)
	f.channel.NotifyClose(f.notifyChanClose)
}

func (f *AMQPForwarder) setReady(ready bool) {
	f.mu.Lock()
	f.isReady = ready
	f.mu.Unlock()
}

func (f *AMQPForwarder) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isReady
}

// Publish publishes data to the configured exchange, retrying every
// resendDelay until the channel accepts it or the forwarder is closed. It
// does not wait for the broker's publisher confirmation.
func (f *AMQPForwarder) Publish(data []byte) error {
	for {
		if err := f.unsafePublish(data); err != nil {
			f.logger.Warnln("telemetry: amqp publish failed, retrying:", err)
			select {
			case <-f.done:
				return errShutdown
			case <-time.After(resendDelay):
			}
			continue
		}
		return nil
	}
}

func (f *AMQPForwarder) unsafePublish(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isReady {
		return errNotConnected
	}
	return f.channel.Publish(
		f.exchange,
		"",
		false,
		false,
		amqp.Publishing{ContentType: "application/json", Body: data},
	)
}

// Close shuts the forwarder down and closes its connection.
func (f *AMQPForwarder) Close() error {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return errAlreadyClosed
	default:
	}
	close(f.done)
	ch, conn := f.channel, f.connection
	f.isReady = false
	f.mu.Unlock()

	if ch != nil {
		if err := ch.Close(); err != nil {
			return err
		}
	}
	if conn == nil {
		return nil
	}
	return conn.Close()
}
