package telemetry

import (
	"crypto/tls"
	"net/url"
	"strings"
	"sync"
	"time"

	stomp "github.com/go-stomp/stomp/v3"
	"github.com/sirupsen/logrus"
)

// STOMPForwarder publishes Events to a STOMP topic, reconnecting on
// publish failure.
type STOMPForwarder struct {
	username string
	password string
	addr     url.URL
	host     string
	topic    string
	useTLS   bool
	logger   logrus.FieldLogger

	mu   sync.Mutex
	conn *stomp.Conn
}

// NewSTOMPForwarder dials addr, retrying every reconnectDelay until a
// connection is made, and returns a forwarder that publishes on topic,
// prefixing it with "/topic/" if the caller didn't already.
func NewSTOMPForwarder(username, password string, addr url.URL, host, topic string, useTLS bool, logger logrus.FieldLogger) *STOMPForwarder {
	if !strings.HasPrefix(topic, "/topic/") {
		topic = "/topic/" + topic
	}
	if logger == nil {
		logger = logrus.New()
	}
	f := &STOMPForwarder{
		username: username,
		password: password,
		addr:     addr,
		host:     host,
		topic:    topic,
		useTLS:   useTLS,
		logger:   logger,
	}
	f.reconnect()
	return f
}

func (f *STOMPForwarder) reconnect() {
	f.mu.Lock()
	if f.conn != nil {
		if err := f.conn.Disconnect(); err != nil {
			f.logger.Errorln("telemetry: stomp disconnect error:", err)
		}
	}
	f.mu.Unlock()

	for {
		var conn *stomp.Conn
		var err error
		if f.useTLS {
			var netConn *tls.Conn
			netConn, err = tls.Dial("tcp", f.addr.String(), &tls.Config{})
			if err == nil {
				conn, err = stomp.Connect(netConn,
					stomp.ConnOpt.Login(f.username, f.password),
					stomp.ConnOpt.Host(f.host))
			}
		} else {
			conn, err = stomp.Dial("tcp", f.addr.String(),
				stomp.ConnOpt.Login(f.username, f.password),
				stomp.ConnOpt.Host(f.host))
		}

		if err == nil {
			f.mu.Lock()
			f.conn = conn
			f.mu.Unlock()
			return
		}
		f.logger.Warnln("telemetry: stomp connect failed, retrying:", err)
		time.Sleep(reconnectDelay)
	}
}

// Publish sends data to the configured topic, reconnecting and retrying on
// failure.
func (f *STOMPForwarder) Publish(data []byte) error {
	for {
		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()

		err := conn.Send(f.topic, "application/json", data, stomp.SendOpt.Receipt)
		if err == nil {
			return nil
		}
		f.logger.Warnln("telemetry: stomp publish failed, reconnecting:", err)
		f.reconnect()
	}
}

// Close disconnects the underlying STOMP connection.
func (f *STOMPForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	return f.conn.Disconnect()
}
