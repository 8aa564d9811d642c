// Package netio implements the core transport engine: endpoint-string
// parsing, the TCP/UDP socket abstraction, the UDP session handshake, and
// the sender/receiver protocol state machines that drive end-to-end
// delivery of a .mes record file.
package netio

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Mode controls whether a socket's blocking operations may park the
// calling goroutine or must return immediately with a "would block"
// indication.
type Mode int

const (
	Blocking Mode = iota
	NonBlocking
)

func (m Mode) String() string {
	if m == NonBlocking {
		return "nonblocking"
	}
	return "blocking"
}

// Protocol names the transport a socket rides on.
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

func (p Protocol) String() string {
	if p == UDP {
		return "udp"
	}
	return "tcp"
}

// Endpoint is an (address, port) pair; the blocking mode applies to the
// whole configuration, not per-endpoint.
type Endpoint struct {
	Addr string
	Port uint16
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Addr, e.Port)
}

// Role says whether a socket binds locally only (Server: one endpoint
// parsed) or also memorizes a remote peer (Client: two endpoints parsed).
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Config is the parsed form of a configuration string: one or two
// endpoints plus a blocking-mode flag that applies to all of them. The
// first endpoint is always the local bind; the second, if present, is the
// remote peer.
type Config struct {
	Endpoints []Endpoint
	Mode      Mode
}

// Role reports RoleClient when two endpoints were parsed, RoleServer
// otherwise.
func (c Config) Role() Role {
	if len(c.Endpoints) == 2 {
		return RoleClient
	}
	return RoleServer
}

// Local is the bind endpoint (always present).
func (c Config) Local() Endpoint { return c.Endpoints[0] }

// Remote is the peer endpoint; only valid when Role() == RoleClient.
func (c Config) Remote() Endpoint { return c.Endpoints[1] }

// ParseConfig parses a configuration string of the form:
//
//	endpoint (WS endpoint)? (WS "mode=" ("blocking"|"nonblocking"))?
//	endpoint := ipv4 ":" u16
//
// A missing port, malformed address, or more than two endpoints is a parse
// failure; ParseConfig never panics.
func ParseConfig(s string) (Config, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return Config{}, fmt.Errorf("netio: empty configuration string")
	}

	mode := Blocking
	var endpointFields []string
	for _, f := range fields {
		if strings.HasPrefix(f, "mode=") {
			switch strings.ToLower(strings.TrimPrefix(f, "mode=")) {
			case "blocking":
				mode = Blocking
			case "nonblocking":
				mode = NonBlocking
			default:
				return Config{}, fmt.Errorf("netio: invalid mode %q", f)
			}
			continue
		}
		endpointFields = append(endpointFields, f)
	}

	if len(endpointFields) == 0 || len(endpointFields) > 2 {
		return Config{}, fmt.Errorf("netio: expected 1 or 2 endpoints, got %d", len(endpointFields))
	}

	endpoints := make([]Endpoint, 0, len(endpointFields))
	for _, f := range endpointFields {
		ep, err := parseEndpoint(f)
		if err != nil {
			return Config{}, err
		}
		endpoints = append(endpoints, ep)
	}

	return Config{Endpoints: endpoints, Mode: mode}, nil
}

func parseEndpoint(s string) (Endpoint, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Endpoint{}, fmt.Errorf("netio: endpoint %q missing port", s)
	}
	addr, portStr := s[:idx], s[idx+1:]
	if addr == "" {
		return Endpoint{}, fmt.Errorf("netio: endpoint %q missing address", s)
	}
	if ip := net.ParseIP(addr); ip == nil || ip.To4() == nil {
		return Endpoint{}, fmt.Errorf("netio: endpoint %q has malformed ipv4 address", s)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, fmt.Errorf("netio: endpoint %q has invalid port: %w", s, err)
	}
	return Endpoint{Addr: addr, Port: uint16(port)}, nil
}
