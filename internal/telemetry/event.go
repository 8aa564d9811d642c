// Package telemetry optionally forwards log lines to a remote monitoring
// bus (AMQP or STOMP), wrapped in a small JSON envelope, with the same
// reconnect-and-retry discipline the rest of the logging sink uses for
// durability.
package telemetry

import "encoding/json"

// Role identifies which half of a transfer produced an event.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Event is the JSON envelope published to the telemetry backend: a log
// line plus a monotonic sequence number and the producing role.
type Event struct {
	Role     Role   `json:"role"`
	Sequence uint64 `json:"sequence"`
	Line     string `json:"line"`
}

// Marshal encodes an Event to JSON. Marshal failures on this fixed,
// all-scalar shape would indicate a bug in encoding/json itself, so the
// error is only surfaced for the caller to log, not recovered from.
func Marshal(role Role, seq uint64, line string) ([]byte, error) {
	return json.Marshal(Event{Role: role, Sequence: seq, Line: line})
}
