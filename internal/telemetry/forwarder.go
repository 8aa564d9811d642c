package telemetry

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Publisher is the minimal surface both AMQPForwarder and STOMPForwarder
// satisfy.
type Publisher interface {
	Publish(data []byte) error
}

// ForwardingSink adapts a Publisher into a sink.LineSink: every appended
// line is wrapped in an Event (with an auto-incrementing sequence number)
// and published. Errors are logged, never returned, matching C8's
// "the core does not read from the sink" contract.
type ForwardingSink struct {
	publisher Publisher
	role      Role
	logger    logrus.FieldLogger
	seq       atomic.Uint64
}

// NewForwardingSink builds a ForwardingSink labeling every event with role.
func NewForwardingSink(publisher Publisher, role Role, logger logrus.FieldLogger) *ForwardingSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &ForwardingSink{publisher: publisher, role: role, logger: logger}
}

func (s *ForwardingSink) AppendLine(line string) {
	seq := s.seq.Add(1)
	data, err := Marshal(s.role, seq, line)
	if err != nil {
		s.logger.Errorln("telemetry: failed to marshal event:", err)
		return
	}
	if err := s.publisher.Publish(data); err != nil {
		s.logger.Errorln("telemetry: failed to publish event:", err)
	}
}
