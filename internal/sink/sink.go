// Package sink provides concrete C8 logging-sink implementations: a direct
// logrus-backed sink, and a durable disk-backed fan-out queue so a slow
// downstream consumer (the telemetry forwarder) never blocks the protocol
// goroutine appending a diagnostic line.
package sink

import (
	"github.com/sirupsen/logrus"
)

// LineSink is the single-method interface the netio state machines log
// through.
type LineSink interface {
	AppendLine(line string)
}

// LogrusSink fans every appended line to a logrus.FieldLogger at Info
// level. It is safe for concurrent use: logrus loggers already serialize
// writes internally.
type LogrusSink struct {
	logger logrus.FieldLogger
	fields logrus.Fields
}

// NewLogrusSink wraps logger. A nil logger falls back to logrus's default.
func NewLogrusSink(logger logrus.FieldLogger, fields logrus.Fields) *LogrusSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogrusSink{logger: logger, fields: fields}
}

func (s *LogrusSink) AppendLine(line string) {
	if len(s.fields) == 0 {
		s.logger.Infoln(line)
		return
	}
	s.logger.WithFields(s.fields).Infoln(line)
}
