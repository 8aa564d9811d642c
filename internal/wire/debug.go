package wire

import "fmt"

// LineSink is the minimal write-only interface the wire package logs
// through; it mirrors the core logging sink contract so this package
// doesn't need to import it directly.
type LineSink interface {
	AppendLine(line string)
}

// DumpPacket writes a one-line human-readable summary of p to sink. Meant
// to be gated by the caller on a debug flag rather than always-on.
func DumpPacket(sink LineSink, label string, p NetPacket) {
	sink.AppendLine(fmt.Sprintf("%s: head=%s data_len=%d", label, p.Head, len(p.Data)))
}
