package recfile

import "fmt"

// DumpHeader writes a one-line human-readable summary of h to sink. Meant
// to be gated by the caller on a debug flag rather than always-on.
func DumpHeader(sink LineSink, h FileHeader) {
	sink.AppendLine(fmt.Sprintf(
		"file header: stream_quan=%d records=%d record_time=%d name=%q last_change=%d",
		h.StreamQuan, h.RecordsInFile, h.RecordTime, trimZero(h.RecordName[:]), h.LastChangeTime))
}

// DumpRecord writes a one-line human-readable summary of a record header
// to sink.
func DumpRecord(sink LineSink, i int, h RecordHeader) {
	sink.AppendLine(fmt.Sprintf(
		"record[%d]: time=%dms data_size=%d stream_num=%d", i, h.Time, h.DataSize, h.StreamNum))
}

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
