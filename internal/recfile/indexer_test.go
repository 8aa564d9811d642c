package recfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFile assembles a .mes buffer: a file header declaring recordsInFile,
// followed by records built from (time, data) pairs.
func buildFile(t *testing.T, recordsInFile uint32, records [][2]any) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(EncodeFileHeader(FileHeader{
		Type:          [4]byte{'M', 'E', 'S', '1'},
		RecordsInFile: recordsInFile,
	}))
	for _, rec := range records {
		timeMs := rec[0].(uint32)
		data := rec[1].(string)
		buf.Write(EncodeRecordHeader(RecordHeader{
			Time:     timeMs,
			DataSize: uint32(len(data)),
		}))
		buf.WriteString(data)
	}
	return buf.Bytes()
}

func TestIndexerSmallFile(t *testing.T) {
	raw := buildFile(t, 2, [][2]any{
		{uint32(0), "abc"},
		{uint32(25), "x"},
	})

	ix, err := BuildIndex(bytes.NewReader(raw), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, ix.PacketCount())
	assert.Equal(t, RecordHeaderSize+3, ix.PacketRange(0, nil).Size())
	assert.Equal(t, RecordHeaderSize+1, ix.PacketRange(1, nil).Size())

	h0, err := ix.GetPacketPtr(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), h0.Time)

	h1, err := ix.GetPacketPtr(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(25), h1.Time)
}

func TestIndexerOverrun(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeFileHeader(FileHeader{RecordsInFile: 2}))
	buf.Write(EncodeRecordHeader(RecordHeader{Time: 0, DataSize: 3}))
	buf.WriteString("abc")
	// Second record claims 10 bytes of payload but only supplies 1.
	buf.Write(EncodeRecordHeader(RecordHeader{Time: 25, DataSize: 10}))
	buf.WriteString("x")

	_, err := BuildIndex(bytes.NewReader(buf.Bytes()), 0)
	assert.Error(t, err)
}

func TestIndexerTotality(t *testing.T) {
	raw := buildFile(t, 3, [][2]any{
		{uint32(0), "aaaa"},
		{uint32(50), "bb"},
		{uint32(120), "cccccc"},
	})

	ix, err := BuildIndex(bytes.NewReader(raw), 0)
	require.NoError(t, err)

	total := FileHeaderSize
	for i := 0; i < ix.PacketCount(); i++ {
		total += ix.PacketRange(i, nil).Size()
	}
	assert.Equal(t, len(raw), total)
	assert.Equal(t, ix.PacketCount(), 3)
}

func TestPacketRangeOutOfBoundsLogsAndReturnsEmpty(t *testing.T) {
	raw := buildFile(t, 1, [][2]any{{uint32(0), "a"}})
	ix, err := BuildIndex(bytes.NewReader(raw), 0)
	require.NoError(t, err)

	var lines []string
	sink := lineSinkFunc(func(s string) { lines = append(lines, s) })

	r := ix.PacketRange(5, sink)
	assert.Equal(t, Range{}, r)
	assert.Len(t, lines, 1)
}

type lineSinkFunc func(string)

func (f lineSinkFunc) AppendLine(s string) { f(s) }

func TestHeaderRoundTrip(t *testing.T) {
	h := FileHeader{
		Type:           [4]byte{'M', 'E', 'S', '1'},
		StreamQuan:     4,
		RecordsInFile:  7,
		RecordTime:     1000,
		LastChangeTime: 2000,
	}
	copy(h.RecordName[:], "stream-name")
	copy(h.Info[:], "info")

	decoded, err := DecodeFileHeader(EncodeFileHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, decoded)
	assert.Len(t, EncodeFileHeader(h), FileHeaderSize)
}
