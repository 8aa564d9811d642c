// Package recfile implements the .mes record-file format: a fixed-size
// file header followed by RecordsInFile self-describing records, and the
// indexer that locates each record's byte range inside an in-memory copy
// of the file.
//
// Header layout is packed bit-for-bit as a struct dumped straight to disk:
// little-endian, no padding between fields, in declaration order. This is
// distinct from the wire envelope (internal/wire), which is explicitly
// big-endian.
package recfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteOrder is used for every on-disk/on-wire record and file header in
// this package. Kept as a var (not encoding/binary.LittleEndian directly) so
// it reads as a deliberate, named choice at every call site.
var byteOrder = binary.LittleEndian

// FileHeader is the fixed-size prelude of every .mes file.
type FileHeader struct {
	Type           [4]byte  // magic
	StreamQuan     uint32
	RecordsInFile  uint32
	RecordTime     uint32
	RecordName     [64]byte
	LastChangeTime uint32
	Info           [60]byte
}

// FileHeaderSize is the exact, compile-time size of FileHeader on disk.
const FileHeaderSize = 4 + 4 + 4 + 4 + 64 + 4 + 60 // 144

// RecordHeader precedes every record's payload. StreamNum and Info mirror
// FileHeader's own StreamQuan/Info fields; see DESIGN.md for how their
// shape was reconstructed.
type RecordHeader struct {
	Time      uint32 // relative milliseconds, monotonically non-decreasing
	DataSize  uint32 // bytes of payload immediately following this header
	StreamNum uint32
	Info      [16]byte
}

// RecordHeaderSize is the exact, compile-time size of RecordHeader on disk.
const RecordHeaderSize = 4 + 4 + 4 + 16 // 28

// DecodeFileHeader reads a FileHeader from the first FileHeaderSize bytes
// of buf.
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	var h FileHeader
	if len(buf) < FileHeaderSize {
		return h, fmt.Errorf("recfile: buffer too short for file header: %d bytes", len(buf))
	}
	if err := binary.Read(bytes.NewReader(buf[:FileHeaderSize]), byteOrder, &h); err != nil {
		return h, fmt.Errorf("recfile: decode file header: %w", err)
	}
	return h, nil
}

// EncodeFileHeader serializes h to exactly FileHeaderSize bytes.
func EncodeFileHeader(h FileHeader) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(FileHeaderSize)
	// A fixed-size struct of only fixed-size fields never fails to encode.
	_ = binary.Write(buf, byteOrder, h)
	return buf.Bytes()
}

// DecodeRecordHeader reads a RecordHeader from the first RecordHeaderSize
// bytes of buf.
func DecodeRecordHeader(buf []byte) (RecordHeader, error) {
	var h RecordHeader
	if len(buf) < RecordHeaderSize {
		return h, fmt.Errorf("recfile: buffer too short for record header: %d bytes", len(buf))
	}
	if err := binary.Read(bytes.NewReader(buf[:RecordHeaderSize]), byteOrder, &h); err != nil {
		return h, fmt.Errorf("recfile: decode record header: %w", err)
	}
	return h, nil
}

// EncodeRecordHeader serializes h to exactly RecordHeaderSize bytes.
func EncodeRecordHeader(h RecordHeader) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(RecordHeaderSize)
	_ = binary.Write(buf, byteOrder, h)
	return buf.Bytes()
}
