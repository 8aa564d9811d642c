package recfile

import "fmt"

// expectedMagic is the .mes file header's Type field. ValidateFileHeader
// compares against it; the sender runs that check after building the
// index and only logs a failure.
var expectedMagic = [4]byte{'M', 'E', 'S', '1'}

// ValidateFileHeader checks that h looks like a well-formed .mes header:
// the magic matches and RecordsInFile is within a sane bound. It does not
// validate individual records; BuildIndex does that as it walks them.
func ValidateFileHeader(h FileHeader, maxRecords uint32) error {
	if h.Type != expectedMagic {
		return fmt.Errorf("recfile: unexpected file magic %q", h.Type)
	}
	if maxRecords > 0 && h.RecordsInFile > maxRecords {
		return fmt.Errorf("recfile: RecordsInFile %d exceeds sanity bound %d", h.RecordsInFile, maxRecords)
	}
	return nil
}
