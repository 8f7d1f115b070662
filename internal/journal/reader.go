// Package journal implements the offset-tracked tailer over one
// append-only JSONL session file (spec.md §4.1).
package journal

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
)

// ErrTruncated is returned when the file is shorter than the offset the
// Reader was asked to resume from. spec.md §9 leaves the legitimacy of
// this case as an open question; the conservative behavior documented in
// DESIGN.md is to surface it so the caller can reset and reprocess from
// zero, relying on the remote to dedup.
var ErrTruncated = errors.New("journal: file shorter than resume offset")

// scannerBufPool recycles the bufio.Scanner buffer across reads of many
// journal files, following the same 1MB-initial/10MB-max sizing the
// teacher's claudecode adapter uses for its own journal-line scanner.
var scannerBufPool = sync.Pool{
	New: func() interface{} { return make([]byte, 1024*1024) },
}

const maxLineSize = 10 * 1024 * 1024

// Record is one complete line read from the journal, with the byte offset
// that should be persisted once every event derived from it has been
// acknowledged by every routed team.
type Record struct {
	Bytes  []byte
	Offset int64
}

// Reader tails a single journal file from a starting byte offset.
type Reader struct {
	path string
}

// NewReader returns a Reader for path. It performs no I/O until Read is
// called.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Read opens the file, seeks to fromOffset, and returns every complete
// line found after it plus the offset to resume from next time. A
// trailing partial line (no terminating '\n') is left unread: its bytes
// are not returned and do not advance the offset, so a subsequent call
// with the same fromOffset will pick it up once it's been completed.
//
// If the file does not exist, Read returns (nil, fromOffset, nil) — the
// supervisor treats a disappeared file as a no-op and relies on the
// directory watch to notice if it reappears (spec.md §4.1).
func (r *Reader) Read(fromOffset int64) ([]Record, int64, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fromOffset, nil
		}
		return nil, fromOffset, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fromOffset, err
	}
	if info.Size() < fromOffset {
		return nil, fromOffset, ErrTruncated
	}

	if _, err := f.Seek(fromOffset, io.SeekStart); err != nil {
		return nil, fromOffset, err
	}

	buf := scannerBufPool.Get().([]byte)
	defer scannerBufPool.Put(buf)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(buf, maxLineSize)

	var records []Record
	offset := fromOffset
	for scanner.Scan() {
		line := scanner.Bytes()
		// bufio.Scanner's default split function strips the trailing
		// newline without telling us whether one was actually present;
		// reconstruct whether this was a terminated line by checking if
		// offset+len(line)+1 fits within the file we already stat'd, or
		// simpler: re-derive via a line reader that reports terminators.
		lineCopy := make([]byte, len(line))
		copy(lineCopy, line)

		newOffset := offset + int64(len(lineCopy)) + 1
		if newOffset > info.Size() {
			// This was the trailing partial line (no '\n' yet written).
			break
		}

		records = append(records, Record{Bytes: lineCopy, Offset: newOffset})
		offset = newOffset
	}
	if err := scanner.Err(); err != nil {
		return records, offset, err
	}

	return records, offset, nil
}
