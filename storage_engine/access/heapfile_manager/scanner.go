package heapfile

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Scanner reads the records of a flat file in order, tracking the byte
// offset of each.
type Scanner struct {
	r    *bufio.Reader
	dbno int32
	pos  int64
	cur  *Record // header read, record not yet returned
	done bool
	err  error
}

// NewScanner scans r, which must start at offset 0 of the flat file.
func NewScanner(r io.Reader, dbno int32) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 64<<10), dbno: dbno}
}

// Scanner returns a scanner over the whole file. It reads through its own
// section reader, so it may run alongside ReadRecordAt.
func (hf *HeapFile) Scanner() (*Scanner, error) {
	hf.mu.RLock()
	defer hf.mu.RUnlock()
	if hf.file == nil {
		return nil, errors.Errorf("flat file %s is closed", hf.filePath)
	}
	return NewScanner(io.NewSectionReader(hf.file, 0, hf.size), hf.dbno), nil
}

// Next returns the next record. Lines before the first header are skipped.
func (s *Scanner) Next() (Record, bool) {
	for !s.done {
		line, err := s.r.ReadString('\n')
		start := s.pos
		s.pos += int64(len(line))
		if err != nil {
			s.done = true
			if err != io.EOF {
				s.err = errors.Wrapf(err, "flat file %d at offset %d", s.dbno, start)
				return Record{}, false
			}
		}

		if strings.HasPrefix(line, ">") {
			rec := ParseHeader(strings.TrimRight(line, "\r\n"))
			rec.DBNo = s.dbno
			rec.Offset = start
			rec.SeqOffset = s.pos
			prev := s.cur
			s.cur = &rec
			if prev != nil {
				return *prev, true
			}
		}
	}

	if s.cur != nil && s.err == nil {
		out := *s.cur
		s.cur = nil
		return out, true
	}
	return Record{}, false
}

func (s *Scanner) Err() error {
	return s.err
}

// Offset is the number of bytes consumed so far.
func (s *Scanner) Offset() int64 {
	return s.pos
}

// ParseHeader splits a '>' line into the id, the first word, and the
// description that follows it.
func ParseHeader(line string) Record {
	text := strings.TrimSpace(strings.TrimPrefix(line, ">"))
	id, desc := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		id, desc = text[:i], strings.TrimSpace(text[i+1:])
	}
	return Record{ID: id, Description: desc, Words: Words(desc)}
}

// Words are the distinct lower-cased letter and digit runs of s that are at
// least two characters long, in order of first appearance.
func Words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, w := range fields {
		if len(w) < 2 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
