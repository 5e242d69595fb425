package gharchive

import (
	"bufio"
	"io"

	perr "ghscore/internal/platform/errors"
)

// lineSplitter cuts a byte stream on '\n' reusing one read buffer and one spill buffer
type lineSplitter struct {
	br    *bufio.Reader
	spill []byte
	max   int
	err   error
}

func newLineSplitter(r io.Reader, bufSize, max int) *lineSplitter {
	return &lineSplitter{br: bufio.NewReaderSize(r, bufSize), max: max}
}

// next returns the next non-blank line without its EOL. The slice is only valid
// until the following call. ok is false at the end or on error (see err)
func (s *lineSplitter) next() (line []byte, ok bool) {
	if s.err != nil {
		return nil, false
	}
	for {
		b, err := s.br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			// longer than the read buffer: accumulate in spill
			s.spill = append(s.spill[:0], b...)
			for err == bufio.ErrBufferFull {
				if len(s.spill) > s.max+2 {
					s.err = perr.Corruptf("gharchive: line exceeds %d bytes", s.max)
					return nil, false
				}
				b, err = s.br.ReadSlice('\n')
				s.spill = append(s.spill, b...)
			}
			b = s.spill
		}
		if err != nil && err != io.EOF {
			s.err = err
			return nil, false
		}

		b = trimEOL(b)
		if len(b) > s.max {
			s.err = perr.Corruptf("gharchive: line exceeds %d bytes", s.max)
			return nil, false
		}
		if len(b) == 0 {
			if err == io.EOF {
				return nil, false
			}
			continue
		}
		return b, true
	}
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return b
}
