package gharchive

import (
	"bufio"
	"bytes"
	"io"
	"os"

	perr "ghscore/internal/platform/errors"
	"ghscore/internal/platform/logger"

	"github.com/edsrzf/mmap-go"
)

// fallbackBufSize is the read-ahead used when the file cannot be mapped
const fallbackBufSize = 32 * 1024

// mapFile maps f read-only; swapped in tests to force the buffered path
var mapFile = func(f *os.File) (mmap.MMap, error) {
	return mmap.Map(f, mmap.RDONLY, 0)
}

// source is the compressed byte stream of one archive file
type source struct {
	f    *os.File
	mm   mmap.MMap // nil when the file is read through a buffer
	r    io.Reader
	size int64
}

func openSource(path string, useMmap bool) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.FromFS(err, "gharchive: open %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, perr.FromFS(err, "gharchive: stat %s", path)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, perr.InvalidArgf("gharchive: %s is not a regular file", path)
	}

	s := &source{f: f, size: fi.Size()}
	if s.size == 0 {
		s.r = bytes.NewReader(nil)
		return s, nil
	}

	if useMmap {
		mm, err := mapFile(f)
		if err == nil {
			s.mm = mm
			s.r = bytes.NewReader(mm)
			return s, nil
		}
		logger.Named("gharchive").Debug().Err(err).Str("path", path).Msg("gharchive: mmap unavailable, reading through buffer")
	}
	s.r = ioErrReader{bufio.NewReaderSize(f, fallbackBufSize)}
	return s, nil
}

// empty reports whether there is nothing to decompress
func (s *source) empty() bool { return s.size == 0 }

// mapped reports whether the file is memory mapped
func (s *source) mapped() bool { return s.mm != nil }

// Close unmaps and closes the file; safe to call more than once
func (s *source) Close() error {
	var first error
	if s.mm != nil {
		if err := s.mm.Unmap(); err != nil {
			first = perr.Wrap(err, perr.ErrorCodeIO, "gharchive: unmap")
		}
		s.mm = nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil && first == nil {
			first = perr.Wrap(err, perr.ErrorCodeIO, "gharchive: close")
		}
		s.f = nil
	}
	return first
}

// ioErrReader tags read failures from the file so they are not mistaken for corruption
type ioErrReader struct{ r io.Reader }

func (e ioErrReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		err = perr.Wrap(err, perr.ErrorCodeIO, "gharchive: read")
	}
	return n, err
}
