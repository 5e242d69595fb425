package gharchive

import (
	"io"
	"sort"

	perr "ghscore/internal/platform/errors"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
)

// Codec opens a decompressing stream over r
type Codec func(r io.Reader) (io.ReadCloser, error)

const (
	// CodecGzip decodes on the calling goroutine
	CodecGzip = "gzip"
	// CodecPgzip decodes blocks ahead on its own goroutines
	CodecPgzip = "pgzip"
)

const (
	pgzipBlockSize = 1 << 20
	pgzipBlocks    = 4
)

var codecs = map[string]Codec{
	CodecGzip: func(r io.Reader) (io.ReadCloser, error) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		// hourly dumps are sometimes concatenated members
		zr.Multistream(true)
		return zr, nil
	},
	CodecPgzip: func(r io.Reader) (io.ReadCloser, error) {
		zr, err := pgzip.NewReaderN(r, pgzipBlockSize, pgzipBlocks)
		if err != nil {
			return nil, err
		}
		zr.Multistream(true)
		return zr, nil
	},
}

// LookupCodec returns the codec registered under name
func LookupCodec(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return nil, perr.InvalidArgf("gharchive: unknown codec %q", name)
	}
	return c, nil
}

// Codecs lists the registered codec names, sorted
func Codecs() []string {
	out := make([]string, 0, len(codecs))
	for k := range codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
