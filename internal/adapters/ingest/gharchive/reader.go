package gharchive

import (
	"context"
	"io"
	"iter"
	"time"

	perr "ghscore/internal/platform/errors"
	"ghscore/internal/platform/logger"
)

const (
	// DefaultSegmentSize is the size of one decompressed segment
	DefaultSegmentSize = 256 * 1024
	// DefaultSegmentDepth is how many segments may be in flight per file
	DefaultSegmentDepth = 8
	// DefaultMaxLineBytes caps a single record
	DefaultMaxLineBytes = 32 * 1024 * 1024
	// DefaultLineBufSize is the splitter read buffer; longer lines spill
	DefaultLineBufSize = 256 * 1024

	sampleRawMax = 2048 // max bytes of raw JSON to log for the sample
)

// Options configures a Reader
type Options struct {
	Codec        string
	SegmentSize  int
	SegmentDepth int
	StallTimeout time.Duration // 0 disables the stall guard
	MaxLineBytes int
	LineBufSize  int
	Mmap         bool
}

// DefaultOptions returns the read-ahead sizes used for hourly dumps
func DefaultOptions() Options {
	return Options{
		Codec:        CodecGzip,
		SegmentSize:  DefaultSegmentSize,
		SegmentDepth: DefaultSegmentDepth,
		MaxLineBytes: DefaultMaxLineBytes,
		LineBufSize:  DefaultLineBufSize,
		Mmap:         true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Codec == "" {
		o.Codec = d.Codec
	}
	if o.SegmentSize <= 0 {
		o.SegmentSize = d.SegmentSize
	}
	if o.SegmentDepth <= 0 {
		o.SegmentDepth = d.SegmentDepth
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = d.MaxLineBytes
	}
	if o.LineBufSize <= 0 {
		o.LineBufSize = d.LineBufSize
	}
	return o
}

// Stats are the per-file counters a Reader keeps
type Stats struct {
	Lines           int64 // non-blank lines yielded
	Bytes           int64 // decompressed bytes consumed
	CompressedBytes int64 // size of the file on disk
	Mapped          bool
}

// Reader streams raw lines from one compressed archive file
type Reader struct {
	path  string
	src   *source
	pump  *pump
	split *lineSplitter

	used    bool
	closed  bool
	sampled bool // logs exactly one sample raw line per file
	lines   int64
	err     error
}

// Open maps path and starts decompressing it in the background.
// The caller must Close the Reader
func Open(ctx context.Context, path string, opt Options) (*Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.FromContext(err, "gharchive: open canceled")
	}
	opt = opt.withDefaults()
	codec, err := LookupCodec(opt.Codec)
	if err != nil {
		return nil, err
	}

	src, err := openSource(path, opt.Mmap)
	if err != nil {
		return nil, err
	}

	p := newPump(ctx, opt.SegmentSize, opt.SegmentDepth, opt.StallTimeout)
	if src.empty() {
		p.start(func() (io.ReadCloser, error) { return io.NopCloser(src.r), nil })
	} else {
		p.start(func() (io.ReadCloser, error) { return codec(src.r) })
	}

	return &Reader{
		path:  path,
		src:   src,
		pump:  p,
		split: newLineSplitter(p, opt.LineBufSize, opt.MaxLineBytes),
	}, nil
}

// Lines yields each non-blank line with EOL trimmed. The slice is reused on the
// next step; copy it to keep it. Single use: a second call yields nothing.
// Check Err after the loop
func (rd *Reader) Lines() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if rd.used || rd.closed {
			return
		}
		rd.used = true
		for {
			line, ok := rd.split.next()
			if !ok {
				rd.err = rd.split.err
				return
			}
			rd.lines++

			if !rd.sampled {
				rd.sampled = true
				l := logger.Named("gharchive")
				l.Debug().
					Str("path", rd.path).
					Int("line_bytes", len(line)).
					Str("sample_raw", truncateUTF8(line, sampleRawMax)).
					Msg("gharchive: sample raw line")
			}

			if !yield(line) {
				return
			}
		}
	}
}

// Err returns the error that ended iteration, nil on a clean end of file
func (rd *Reader) Err() error { return rd.err }

// Stats returns counters for the lines consumed so far
func (rd *Reader) Stats() Stats {
	return Stats{
		Lines:           rd.lines,
		Bytes:           rd.pump.bytes,
		CompressedBytes: rd.src.size,
		Mapped:          rd.src.mapped(),
	}
}

// Close stops the decompressor and releases the mapping; idempotent
func (rd *Reader) Close() error {
	if rd.closed {
		return nil
	}
	rd.closed = true
	// the producer must be gone before the mapping is released
	rd.pump.Close()
	return rd.src.Close()
}

// truncateUTF8 returns a string made from b, truncated to at most max bytes,
// backing up to a UTF-8 boundary if needed, and appending an ellipsis if truncated
func truncateUTF8(b []byte, max int) string {
	if max <= 0 || len(b) <= max {
		return string(b)
	}
	i := max
	// back up to the start of a rune (0b10xxxxxx indicates continuation byte)
	for i > 0 && (b[i]&0xC0) == 0x80 {
		i--
	}
	if i <= 0 {
		i = max
	}
	return string(b[:i]) + "..."
}
