package gharchive

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	perr "ghscore/internal/platform/errors"
)

// segment is one fixed-size slab of decompressed bytes
type segment struct {
	buf []byte
	n   int
}

// pump decompresses on a background goroutine into at most depth segments.
// The producer blocks when every segment is filled or held by the consumer,
// the consumer blocks when none is filled.
type pump struct {
	ctx   context.Context
	size  int
	depth int
	stall time.Duration

	free   chan *segment
	full   chan *segment
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	allocated atomic.Int32

	// tail is the producer's terminal error; published by closing full
	tail error

	// consumer side
	cur   *segment
	off   int
	err   error
	bytes int64
}

func newPump(ctx context.Context, size, depth int, stall time.Duration) *pump {
	return &pump{
		ctx:    ctx,
		size:   size,
		depth:  depth,
		stall:  stall,
		free:   make(chan *segment, depth),
		full:   make(chan *segment, depth),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// start runs the producer over the stream returned by open. open runs on the
// producer goroutine so header parsing is also off the consumer's path
func (p *pump) start(open func() (io.ReadCloser, error)) {
	go p.produce(open)
}

func (p *pump) produce(open func() (io.ReadCloser, error)) {
	defer close(p.exited)
	defer close(p.full)

	r, err := open()
	if err != nil {
		p.tail = corrupt(err)
		return
	}
	defer func() { _ = r.Close() }()

	for {
		seg, err := p.acquire()
		if err != nil {
			p.tail = err
			return
		}
		n, rerr := fill(r, seg.buf)
		seg.n = n
		if n > 0 {
			select {
			case p.full <- seg:
			case <-p.done:
				return
			}
		} else {
			p.recycle(seg)
		}
		if rerr != nil {
			if rerr != io.EOF {
				p.tail = corrupt(rerr)
			}
			return
		}
	}
}

// acquire takes a free segment, allocating lazily up to depth
func (p *pump) acquire() (*segment, error) {
	select {
	case s := <-p.free:
		return s, nil
	default:
	}
	if int(p.allocated.Load()) < p.depth {
		p.allocated.Add(1)
		return &segment{buf: make([]byte, p.size)}, nil
	}

	stall, stop := p.stallTimer()
	defer stop()
	select {
	case s := <-p.free:
		return s, nil
	case <-p.done:
		return nil, errPumpClosed
	case <-p.ctx.Done():
		return nil, perr.FromContext(p.ctx.Err(), "gharchive: decompress canceled")
	case <-stall:
		return nil, perr.Unavailablef("gharchive: decompressor waited %s for a free segment", p.stall)
	}
}

// next returns the next filled segment, io.EOF at a clean end
func (p *pump) next() (*segment, error) {
	stall, stop := p.stallTimer()
	defer stop()
	select {
	case s, ok := <-p.full:
		if !ok {
			if p.tail != nil {
				return nil, p.tail
			}
			return nil, io.EOF
		}
		return s, nil
	case <-p.ctx.Done():
		return nil, perr.FromContext(p.ctx.Err(), "gharchive: read canceled")
	case <-stall:
		return nil, perr.Unavailablef("gharchive: reader waited %s for decompressed data", p.stall)
	}
}

// Read implements io.Reader over the filled segments
func (p *pump) Read(b []byte) (int, error) {
	for p.cur == nil || p.off >= p.cur.n {
		if p.cur != nil {
			p.recycle(p.cur)
			p.cur = nil
		}
		if p.err != nil {
			return 0, p.err
		}
		s, err := p.next()
		if err != nil {
			p.err = err
			return 0, err
		}
		p.cur, p.off = s, 0
	}
	n := copy(b, p.cur.buf[p.off:p.cur.n])
	p.off += n
	p.bytes += int64(n)
	return n, nil
}

func (p *pump) recycle(s *segment) {
	s.n = 0
	select {
	case p.free <- s:
	default:
	}
}

// Close stops the producer and waits for it to exit
func (p *pump) Close() {
	p.once.Do(func() { close(p.done) })
	<-p.exited
}

func (p *pump) stallTimer() (<-chan time.Time, func()) {
	if p.stall <= 0 {
		return nil, func() {}
	}
	t := time.NewTimer(p.stall)
	return t.C, func() { t.Stop() }
}

var errPumpClosed = perr.New(perr.ErrorCodeCanceled, "gharchive: reader closed")

// fill reads until buf is full or r fails; a short final read is not an error
func fill(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// corrupt tags codec failures; errors already classified (file io, stalls) pass through
func corrupt(err error) error {
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.Wrap(err, perr.ErrorCodeCorrupt, "gharchive: decompress")
}
