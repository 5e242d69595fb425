package gharchive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	perr "ghscore/internal/platform/errors"
)

func opener(r io.Reader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return io.NopCloser(r), nil }
}

func TestPump_DeliversAllBytesWithinDepth(t *testing.T) {
	t.Parallel()

	src := bytes.Repeat([]byte("0123456789abcdef"), 64*1024) // 1 MiB
	p := newPump(context.Background(), 1024, 3, 0)
	p.start(opener(bytes.NewReader(src)))

	got, err := io.ReadAll(p)
	p.Close()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("payload mismatch: got %d bytes want %d", len(got), len(src))
	}
	if n := p.allocated.Load(); n > 3 {
		t.Fatalf("allocated %d segments, depth is 3", n)
	}
	if p.bytes != int64(len(src)) {
		t.Fatalf("bytes=%d want %d", p.bytes, len(src))
	}
}

func TestPump_ProducerBlocksWhenConsumerIdle(t *testing.T) {
	t.Parallel()

	p := newPump(context.Background(), 16, 2, 0)
	p.start(opener(bytes.NewReader(make([]byte, 1<<20))))

	// give the producer time to run ahead as far as it can
	time.Sleep(50 * time.Millisecond)
	if n := p.allocated.Load(); n != 2 {
		t.Fatalf("allocated %d segments while idle, want exactly 2", n)
	}
	if l := len(p.full); l > 2 {
		t.Fatalf("%d filled segments queued, depth is 2", l)
	}

	done := make(chan struct{})
	go func() { p.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not release a blocked producer")
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(b []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(b, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestPump_ErrorArrivesAfterGoodBytes(t *testing.T) {
	t.Parallel()

	boom := errors.New("flate: corrupt input")
	p := newPump(context.Background(), 4, 2, 0)
	p.start(opener(&failingReader{data: []byte("good bytes"), err: boom}))
	defer p.Close()

	got, err := io.ReadAll(p)
	if string(got) != "good bytes" {
		t.Fatalf("got %q before the error", got)
	}
	if !perr.IsCode(err, perr.ErrorCodeCorrupt) || !errors.Is(err, boom) {
		t.Fatalf("want corrupt wrapping the codec error, got %v", err)
	}
	// sticky
	if _, err2 := p.Read(make([]byte, 8)); err2 != err {
		t.Fatalf("error not sticky: %v", err2)
	}
}

func TestPump_OpenFailureIsCorrupt(t *testing.T) {
	t.Parallel()

	p := newPump(context.Background(), 16, 2, 0)
	p.start(func() (io.ReadCloser, error) { return nil, errors.New("gzip: invalid header") })
	defer p.Close()

	_, err := io.ReadAll(p)
	if !perr.IsCode(err, perr.ErrorCodeCorrupt) {
		t.Fatalf("want corrupt, got %v", err)
	}
}

func TestPump_IOErrorsKeepTheirCode(t *testing.T) {
	t.Parallel()

	ioErr := perr.Wrap(errors.New("input/output error"), perr.ErrorCodeIO, "gharchive: read")
	p := newPump(context.Background(), 16, 2, 0)
	p.start(opener(&failingReader{err: ioErr}))
	defer p.Close()

	_, err := io.ReadAll(p)
	if !perr.IsCode(err, perr.ErrorCodeIO) {
		t.Fatalf("want io, got %v", err)
	}
}

type blockingReader struct{ release chan struct{} }

func (b blockingReader) Read([]byte) (int, error) {
	<-b.release
	return 0, io.EOF
}

func TestPump_ConsumerStallGuard(t *testing.T) {
	t.Parallel()

	br := blockingReader{release: make(chan struct{})}
	p := newPump(context.Background(), 16, 2, 20*time.Millisecond)
	p.start(opener(br))

	_, err := p.Read(make([]byte, 8))
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if !perr.Retryable(err) {
		t.Fatalf("stall should be retryable")
	}
	close(br.release)
	p.Close()
}

func TestPump_ProducerStallGuard(t *testing.T) {
	t.Parallel()

	p := newPump(context.Background(), 8, 2, 20*time.Millisecond)
	p.start(opener(bytes.NewReader(make([]byte, 1024))))
	defer p.Close()

	// nobody reads; the producer gives up once its free-segment wait times out
	time.Sleep(100 * time.Millisecond)

	got, err := io.ReadAll(p)
	if len(got) != 16 {
		t.Fatalf("want the two filled segments first, got %d bytes", len(got))
	}
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func TestPump_ContextCancel(t *testing.T) {
	t.Parallel()

	br := blockingReader{release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	p := newPump(ctx, 16, 2, 0)
	p.start(opener(br))

	errc := make(chan error, 1)
	go func() {
		_, err := p.Read(make([]byte, 8))
		errc <- err
	}()
	cancel()

	select {
	case err := <-errc:
		if !perr.IsCode(err, perr.ErrorCodeCanceled) {
			t.Fatalf("want canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Read did not observe cancellation")
	}
	close(br.release)
	p.Close()
}
