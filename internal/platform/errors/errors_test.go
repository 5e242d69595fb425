package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorCodeString(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want string
	}{
		{ErrorCodeUnknown, "unknown"},
		{ErrorCodeCanceled, "canceled"},
		{ErrorCodeUnavailable, "unavailable"},
		{ErrorCodeInvalidArgument, "invalid_argument"},
		{ErrorCodeValidation, "validation"},
		{ErrorCodeJSON, "json"},
		{ErrorCodeNotFound, "not_found"},
		{ErrorCodeCorrupt, "corrupt"},
		{ErrorCodeIO, "io"},
		{9999, "code(9999)"}, // default branch
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Fatalf("String(%d) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	// nil *Error should render "<nil>"
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	e1 := New(ErrorCodeValidation, "bad stuff")
	if CodeOf(e1) != ErrorCodeValidation {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeJSON, "bad json %d", 12)
	if got := e2.Error(); got != "bad json 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeCorrupt, "gzip failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	e4 := Wrapf(src, ErrorCodeIO, "read %s", "x.gz")
	if want := "read x.gz: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	if got, ok := As(e4); !ok || got.Code() != ErrorCodeIO {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	e5 := Wrap(src, ErrorCodeInvalidArgument, "oops")
	e6 := WithField(e5, "segment_size")
	if fe, ok := As(e6); !ok || fe.Field() != "segment_size" {
		t.Fatalf("WithField failed")
	}
	if fe0, _ := As(e5); fe0.Field() != "" {
		t.Fatalf("WithField mutated original")
	}
	if WithField(src, "x") != src {
		t.Fatalf("WithField should pass foreign errors through")
	}

	if !IsCode(InvalidArgf("x"), ErrorCodeInvalidArgument) ||
		!IsCode(Validationf("x"), ErrorCodeValidation) ||
		!IsCode(Corruptf("x"), ErrorCodeCorrupt) ||
		!IsCode(Unavailablef("x"), ErrorCodeUnavailable) ||
		!IsCode(Internalf("x"), ErrorCodeUnknown) {
		t.Fatalf("sugar helpers code mismatch")
	}
}

func TestContextAndFSMapping(t *testing.T) {
	if CodeOf(context.Canceled) != ErrorCodeCanceled {
		t.Fatalf("bare Canceled should map to Canceled")
	}
	if CodeOf(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) != ErrorCodeUnavailable {
		t.Fatalf("DeadlineExceeded should map to Unavailable")
	}
	if FromContext(nil, "x") != nil {
		t.Fatalf("FromContext(nil) should be nil")
	}
	if err := FromContext(context.Canceled, "stop"); !IsCode(err, ErrorCodeCanceled) || !stderrs.Is(err, context.Canceled) {
		t.Fatalf("FromContext lost code or cause: %v", err)
	}

	if FromFS(nil, "x") != nil {
		t.Fatalf("FromFS(nil) should be nil")
	}
	nf := FromFS(&fs.PathError{Op: "open", Path: "a.gz", Err: fs.ErrNotExist}, "open %s", "a.gz")
	if !IsCode(nf, ErrorCodeNotFound) {
		t.Fatalf("missing file should map to NotFound, got %v", CodeOf(nf))
	}
	if !IsCode(FromFS(fs.ErrPermission, "open"), ErrorCodeIO) {
		t.Fatalf("permission error should map to IO")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailablef("stalled")) {
		t.Fatalf("unavailable should be retryable")
	}
	if !Retryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
	if Retryable(Corruptf("bad gzip")) || Retryable(stderrs.New("x")) {
		t.Fatalf("corrupt and foreign errors should not be retryable")
	}
}
