package upstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newTestReader(raw string) *Reader {
	return NewReader(io.NopCloser(strings.NewReader(raw)))
}

func TestReader_ReadsEvents(t *testing.T) {
	reader := newTestReader(
		"data: {\"text\":\"Hello\",\"finished\":false}\n\n" +
			"data: {\"text\":\" world\",\"finished\":true}\n\n" +
			"data: [DONE]\n\n",
	)
	defer reader.Close()
	ctx := context.Background()

	first, err := reader.Read(ctx)
	if err != nil {
		t.Fatalf("first Read() error: %v", err)
	}
	if first.Text != "Hello" || first.Finished {
		t.Errorf("first event = %+v", first)
	}

	second, err := reader.Read(ctx)
	if err != nil {
		t.Fatalf("second Read() error: %v", err)
	}
	if second.Text != " world" || !second.Finished {
		t.Errorf("second event = %+v", second)
	}

	if _, err := reader.Read(ctx); err != io.EOF {
		t.Errorf("after [DONE] Read() = %v, want io.EOF", err)
	}
}

func TestReader_SkipsNonDataLines(t *testing.T) {
	reader := newTestReader(
		": keepalive comment\n" +
			"event: message\n" +
			"\n" +
			"data: {\"text\":\"content\",\"finished\":false}\n\n",
	)
	defer reader.Close()

	event, err := reader.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if event.Text != "content" {
		t.Errorf("event text = %q, want content", event.Text)
	}
}

func TestReader_EOFWithoutSentinel(t *testing.T) {
	reader := newTestReader("data: {\"text\":\"partial\",\"finished\":false}\n\n")
	defer reader.Close()
	ctx := context.Background()

	if _, err := reader.Read(ctx); err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if _, err := reader.Read(ctx); err != io.EOF {
		t.Errorf("Read() at stream end = %v, want io.EOF", err)
	}
}

func TestReader_MalformedEvent(t *testing.T) {
	reader := newTestReader("data: {not json}\n\n")
	defer reader.Close()

	_, err := reader.Read(context.Background())
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error = %v, want *ParseError", err)
	}
}

func TestReader_ContextCancellation(t *testing.T) {
	reader := newTestReader("data: {\"text\":\"x\",\"finished\":false}\n\n")
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := reader.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestReader_ReadAfterClose(t *testing.T) {
	reader := newTestReader("data: {\"text\":\"x\",\"finished\":false}\n\n")
	reader.Close()

	if _, err := reader.Read(context.Background()); err != io.EOF {
		t.Errorf("Read() after Close = %v, want io.EOF", err)
	}
}
