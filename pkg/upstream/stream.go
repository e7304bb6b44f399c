package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// doneSentinel terminates the upstream event stream.
const doneSentinel = "[DONE]"

// Reader reads the upstream's SSE event stream incrementally. Frames are
// "data: <json>" lines; the stream ends with "data: [DONE]".
type Reader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// NewReader creates a stream reader over a streaming response body. The
// reader takes ownership of the body.
func NewReader(body io.ReadCloser) *Reader {
	scanner := bufio.NewScanner(body)
	// Single deltas are small, but upstream occasionally batches frames.
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	return &Reader{body: body, scanner: scanner}
}

// Read returns the next event. It returns io.EOF when the stream ends
// normally, either at the [DONE] sentinel or at EOF.
func (r *Reader) Read(ctx context.Context) (*Event, error) {
	if r.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, &StreamError{Message: "failed to read event stream", Cause: err}
			}
			return nil, io.EOF
		}

		line := r.scanner.Text()
		if line == "" {
			continue
		}

		// Comments and event-type lines are skipped.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == doneSentinel {
			return nil, io.EOF
		}

		var event Event
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &ParseError{
				RawResponse: truncate([]byte(data)),
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
		return &event, nil
	}
}

// Close closes the underlying body. Further reads return io.EOF.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}
