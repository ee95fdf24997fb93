package connector

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// LineStream reads a resource incrementally. Valid reports whether another line is available,
// Next returns it without the trailing newline.
type LineStream struct {
	r      *bufio.Reader
	closer io.Closer
	err    error
	closed bool
}

func newLineStream(r io.Reader, closer io.Closer) *LineStream {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &LineStream{r: br, closer: closer}
}

func (l *LineStream) Valid() bool {
	if l.closed || l.err != nil {
		return false
	}
	if _, err := l.r.Peek(1); err != nil {
		if !errors.Is(err, io.EOF) {
			l.err = err
		}
		return false
	}
	return true
}

func (l *LineStream) Next() string {
	if l.closed || l.err != nil {
		return ""
	}
	line, err := l.r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		l.err = err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Err returns the first read error other than io.EOF.
func (l *LineStream) Err() error {
	return l.err
}

// Close releases the handle. It is safe to call more than once.
func (l *LineStream) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// EachLine opens uri on ls and calls fn for every line. The stream is closed on every exit path,
// including an error from fn, cancellation of ctx or a panic.
func EachLine(ctx context.Context, ls LineStreamer, uri string, fn func(line string) error) (err error) {
	stream, err := ls.Lines(ctx, uri)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for stream.Valid() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(stream.Next()); err != nil {
			return err
		}
	}
	return stream.Err()
}
