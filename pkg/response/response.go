// Package response holds the uniform HTTP-shaped result every connector produces.
package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vfaronov/httpheader"
)

var (
	ErrInvalidStatus = errors.New("status code out of range")
	ErrNotRewindable = errors.New("body is not rewindable")
)

type Response struct {
	StatusCode int
	Reason     string
	Header     Header
	Body       *Body
}

// New validates the status code and wraps body. An empty reason is filled from the status text.
func New(statusCode int, reason string, header Header, body io.Reader) (*Response, error) {
	if statusCode < 100 || statusCode > 599 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, statusCode)
	}
	if reason == "" {
		reason = http.StatusText(statusCode)
	}
	if body == nil {
		body = bytes.NewReader(nil)
	}
	return &Response{
		StatusCode: statusCode,
		Reason:     reason,
		Header:     header,
		Body:       &Body{r: body},
	}, nil
}

// FromBytes is New over an in-memory, rewindable body.
func FromBytes(statusCode int, reason string, header Header, data []byte) (*Response, error) {
	return New(statusCode, reason, header, bytes.NewReader(data))
}

// Contents reads the rest of the body.
func (r *Response) Contents() ([]byte, error) {
	return r.Body.Contents()
}

// LastModified returns the Last-Modified header, or the zero time when absent or malformed.
func (r *Response) LastModified() time.Time {
	t, err := http.ParseTime(r.Header.Get("Last-Modified"))
	if err != nil {
		return time.Time{}
	}
	return t
}

// ContentType returns the media type and its parameters.
func (r *Response) ContentType() (string, map[string]string) {
	return httpheader.ContentType(r.Header.HTTPHeader())
}

// Body is a lazily read stream. It can be read once; Rewind restarts it when the underlying
// source is seekable.
type Body struct {
	r io.Reader
}

var _ io.ReadCloser = &Body{}

func (b *Body) Read(p []byte) (int, error) {
	return b.r.Read(p)
}

func (b *Body) Contents() ([]byte, error) {
	return io.ReadAll(b.r)
}

func (b *Body) Rewind() error {
	s, ok := b.r.(io.Seeker)
	if !ok {
		return ErrNotRewindable
	}
	_, err := s.Seek(0, io.SeekStart)
	return err
}

func (b *Body) Seekable() bool {
	_, ok := b.r.(io.Seeker)
	return ok
}

func (b *Body) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
