// Package connector implements the interchangeable transports that fetch a URI: a local file
// reader, a raw socket client, a buffered net/http stream and a full-featured HTTP client.
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/replicate/pload/pkg/response"
)

var (
	ErrNoValidConnector     = errors.New("no valid connector found")
	ErrFileNotReadable      = errors.New("local file is not readable")
	ErrConnectionFailed     = errors.New("connection failed")
	ErrCannotLoadRemoteFile = errors.New("cannot load remote file")
)

type Kind int

const (
	KindLocal Kind = iota
	KindSocket
	KindStream
	KindCurl
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindSocket:
		return "socket"
	case KindStream:
		return "stream"
	case KindCurl:
		return "curl"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode tells the factory which connector to build. ModeUnset lets the factory fall back through
// every available connector.
type Mode int

const (
	ModeUnset Mode = iota
	ModeLocal
	ModeSocket
	ModeStream
	ModeCurl
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return ""
	case ModeLocal:
		return "local"
	case ModeSocket:
		return "socket"
	case ModeStream:
		return "stream"
	case ModeCurl:
		return "curl"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ModeUnset, nil
	case "local":
		return ModeLocal, nil
	case "socket":
		return ModeSocket, nil
	case "stream":
		return ModeStream, nil
	case "curl":
		return ModeCurl, nil
	}
	return ModeUnset, fmt.Errorf("unknown mode: %s", s)
}

// RawResult is what a connector read, before it is wrapped into a response.Response.
type RawResult struct {
	StatusCode int
	Reason     string
	Header     response.Header
	Body       []byte
}

type Connector interface {
	Fetch(ctx context.Context, uri string) (*RawResult, error)
	Kind() Kind
	SupportsLineStreaming() bool
}

// LineStreamer is implemented by connectors that can read a resource one line at a time.
type LineStreamer interface {
	Connector
	// Lines opens the resource. The caller owns the returned stream and must Close it; EachLine
	// does that on every exit path.
	Lines(ctx context.Context, uri string) (*LineStream, error)
}

// withTimeout is context.WithTimeout that treats a non-positive timeout as no limit.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
