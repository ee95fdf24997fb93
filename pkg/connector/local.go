package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/replicate/pload/pkg/response"
)

// LocalConnector reads a file from disk. The uri passed to Fetch and Lines is ignored in favour
// of Path. Readability is checked on the open handle right before reading.
type LocalConnector struct {
	Path string
}

var _ LineStreamer = &LocalConnector{}

func NewLocalConnector(path string) *LocalConnector {
	return &LocalConnector{Path: path}
}

func (c *LocalConnector) Kind() Kind {
	return KindLocal
}

func (c *LocalConnector) SupportsLineStreaming() bool {
	return true
}

func (c *LocalConnector) Fetch(ctx context.Context, _ string) (*RawResult, error) {
	f, info, err := c.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotReadable, c.Path, err)
	}

	var header response.Header
	header.Add("Content-Length", strconv.Itoa(len(data)))
	header.Add("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	return &RawResult{
		StatusCode: http.StatusOK,
		Reason:     http.StatusText(http.StatusOK),
		Header:     header,
		Body:       data,
	}, nil
}

// ModTime returns the file's modification time, with the same failure modes as Fetch.
func (c *LocalConnector) ModTime(ctx context.Context) (time.Time, error) {
	f, info, err := c.open()
	if err != nil {
		return time.Time{}, err
	}
	f.Close()
	return info.ModTime(), nil
}

func (c *LocalConnector) Lines(ctx context.Context, _ string) (*LineStream, error) {
	f, _, err := c.open()
	if err != nil {
		return nil, err
	}
	return newLineStream(f, f), nil
}

func (c *LocalConnector) open() (*os.File, os.FileInfo, error) {
	if c.Path == "" {
		return nil, nil, fmt.Errorf("%w: no path configured", ErrFileNotReadable)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFileNotReadable, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrFileNotReadable, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s is not a regular file", ErrFileNotReadable, c.Path)
	}
	return f, info, nil
}
