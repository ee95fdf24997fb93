package connector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/replicate/pload/pkg/client"
	"github.com/replicate/pload/pkg/httperr"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/proxy"
	"github.com/replicate/pload/pkg/response"
)

// StreamConnector reads through a buffered net/http stream. Error bodies are always read; the
// status from the response metadata is then classified and 4xx/5xx become a *httperr.StatusError.
type StreamConnector struct {
	Config *options.Config
	// Transport replaces the network transport, mainly for tests.
	Transport http.RoundTripper
}

var _ Connector = &StreamConnector{}

func NewStreamConnector(cfg *options.Config) *StreamConnector {
	return &StreamConnector{Config: cfg}
}

func (c *StreamConnector) Kind() Kind {
	return KindStream
}

func (c *StreamConnector) SupportsLineStreaming() bool {
	return false
}

func (c *StreamConnector) Fetch(ctx context.Context, uri string) (*RawResult, error) {
	cfg := c.Config
	if cfg == nil {
		cfg = options.NewConfig()
	}
	pctx, err := proxy.Build(cfg.Options, cfg.FormattedUserAgent(), proxy.FlavorStream)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotLoadRemoteFile, err)
	}
	pctx.ApplyHeaders(req)

	httpClient := &http.Client{Transport: c.transport(cfg, pctx)}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionFailed, uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(bufio.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCannotLoadRemoteFile, uri, err)
	}

	if statusErr := httperr.Classify(resp.StatusCode); statusErr != nil {
		logger := logging.GetLogger()
		logger.Debug().
			Str("url", uri).
			Int("status", resp.StatusCode).
			Int("body_bytes", len(body)).
			Msg("Error Response")
		return nil, statusErr
	}

	return &RawResult{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Header:     response.FromHTTPHeader(resp.Header),
		Body:       body,
	}, nil
}

func (c *StreamConnector) transport(cfg *options.Config, pctx *proxy.Context) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	return &http.Transport{
		Proxy:                 pctx.HTTPProxy(),
		DialContext:           client.DialContext(dialer),
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		DisableKeepAlives:     true,
	}
}

// reasonPhrase strips the code from resp.Status ("200 OK" -> "OK").
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	return strings.TrimSpace(reason)
}
