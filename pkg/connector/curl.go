package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/replicate/pload/pkg/client"
	"github.com/replicate/pload/pkg/httperr"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/proxy"
	"github.com/replicate/pload/pkg/response"
)

// CurlConnector uses the full-featured client from pkg/client: connect timeout, user agent and a
// proxy with basic or NTLM authentication. The final status is always classified.
type CurlConnector struct {
	Config *options.Config
	// Transport replaces the network transport, mainly for tests.
	Transport http.RoundTripper
}

var _ Connector = &CurlConnector{}

func NewCurlConnector(cfg *options.Config) *CurlConnector {
	return &CurlConnector{Config: cfg}
}

func (c *CurlConnector) Kind() Kind {
	return KindCurl
}

func (c *CurlConnector) SupportsLineStreaming() bool {
	return false
}

func (c *CurlConnector) Fetch(ctx context.Context, uri string) (*RawResult, error) {
	cfg := c.Config
	if cfg == nil {
		cfg = options.NewConfig()
	}
	pctx, err := proxy.Build(cfg.Options, cfg.FormattedUserAgent(), proxy.FlavorCurl)
	if err != nil {
		return nil, err
	}

	httpClient := client.New(client.Options{
		ConnectTimeout: cfg.Timeout,
		Context:        pctx,
		Transport:      c.Transport,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotLoadRemoteFile, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionFailed, uri, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCannotLoadRemoteFile, uri, err)
	}
	if err := httperr.Check(resp.StatusCode); err != nil {
		return nil, err
	}

	return &RawResult{
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		Header:     response.FromHTTPHeader(resp.Header),
		Body:       body,
	}, nil
}
