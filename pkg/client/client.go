package client

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/replicate/pload/pkg/config"
	"github.com/replicate/pload/pkg/logging"
	"github.com/replicate/pload/pkg/proxy"
)

const defaultConnectTimeout = 5 * time.Second

// Options configures the full-featured client used by the curl-like connector.
type Options struct {
	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration
	// Timeout bounds the whole exchange. Zero means no limit beyond ConnectTimeout.
	Timeout time.Duration
	// Context supplies the user agent and proxy. It must come from proxy.Build.
	Context *proxy.Context
	// Transport replaces the network transport, mainly for tests.
	Transport http.RoundTripper
}

type UserAgentTransport struct {
	Transport http.RoundTripper
	UserAgent string
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.UserAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return t.Transport.RoundTrip(req)
}

// New returns an http.Client backed by retryablehttp with retries disabled: every status,
// including 5xx, is handed back to the caller for classification.
func New(opts Options) *http.Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.Context == nil {
		opts.Context = &proxy.Context{}
	}

	base := opts.Transport
	if base == nil {
		base = newTransport(opts)
	}
	transport := &UserAgentTransport{Transport: base, UserAgent: opts.Context.UserAgent}

	retryClient := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport:     transport,
			CheckRedirect: checkRedirectFunc,
		},
		Logger:       nil,
		RetryMax:     0,
		CheckRetry:   noRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	client := retryClient.StandardClient()
	client.Timeout = opts.Timeout
	return client
}

func newTransport(opts Options) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 opts.Context.HTTPProxy(),
		DialContext:           DialContext(dialer),
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,
	}
	if p := opts.Context.Proxy; p.UsesNTLMDialer() {
		transport.DialContext = p.NTLMDialContext(dialer)
	}
	return transport
}

func noRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// checkRedirectFunc is a wrapper around http.Client.CheckRedirect that allows for printing out redirects
func checkRedirectFunc(req *http.Request, via []*http.Request) error {
	logger := logging.GetLogger()
	logger.Trace().
		Str("redirect_url", req.URL.String()).
		Str("url", via[0].URL.String()).
		Int("status", req.Response.StatusCode).
		Msg("Redirect")
	return nil
}

// DialContext wraps dialer so that the values passed to `--resolve` override DNS lookups without
// impacting Host and SSL resolution.
func DialContext(dialer *net.Dialer) proxy.DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if addrOverride := config.HostToIPResolutionMap[addr]; addrOverride != "" {
			logger := logging.GetLogger()
			logger.Debug().Str("addr", addr).Str("override", addrOverride).Msg("DNS Override")
			addr = addrOverride
		}
		return dialer.DialContext(ctx, network, addr)
	}
}
