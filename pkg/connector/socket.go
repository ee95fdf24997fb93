package connector

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/replicate/pload/pkg/client"
	"github.com/replicate/pload/pkg/options"
	"github.com/replicate/pload/pkg/proxy"
	"github.com/replicate/pload/pkg/response"
)

// SocketConnector speaks HTTP/1.0 over a raw TCP (or TLS) connection. A response whose status
// line lacks "200" is returned with its status and headers but no body, and without an error.
type SocketConnector struct {
	Config *options.Config
	// TLSConfig overrides the client TLS configuration for https targets.
	TLSConfig *tls.Config
}

var _ LineStreamer = &SocketConnector{}

func NewSocketConnector(cfg *options.Config) *SocketConnector {
	return &SocketConnector{Config: cfg}
}

func (c *SocketConnector) Kind() Kind {
	return KindSocket
}

func (c *SocketConnector) SupportsLineStreaming() bool {
	return true
}

func (c *SocketConnector) Fetch(ctx context.Context, uri string) (*RawResult, error) {
	conn, err := c.open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("%w: reading from %s: %v", ErrCannotLoadRemoteFile, uri, err)
	}
	return parseRawResponse(raw), nil
}

// Lines reads the header block and, when the status is 200, streams the body line by line over
// the open connection.
func (c *SocketConnector) Lines(ctx context.Context, uri string) (*LineStream, error) {
	conn, err := c.open(ctx, uri)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(conn)
	statusLine, err := br.ReadString('\n')
	if err != nil && statusLine == "" {
		conn.Close()
		return nil, fmt.Errorf("%w: reading status from %s: %v", ErrCannotLoadRemoteFile, uri, err)
	}
	if !strings.Contains(statusLine, "200") {
		conn.Close()
		return nil, fmt.Errorf("%w: %s answered %q", ErrCannotLoadRemoteFile, uri, strings.TrimSpace(statusLine))
	}
	for {
		line, err := br.ReadString('\n')
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: reading headers from %s: %v", ErrCannotLoadRemoteFile, uri, err)
		}
	}
	return newLineStream(br, conn), nil
}

// open dials the target, or the configured proxy, and writes the request.
func (c *SocketConnector) open(ctx context.Context, uri string) (net.Conn, error) {
	cfg := c.config()
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotLoadRemoteFile, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrCannotLoadRemoteFile, u.Scheme)
	}

	pctx, err := proxy.Build(cfg.Options, cfg.FormattedUserAgent(), proxy.FlavorSocket)
	if err != nil {
		return nil, err
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	target := net.JoinHostPort(u.Hostname(), port)

	dialCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	dial := client.DialContext(dialer)

	requestTarget := u.RequestURI()
	var extraHeaders []string
	var conn net.Conn
	p := pctx.Proxy
	switch {
	case p == nil:
		conn, err = dial(dialCtx, "tcp", target)
	case p.UsesNTLMDialer():
		conn, err = p.NTLMDialContext(dialer)(dialCtx, "tcp", target)
	case u.Scheme == "https":
		conn, err = p.DialTunnel(dialCtx, dial, target)
	default:
		conn, err = p.DialProxy(dialCtx, dial)
		absolute := *u
		absolute.Fragment = ""
		requestTarget = absolute.String()
		if auth := p.AuthorizationHeader(); auth != "" {
			extraHeaders = append(extraHeaders, "Proxy-Authorization: "+auth)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectionFailed, target, err)
	}

	if u.Scheme == "https" {
		tlsConfig := c.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		tlsConfig = tlsConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = u.Hostname()
		}
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(dialCtx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: tls handshake with %s: %v", ErrConnectionFailed, target, err)
		}
		conn = tlsConn
	}

	conn = &idleTimeoutConn{Conn: conn, timeout: cfg.Timeout}
	request := buildRequest(requestTarget, u.Host, pctx.UserAgent, extraHeaders)
	if _, err := io.WriteString(conn, request); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: writing request to %s: %v", ErrConnectionFailed, target, err)
	}
	return conn, nil
}

func (c *SocketConnector) config() *options.Config {
	if c.Config == nil {
		return options.NewConfig()
	}
	return c.Config
}

func buildRequest(requestTarget, host, userAgent string, extraHeaders []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.0\r\nHost: %s\r\nUser-Agent: %s\r\nConnection: Close\r\n", requestTarget, host, userAgent)
	for _, h := range extraHeaders {
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.String()
}

// parseRawResponse splits the header block from the body on the first blank line after
// normalizing line endings. A status line without "200" yields an empty body.
func parseRawResponse(raw []byte) *RawResult {
	normalized := bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	head, body, found := bytes.Cut(normalized, []byte("\n\n"))
	if !found {
		body = nil
	}

	lines := strings.Split(string(head), "\n")
	statusLine := lines[0]
	code, reason := parseStatusLine(statusLine)

	result := &RawResult{
		StatusCode: code,
		Reason:     reason,
		Header:     response.ParseHeaderLines(lines[1:]),
	}
	if strings.Contains(statusLine, "200") && len(body) > 0 {
		result.Body = body
	}
	return result
}

// parseStatusLine parses "HTTP/1.x CODE Reason". Malformed lines yield code 0.
func parseStatusLine(line string) (int, string) {
	if !strings.HasPrefix(line, "HTTP/") {
		return 0, ""
	}
	_, rest, ok := strings.Cut(line, " ")
	if !ok {
		return 0, ""
	}
	codeStr, reason, _ := strings.Cut(rest, " ")
	code, err := strconv.Atoi(codeStr)
	if err != nil || code < 100 || code > 599 {
		return 0, ""
	}
	return code, strings.TrimSpace(reason)
}

// idleTimeoutConn pushes the deadline forward before every read and write, so the timeout
// bounds each stall rather than the whole transfer.
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil && !errors.Is(err, net.ErrClosed) {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil && !errors.Is(err, net.ErrClosed) {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}
