package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	ntlm "github.com/launchdarkly/go-ntlm-proxy-auth"
)

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// DialProxy opens a connection to the proxy itself, wrapping it in TLS for https proxies.
func (s *Settings) DialProxy(ctx context.Context, dial DialFunc) (net.Conn, error) {
	conn, err := dial(ctx, "tcp", s.Address())
	if err != nil {
		return nil, err
	}
	if s.URL.Scheme != ProtocolHTTPS {
		return conn, nil
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: s.URL.Hostname()})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// DialTunnel opens a CONNECT tunnel through the proxy to targetAddr. Basic credentials are sent
// with the CONNECT request.
func (s *Settings) DialTunnel(ctx context.Context, dial DialFunc, targetAddr string) (net.Conn, error) {
	conn, err := s.DialProxy(ctx, dial)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONNECT %s HTTP/1.1\r\nHost: %s\r\n", targetAddr, targetAddr)
	if auth := s.AuthorizationHeader(); auth != "" {
		fmt.Fprintf(&b, "Proxy-Authorization: %s\r\n", auth)
	}
	b.WriteString("\r\n")
	if _, err := conn.Write([]byte(b.String())); err != nil {
		conn.Close()
		return nil, err
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading CONNECT response from %s: %w", s.Address(), err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy %s refused CONNECT to %s: %s", s.Address(), targetAddr, resp.Status)
	}
	_ = conn.SetDeadline(time.Time{})
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn replays bytes read past the CONNECT response before reading from the conn.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}

// NTLMDialContext returns a dial function that tunnels through the proxy with NTLM
// authentication. A user of the form DOMAIN\user is split into domain and user.
func (s *Settings) NTLMDialContext(dialer *net.Dialer) DialFunc {
	domain, user := splitDomainUser(s.User)
	return DialFunc(ntlm.NewNTLMProxyDialContext(dialer, *s.URL, user, s.Password, domain, nil))
}

func splitDomainUser(user string) (domain, name string) {
	if i := strings.IndexByte(user, '\\'); i >= 0 {
		return user[:i], user[i+1:]
	}
	return "", user
}
