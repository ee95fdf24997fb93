// Package proxy builds the per-request connection context shared by the remote connectors: user
// agent, error policy and, when a proxy host is configured, the proxy endpoint and credentials.
//
// Build validates every proxy option before any network I/O. It is called once per fetch and its
// result is never cached, so configuration changes between calls always take effect.
package proxy

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/replicate/pload/pkg/options"
)

// Flavor selects the validation rules of the connector the context is built for.
type Flavor int

const (
	FlavorSocket Flavor = iota
	FlavorStream
	FlavorCurl
)

func (f Flavor) String() string {
	switch f {
	case FlavorSocket:
		return "socket"
	case FlavorStream:
		return "stream"
	case FlavorCurl:
		return "curl"
	}
	return fmt.Sprintf("flavor(%d)", int(f))
}

type AuthScheme string

const (
	AuthBasic AuthScheme = "basic"
	AuthNTLM  AuthScheme = "ntlm"
)

const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Settings describes the proxy endpoint.
type Settings struct {
	// URL is scheme://host[:port], without credentials.
	URL *url.URL
	// RequestFullURI makes plain-http requests carry the absolute URI in the request line.
	RequestFullURI bool
	Auth           AuthScheme
	User           string
	Password       string
	// HasCredentials is true when ProxyUser was set.
	HasCredentials bool
}

// AuthorizationHeader returns the Proxy-Authorization value for basic auth, or "" when no
// basic credentials apply.
func (s *Settings) AuthorizationHeader() string {
	if s == nil || !s.HasCredentials || s.Auth != AuthBasic {
		return ""
	}
	token := base64.StdEncoding.EncodeToString([]byte(s.User + ":" + s.Password))
	return "Basic " + token
}

// URLWithCredentials returns the proxy URL carrying basic credentials as userinfo, the form
// net/http uses to authenticate both forwarded requests and CONNECT tunnels.
func (s *Settings) URLWithCredentials() *url.URL {
	u := *s.URL
	if s.HasCredentials && s.Auth == AuthBasic {
		u.User = url.UserPassword(s.User, s.Password)
	}
	return &u
}

// UsesNTLMDialer reports whether the proxy is reached through the NTLM handshake dialer.
// Without a user there is nothing to negotiate and the proxy is used as a plain forward proxy.
func (s *Settings) UsesNTLMDialer() bool {
	return s != nil && s.Auth == AuthNTLM && s.HasCredentials
}

// Address returns host:port of the proxy, defaulting the port from the scheme.
func (s *Settings) Address() string {
	if s.URL.Port() != "" {
		return s.URL.Host
	}
	port := "80"
	if s.URL.Scheme == ProtocolHTTPS {
		port = "443"
	}
	return net.JoinHostPort(s.URL.Hostname(), port)
}

// Context is the bundle of transport options passed to a remote connector.
type Context struct {
	UserAgent string
	// IgnoreErrors keeps 4xx/5xx bodies readable. The connector classifies the status itself.
	IgnoreErrors bool
	Flavor       Flavor
	// Proxy is nil when no ProxyHost is configured.
	Proxy *Settings
}

// Build validates opts for the given flavor and assembles a Context.
func Build(opts options.Options, userAgent string, flavor Flavor) (*Context, error) {
	protocol := ProtocolHTTP
	if v, ok := opts.Get(options.ProxyProtocol); ok {
		switch strings.ToLower(v) {
		case ProtocolHTTP, ProtocolHTTPS:
			protocol = strings.ToLower(v)
		default:
			return nil, options.InvalidOption(string(options.ProxyProtocol), v)
		}
	}

	auth := AuthBasic
	if v, ok := opts.Get(options.ProxyAuth); ok {
		switch AuthScheme(strings.ToLower(v)) {
		case AuthBasic:
		case AuthNTLM:
			if flavor == FlavorStream {
				return nil, options.InvalidOption(string(options.ProxyAuth), v)
			}
			auth = AuthNTLM
		default:
			return nil, options.InvalidOption(string(options.ProxyAuth), v)
		}
	}

	port := ""
	if v, ok := opts.Get(options.ProxyPort); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return nil, options.InvalidOption(string(options.ProxyPort), v)
		}
		port = v
	}

	ctx := &Context{
		UserAgent:    userAgent,
		IgnoreErrors: true,
		Flavor:       flavor,
	}

	host := opts.Value(options.ProxyHost)
	if host == "" {
		return ctx, nil
	}

	hostPort := host
	if port != "" {
		hostPort = net.JoinHostPort(strings.Trim(host, "[]"), port)
	}
	settings := &Settings{
		URL:            &url.URL{Scheme: protocol, Host: hostPort},
		RequestFullURI: true,
		Auth:           auth,
	}
	if user, ok := opts.Get(options.ProxyUser); ok {
		settings.HasCredentials = true
		settings.User = user
		settings.Password = opts.Value(options.ProxyPassword)
	}
	ctx.Proxy = settings
	return ctx, nil
}

// HTTPProxy returns the Proxy function for an http.Transport. It returns nil when no proxy is
// configured or when the proxy is reached through an NTLM dialer instead.
func (c *Context) HTTPProxy() func(*http.Request) (*url.URL, error) {
	if c.Proxy == nil || c.Proxy.UsesNTLMDialer() {
		return nil
	}
	return http.ProxyURL(c.Proxy.URLWithCredentials())
}

// ApplyHeaders sets the User-Agent header on req, and Proxy-Authorization when req goes to a
// plain-http target through a basic-auth proxy.
func (c *Context) ApplyHeaders(req *http.Request) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.URL != nil && req.URL.Scheme == "http" {
		if v := c.Proxy.AuthorizationHeader(); v != "" {
			req.Header.Set("Proxy-Authorization", v)
		}
	}
}
