package nauta

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

var (
	ErrEmptyProxyURL     = errors.New("proxy URL cannot be empty")
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")
	ErrInvalidProxyURL   = errors.New("invalid proxy URL")
)

var supportedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks5": true,
}

// ParseProxyURL parses and validates a proxy URL string.
func ParseProxyURL(proxyURL string) (*url.URL, error) {
	if proxyURL == "" {
		return nil, ErrEmptyProxyURL
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, ErrInvalidProxyURL
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrInvalidProxyURL
	}
	if !supportedSchemes[parsed.Scheme] {
		return nil, ErrUnsupportedScheme
	}
	return parsed, nil
}

// newTransport builds the transport shared by every gateway request.
// An empty proxyURL yields a direct transport that ignores HTTP_PROXY:
// the gateway intercepts traffic itself, so environment proxies only get
// in the way.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if proxyURL == "" {
		return transport, nil
	}

	parsed, err := ParseProxyURL(proxyURL)
	if err != nil {
		return nil, err
	}

	if parsed.Scheme == "socks5" {
		var auth *proxy.Auth
		if parsed.User != nil {
			pass, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: pass,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, err
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = nil
			transport.Dial = dialer.Dial
		}
	} else {
		transport.Proxy = http.ProxyURL(parsed)
	}
	return transport, nil
}

// NewHTTPClient creates a client with the given proxy (may be empty) and timeout.
// The client carries no cookie jar; sessions attach their own.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport, err := newTransport(proxyURL)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
