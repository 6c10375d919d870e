// Package proxy holds the outbound proxy pool and builds transports for it.
package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Endpoint is one outbound proxy
type Endpoint struct {
	URL *url.URL
}

// String returns the proxy URL with any password redacted
func (e *Endpoint) String() string {
	return e.URL.Redacted()
}

// IsSOCKS reports whether the endpoint speaks SOCKS5
func (e *Endpoint) IsSOCKS() bool {
	return e.URL.Scheme == "socks5" || e.URL.Scheme == "socks5h"
}

// ParseEndpoints parses proxy URLs. A bare host:port is treated as an HTTP proxy.
func ParseEndpoints(raw []string) ([]Endpoint, error) {
	endpoints := make([]Endpoint, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.Contains(r, "://") {
			r = "http://" + r
		}

		u, err := url.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", r, err)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("proxy %q has no host", r)
		}
		endpoints = append(endpoints, Endpoint{URL: u})
	}
	return endpoints, nil
}

// Transport builds a round tripper that sends traffic through the endpoint.
// A nil endpoint yields a direct transport.
func (e *Endpoint) Transport(timeout time.Duration) (http.RoundTripper, error) {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	if e == nil {
		return transport, nil
	}

	if !e.IsSOCKS() {
		transport.Proxy = http.ProxyURL(e.URL)
		return transport, nil
	}

	var auth *proxy.Auth
	if e.URL.User != nil {
		password, _ := e.URL.User.Password()
		auth = &proxy.Auth{User: e.URL.User.Username(), Password: password}
	}
	socks, err := proxy.SOCKS5("tcp", e.URL.Host, auth, dialer)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	contextDialer, ok := socks.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("SOCKS5 dialer for %s is not context aware", e)
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return contextDialer.DialContext(ctx, network, addr)
	}
	return transport, nil
}

// Rotator hands out endpoints in round-robin order. It is not safe for
// concurrent use; each run owns its own Rotator.
type Rotator struct {
	endpoints []Endpoint
	cursor    int
}

// NewRotator creates a rotator over endpoints
func NewRotator(endpoints []Endpoint) *Rotator {
	return &Rotator{endpoints: endpoints}
}

// Next returns the endpoint at the cursor and advances it.
// It returns nil, meaning a direct connection, when the pool is empty.
func (r *Rotator) Next() *Endpoint {
	if r == nil || len(r.endpoints) == 0 {
		return nil
	}
	e := &r.endpoints[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.endpoints)
	return e
}

// Len returns the pool size
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.endpoints)
}
