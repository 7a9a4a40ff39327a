// AngelaMos | 2026
// httpclient.go

package core

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/dnscache"
)

const (
	dnsRefreshInterval = 5 * time.Minute
	dialTimeout        = 10 * time.Second
)

var (
	resolver     *dnscache.Resolver
	resolverOnce sync.Once
)

// DNSResolver returns the process-wide caching resolver used by outbound
// gateway clients.
func DNSResolver() *dnscache.Resolver {
	resolverOnce.Do(func() {
		resolver = &dnscache.Resolver{}
	})
	return resolver
}

// RefreshDNS refreshes the resolver cache until ctx is done.
func RefreshDNS(ctx context.Context) {
	ticker := time.NewTicker(dnsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			DNSResolver().Refresh(true)
		}
	}
}

// NewHTTPClient builds a client for third-party gateways (payments, SMS).
// Host lookups go through the shared DNS cache.
func NewHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := DNSResolver().LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no addresses found", Name: host}
		}
		return nil, lastErr
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
