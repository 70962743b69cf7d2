package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"h12.io/socks"

	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
	"github.com/ResistanceIsUseless/StatusHawk/internal/proxyroute"
)

const (
	// DefaultBackoffFactor is the exponential base applied between
	// connection attempts.
	DefaultBackoffFactor = 3.0

	// backoffUnit scales the exponential backoff into wall time.
	backoffUnit = 100 * time.Millisecond
)

// Config holds everything needed to build a DNS-aware transport.
type Config struct {
	// Resolver performs hostname resolution. Required: the transport
	// never falls back to OS resolution.
	Resolver dnsquery.Resolver

	// Timeout bounds each connection attempt.
	Timeout time.Duration

	// MaxRetries is the number of additional connection attempts after
	// the first failure.
	MaxRetries int

	// BackoffFactor is the exponential base between attempts. Zero
	// selects DefaultBackoffFactor.
	BackoffFactor float64

	// VerifyCertificate toggles TLS certificate validation for all
	// HTTPS connections made through this transport.
	VerifyCertificate bool

	// ProxyPattern routes requests through proxies by target TLD.
	ProxyPattern proxyroute.Pattern
}

// dialer carries the per-transport state used by DialContext.
type dialer struct {
	resolver      dnsquery.Resolver
	router        *proxyroute.Router
	timeout       time.Duration
	maxRetries    int
	backoffFactor float64
}

// New builds an *http.Transport that resolves targets through the
// configured resolver before connecting, applies TLD-routed proxies,
// and retries failed connections with exponential backoff.
func New(cfg Config) *http.Transport {
	d := &dialer{
		resolver:      cfg.Resolver,
		router:        proxyroute.NewRouter(cfg.ProxyPattern),
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		backoffFactor: cfg.BackoffFactor,
	}
	if d.backoffFactor <= 0 {
		d.backoffFactor = DefaultBackoffFactor
	}

	transport := &http.Transport{
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		DisableKeepAlives:     true,
		ForceAttemptHTTP2:     false,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyCertificate,
		},
		Proxy:       d.proxyFor,
		DialContext: d.dialContext,
	}

	return transport
}

// proxyFor routes http/https proxies through the standard Proxy hook.
// SOCKS endpoints are handled by dialContext instead.
func (d *dialer) proxyFor(req *http.Request) (*url.URL, error) {
	pair := d.router.Route(req.URL.Hostname())
	if pair.IsZero() {
		return nil, nil
	}

	endpoint := pair.ForScheme(req.URL.Scheme)
	if endpoint == "" || isSOCKS(endpoint) {
		return nil, nil
	}

	proxyURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrorProxyConnectionFailed, "invalid proxy endpoint", endpoint, err)
	}
	return proxyURL, nil
}

// dialContext resolves the target through the injected resolver and
// connects, retrying with exponential backoff. Resolution failures are
// explicit connection errors; there is no OS-resolver fallback.
func (d *dialer) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrorConnectionFailed, "invalid address", addr, err)
	}

	socksEndpoint := d.socksEndpointFor(host)

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.NewTransportError(errors.ErrorConnectionFailed, "dial cancelled", addr, ctx.Err())
			case <-time.After(d.backoff(attempt)):
			}
		}

		conn, err := d.dialOnce(ctx, network, host, port, socksEndpoint)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		// Resolution failures will not improve by retrying a different
		// route; they still honor the retry budget like the original.
	}

	return nil, lastErr
}

func (d *dialer) dialOnce(ctx context.Context, network, host, port, socksEndpoint string) (net.Conn, error) {
	address, err := d.resolver.Resolve(host)
	if err != nil {
		return nil, errors.NewTransportError(
			errors.ErrorConnectionFailed, "could not resolve", host, err,
		).WithDetail("resolver", "injected")
	}
	if address == "" {
		return nil, errors.NewDNSError(errors.ErrorDNSNoUsableAddress, "resolver returned no usable address", host, nil)
	}

	target := net.JoinHostPort(address, port)

	if socksEndpoint != "" {
		dialSocks := socks.Dial(socksEndpoint)
		conn, err := dialSocks(network, target)
		if err != nil {
			return nil, errors.NewTransportError(errors.ErrorProxyConnectionFailed, "socks dial failed", socksEndpoint, err)
		}
		return conn, nil
	}

	netDialer := &net.Dialer{Timeout: d.timeout}
	conn, err := netDialer.DialContext(ctx, network, target)
	if err != nil {
		return nil, errors.NewTransportError(errors.ErrorConnectionFailed, "dial failed", target, err)
	}
	return conn, nil
}

// socksEndpointFor returns the SOCKS proxy endpoint routed for the
// host, or an empty string when the route is direct or an HTTP proxy.
func (d *dialer) socksEndpointFor(host string) string {
	pair := d.router.Route(host)
	if pair.IsZero() {
		return ""
	}
	if endpoint := pair.HTTP; isSOCKS(endpoint) {
		return endpoint
	}
	if endpoint := pair.HTTPS; isSOCKS(endpoint) {
		return endpoint
	}
	return ""
}

func (d *dialer) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(d.backoffFactor, float64(attempt-1))) * backoffUnit
}

func isSOCKS(endpoint string) bool {
	return strings.HasPrefix(endpoint, "socks4://") ||
		strings.HasPrefix(endpoint, "socks4a://") ||
		strings.HasPrefix(endpoint, "socks5://")
}

// NewClient wraps the transport into an http.Client enforcing the
// redirect limit. Redirect following can be disabled per request by the
// caller via http.ErrUseLastResponse semantics; this client only caps
// the chain length.
//
// Timeouts are per attempt (dial, TLS handshake, response headers),
// never per overall request: a long redirect chain of compliant hops
// must complete. Worst-case wall time is therefore
// Timeout x (MaxRetries+1) per hop, times the redirect chain length.
func NewClient(cfg Config, maxRedirects int, followRedirects bool) *http.Client {
	client := &http.Client{
		Transport: New(cfg),
	}

	if !followRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return client
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.NewTransportError(
				errors.ErrorTooManyRedirects,
				fmt.Sprintf("stopped after %d redirects", maxRedirects),
				req.URL.String(),
				nil,
			)
		}
		return nil
	}

	return client
}
