package requester

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
	"github.com/ResistanceIsUseless/StatusHawk/internal/proxyroute"
	"github.com/ResistanceIsUseless/StatusHawk/internal/transport"
)

// Fallback values applied when a configured setting is unusable. The
// constructor never fails on bad ambient settings; it degrades to
// these and keeps going.
const (
	STDVerifyCertificate = false
	STDTimeout           = 3 * time.Second
	STDMaxRetries        = 3
	STDMaxRedirects      = 60
)

// Requester is a long-lived HTTP facade shared by check workers. It
// owns a pair of sessions (one that follows redirects, one that does
// not) built on the DNS-aware transport, and rebuilds them lazily
// after any setting changes.
type Requester struct {
	mu sync.Mutex

	timeout           time.Duration
	maxRetries        int
	maxRedirects      int
	verifyCertificate bool
	backoffFactor     float64
	proxyPattern      proxyroute.Pattern
	resolver          dnsquery.Resolver
	userAgent         func() string

	stale    bool
	follow   *http.Client
	noFollow *http.Client
}

// New creates a requester with the fallback defaults and the given
// resolver. Settings are adjusted afterwards through the setters.
func New(resolver dnsquery.Resolver) *Requester {
	return &Requester{
		timeout:           STDTimeout,
		maxRetries:        STDMaxRetries,
		maxRedirects:      STDMaxRedirects,
		verifyCertificate: STDVerifyCertificate,
		resolver:          resolver,
		userAgent:         func() string { return "" },
		stale:             true,
	}
}

// NewFromConfig derives a requester from the ambient configuration.
// Unusable values fall back silently to the standard defaults; an
// explicit setter call is the only way to get an error for a bad
// value.
func NewFromConfig(cfg *config.Config, resolver dnsquery.Resolver) *Requester {
	r := New(resolver)

	if cfg.Timeout > 0 {
		r.timeout = time.Duration(cfg.Timeout * float64(time.Second))
	}
	if cfg.MaxHTTPRetries >= 0 {
		r.maxRetries = cfg.MaxHTTPRetries
	}
	if cfg.MaxRedirects >= 1 {
		r.maxRedirects = cfg.MaxRedirects
	}
	r.verifyCertificate = cfg.VerifyCertificate
	r.proxyPattern = cfg.Proxy
	if cfg.UserAgent != "" {
		agent := cfg.UserAgent
		r.userAgent = func() string { return agent }
	}

	return r
}

// SetTimeout sets the per-attempt timeout. Negative values are
// rejected; zero means no timeout.
func (r *Requester) SetTimeout(timeout time.Duration) error {
	if timeout < 0 {
		return errors.NewConfigError(errors.ErrorConfigInvalid, "timeout must not be negative", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = timeout
	r.stale = true
	return nil
}

// SetMaxRetries sets the number of retries after a failed connection
// attempt. Negative values are rejected; zero disables retrying.
func (r *Requester) SetMaxRetries(retries int) error {
	if retries < 0 {
		return errors.NewConfigError(errors.ErrorConfigInvalid, "max retries must not be negative", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxRetries = retries
	r.stale = true
	return nil
}

// SetMaxRedirects sets the redirect chain cap. At least one redirect
// must be allowed.
func (r *Requester) SetMaxRedirects(redirects int) error {
	if redirects < 1 {
		return errors.NewConfigError(errors.ErrorConfigInvalid, "max redirects must be at least 1", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxRedirects = redirects
	r.stale = true
	return nil
}

// SetVerifyCertificate toggles TLS certificate validation.
func (r *Requester) SetVerifyCertificate(verify bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifyCertificate = verify
	r.stale = true
}

// SetProxyPattern replaces the TLD proxy routing table.
func (r *Requester) SetProxyPattern(pattern proxyroute.Pattern) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxyPattern = pattern
	r.stale = true
}

// SetResolver replaces the DNS resolver backing the transport.
func (r *Requester) SetResolver(resolver dnsquery.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = resolver
	r.stale = true
}

// SetUserAgentSource sets the function consulted for the User-Agent
// header of each request. A rotating pool plugs in here.
func (r *Requester) SetUserAgentSource(source func() string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if source == nil {
		source = func() string { return "" }
	}
	r.userAgent = source
}

// Timeout returns the per-attempt timeout currently in effect.
func (r *Requester) Timeout() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeout
}

// MaxRetries returns the retry budget currently in effect.
func (r *Requester) MaxRetries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxRetries
}

// session returns the current client pair, rebuilding it if any
// setting changed since the last request.
func (r *Requester) session() (follow, noFollow *http.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stale || r.follow == nil {
		cfg := transport.Config{
			Resolver:          r.resolver,
			Timeout:           r.timeout,
			MaxRetries:        r.maxRetries,
			BackoffFactor:     r.backoffFactor,
			VerifyCertificate: r.verifyCertificate,
			ProxyPattern:      r.proxyPattern,
		}
		r.follow = transport.NewClient(cfg, r.maxRedirects, true)
		r.noFollow = transport.NewClient(cfg, r.maxRedirects, false)
		r.stale = false
	}

	return r.follow, r.noFollow
}

func (r *Requester) do(method, url string, body io.Reader, followRedirects bool) (*http.Response, error) {
	follow, noFollow := r.session()
	client := follow
	if !followRedirects {
		client = noFollow
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, errors.NewHTTPError(errors.ErrorHTTPRequestFailed, "invalid request", url, err)
	}
	if agent := r.userAgent(); agent != "" {
		req.Header.Set("User-Agent", agent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewHTTPError(errors.ErrorHTTPRequestFailed, "request failed", url, err)
	}
	return resp, nil
}

// Get performs a GET request, following redirects up to the cap.
func (r *Requester) Get(url string) (*http.Response, error) {
	return r.do(http.MethodGet, url, nil, true)
}

// GetNoRedirect performs a GET request without following redirects,
// returning the first response as-is.
func (r *Requester) GetNoRedirect(url string) (*http.Response, error) {
	return r.do(http.MethodGet, url, nil, false)
}

// Head performs a HEAD request.
func (r *Requester) Head(url string) (*http.Response, error) {
	return r.do(http.MethodHead, url, nil, true)
}

// Options performs an OPTIONS request.
func (r *Requester) Options(url string) (*http.Response, error) {
	return r.do(http.MethodOptions, url, nil, true)
}

// Post performs a POST request.
func (r *Requester) Post(url string, body io.Reader) (*http.Response, error) {
	return r.do(http.MethodPost, url, body, true)
}

// Put performs a PUT request.
func (r *Requester) Put(url string, body io.Reader) (*http.Response, error) {
	return r.do(http.MethodPut, url, body, true)
}

// Patch performs a PATCH request.
func (r *Requester) Patch(url string, body io.Reader) (*http.Response, error) {
	return r.do(http.MethodPatch, url, body, true)
}

// Delete performs a DELETE request.
func (r *Requester) Delete(url string) (*http.Response, error) {
	return r.do(http.MethodDelete, url, nil, true)
}
