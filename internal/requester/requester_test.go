package requester

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/config"
	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// literalResolver only accepts IP literals. Tests point at httptest
// servers on 127.0.0.1, so nothing else needs to resolve.
type literalResolver struct{}

func (literalResolver) Resolve(hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	return "", errors.NewDNSError(errors.ErrorDNSResolutionFailed, "resolution failed", hostname, nil)
}

func TestSetterValidation(t *testing.T) {
	r := New(literalResolver{})

	if err := r.SetTimeout(-1 * time.Second); err == nil {
		t.Error("SetTimeout should reject negative values")
	}
	if err := r.SetTimeout(0); err != nil {
		t.Errorf("SetTimeout(0) should be accepted: %v", err)
	}
	if err := r.SetMaxRetries(-1); err == nil {
		t.Error("SetMaxRetries should reject negative values")
	}
	if err := r.SetMaxRetries(0); err != nil {
		t.Errorf("SetMaxRetries(0) should be accepted: %v", err)
	}
	if err := r.SetMaxRedirects(0); err == nil {
		t.Error("SetMaxRedirects should reject values below 1")
	}
	if err := r.SetMaxRedirects(1); err != nil {
		t.Errorf("SetMaxRedirects(1) should be accepted: %v", err)
	}
}

func TestSessionRebuildsAfterSetter(t *testing.T) {
	r := New(literalResolver{})

	first, _ := r.session()
	again, _ := r.session()
	if first != again {
		t.Fatal("session should be reused while no setting changes")
	}

	if err := r.SetTimeout(7 * time.Second); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}

	rebuilt, _ := r.session()
	if rebuilt == first {
		t.Error("session should be rebuilt after a setting change")
	}
}

func TestNewFromConfigFallbacks(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Timeout = -5
	cfg.MaxRedirects = 0

	r := NewFromConfig(cfg, literalResolver{})
	if r.Timeout() != STDTimeout {
		t.Errorf("Timeout = %v, want fallback %v", r.Timeout(), STDTimeout)
	}
	if r.maxRedirects != STDMaxRedirects {
		t.Errorf("maxRedirects = %d, want fallback %d", r.maxRedirects, STDMaxRedirects)
	}
}

func TestGetSendsUserAgent(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	r := New(literalResolver{})
	r.SetUserAgentSource(func() string { return "statushawk-test/1.0" })

	resp, err := r.Get(server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	if seen != "statushawk-test/1.0" {
		t.Errorf("User-Agent = %q, want the configured source value", seen)
	}
}

func TestGetNoRedirectReturnsFirstResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://elsewhere.example/", http.StatusFound)
	}))
	defer server.Close()

	r := New(literalResolver{})

	resp, err := r.GetNoRedirect(server.URL)
	if err != nil {
		t.Fatalf("GetNoRedirect failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want the raw 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "http://elsewhere.example/" {
		t.Errorf("Location = %q, want the redirect target preserved", loc)
	}
}
