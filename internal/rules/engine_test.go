package rules

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

type literalResolver struct{}

func (literalResolver) Resolve(hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	return "", errors.NewDNSError(errors.ErrorDNSResolutionFailed, "resolution failed", hostname, nil)
}

func mustParse(t *testing.T, raw RawRule) *Rule {
	t.Helper()
	rule, err := ParseRule(raw)
	if err != nil {
		t.Fatalf("ParseRule failed: %v", err)
	}
	return rule
}

func newStatus(netloc string, verdict, source string, code int) *status.Status {
	st := &status.Status{
		Subject:        netloc,
		IDNASubject:    netloc,
		Netloc:         netloc,
		HTTPStatusCode: code,
	}
	if verdict != "" {
		st.Set(verdict, source)
	}
	return st
}

func TestStatusCodeRule(t *testing.T) {
	rule := mustParse(t, RawRule{
		SubjectPattern:     ".*",
		ValidationType:     "status_code",
		StateTransition:    "down",
		RequiredStatusCode: []int{404},
	})
	engine := NewEngine([]*Rule{rule}, requester.New(literalResolver{}), nil)

	st := newStatus("example.org", status.Up, status.SourceHTTPCode, 404)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want DOWN/EXTRA_RULES", st.Status, st.StatusSource)
	}
	if !st.StatusAfterExtraRules {
		t.Error("a firing rule must flip the terminal flag")
	}
	if st.StatusBeforeExtraRules != status.Up {
		t.Errorf("StatusBeforeExtraRules = %q, want the pipeline verdict preserved", st.StatusBeforeExtraRules)
	}

	st = newStatus("example.org", status.Up, status.SourceHTTPCode, 200)
	engine.Apply(st)
	if !st.IsUp() || st.StatusSource != status.SourceHTTPCode {
		t.Errorf("status = %s/%s, want the pipeline verdict untouched", st.Status, st.StatusSource)
	}
}

func TestRuleEvaluationIsIdempotent(t *testing.T) {
	rule := mustParse(t, RawRule{
		SubjectPattern:     ".*",
		ValidationType:     "status_code",
		StateTransition:    "down",
		RequiredStatusCode: []int{404},
	})
	engine := NewEngine([]*Rule{rule}, requester.New(literalResolver{}), nil)

	st := newStatus("example.org", status.Up, status.SourceHTTPCode, 404)
	engine.Apply(st)
	first, firstSource := st.Status, st.StatusSource

	engine.Apply(st)
	if st.Status != first || st.StatusSource != firstSource {
		t.Errorf("second evaluation changed the verdict: %s/%s", st.Status, st.StatusSource)
	}
}

func TestFirstMatchingRuleWins(t *testing.T) {
	down := mustParse(t, RawRule{
		SubjectPattern:     ".*",
		ValidationType:     "status_code",
		StateTransition:    "down",
		RequiredStatusCode: []int{404},
	})
	up := mustParse(t, RawRule{
		SubjectPattern:     ".*",
		ValidationType:     "status_code",
		StateTransition:    "up",
		RequiredStatusCode: []int{404},
	})
	engine := NewEngine([]*Rule{down, up}, requester.New(literalResolver{}), nil)

	st := newStatus("example.org", status.Up, status.SourceHTTPCode, 404)
	engine.Apply(st)
	if !st.IsDown() {
		t.Errorf("status = %s, the first rule in list order must win", st.Status)
	}
}

func TestRuleSkipsNonMatchingNetloc(t *testing.T) {
	rule := mustParse(t, RawRule{
		SubjectPattern:     "other\\.example",
		ValidationType:     "status_code",
		StateTransition:    "down",
		RequiredStatusCode: []int{404},
	})
	engine := NewEngine([]*Rule{rule}, requester.New(literalResolver{}), nil)

	st := newStatus("example.org", status.Up, status.SourceHTTPCode, 404)
	engine.Apply(st)
	if !st.IsUp() {
		t.Errorf("status = %s, a non-matching rule must not fire", st.Status)
	}
}

func urlStatus(t *testing.T, rawURL string, verdict, source string) *status.Status {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}
	st := &status.Status{
		Subject:     rawURL,
		IDNASubject: rawURL,
		Netloc:      parsed.Host,
		URLSyntax:   true,
	}
	if verdict != "" {
		st.Set(verdict, source)
	}
	return st
}

func TestHeadersRuleDoesLiveCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "sinkhole-ns")
		fmt.Fprint(w, "nothing here")
	}))
	defer server.Close()

	rule := mustParse(t, RawRule{
		SubjectPattern:  ".*",
		ValidationType:  "headers",
		StateTransition: "down",
		RequiredHeadersPatterns: map[string][]string{
			"Server": {"sinkhole"},
		},
	})
	engine := NewEngine([]*Rule{rule}, requester.New(literalResolver{}), nil)

	st := urlStatus(t, server.URL, status.Up, status.SourceHTTPCode)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want DOWN/EXTRA_RULES from the header match", st.Status, st.StatusSource)
	}
}

func TestBodyRuleDoesLiveCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>Account suspended by the hosting provider</html>")
	}))
	defer server.Close()

	rule := mustParse(t, RawRule{
		SubjectPattern:       ".*",
		ValidationType:       "body",
		StateTransition:      "down",
		RequiredBodyPatterns: []string{"suspended"},
	})
	engine := NewEngine([]*Rule{rule}, requester.New(literalResolver{}), nil)

	st := urlStatus(t, server.URL, status.Up, status.SourceHTTPCode)
	engine.Apply(st)
	if !st.IsDown() {
		t.Errorf("status = %s, want DOWN from the body match", st.Status)
	}
}

func TestParkedHandlerDowngradesParkedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>This domain is parked free of charge</html>")
	}))
	defer server.Close()

	req := requester.New(literalResolver{})
	engine := NewEngine(nil, req, nil)
	engine.AddBuiltin(NewParkedHandler(req))

	st := urlStatus(t, server.URL, status.Up, status.SourceHTTPCode)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want a parked page classified DOWN", st.Status, st.StatusSource)
	}
}

func TestParkedHandlerContentChecksDownSubjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>This domain is parked free of charge</html>")
	}))
	defer server.Close()

	req := requester.New(literalResolver{})
	engine := NewEngine(nil, req, nil)
	engine.AddBuiltin(NewParkedHandler(req))

	// The content check is not gated on the pipeline verdict.
	st := urlStatus(t, server.URL, status.Down, status.SourceSTDLookup)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want DOWN/EXTRA_RULES from the content check", st.Status, st.StatusSource)
	}
	if !st.StatusAfterExtraRules {
		t.Error("a firing handler must flip the terminal flag")
	}
}

func TestParkedHandlerCookieNeedsUpVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "parking_session", Value: "x"})
		fmt.Fprint(w, "<html>welcome</html>")
	}))
	defer server.Close()

	req := requester.New(literalResolver{})
	engine := NewEngine(nil, req, nil)
	engine.AddBuiltin(NewParkedHandler(req))

	st := urlStatus(t, server.URL, status.Down, status.SourceSTDLookup)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceSTDLookup {
		t.Errorf("status = %s/%s, the cookie switch must only fire on an up verdict", st.Status, st.StatusSource)
	}

	st = urlStatus(t, server.URL, status.Up, status.SourceHTTPCode)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want DOWN/EXTRA_RULES from the cookie switch", st.Status, st.StatusSource)
	}
}

// anyResolver maps every hostname to the loopback address so named
// virtual hosts can be served by a local test server.
type anyResolver struct{}

func (anyResolver) Resolve(string) (string, error) {
	return "127.0.0.1", nil
}

func TestSubjectSwitchRedirectToBareIsDown(t *testing.T) {
	var port string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Host, "www.") {
			w.Header().Set("Location", "http://site.test:"+port+"/")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}
		fmt.Fprint(w, "bare site")
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	port = serverURL.Port()

	req := requester.New(anyResolver{})
	engine := NewEngine(nil, req, nil)
	engine.AddBuiltin(NewSubjectSwitchHandler(req))

	st := newStatus("www.site.test:"+port, status.Up, status.SourceHTTPCode, 200)
	engine.Apply(st)
	if !st.IsDown() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, a www subject redirecting to its bare form must switch DOWN", st.Status, st.StatusSource)
	}
	if st.StatusBeforeExtraRules != status.Up {
		t.Errorf("StatusBeforeExtraRules = %q, want the pipeline verdict preserved", st.StatusBeforeExtraRules)
	}
}

func TestSubjectSwitchDifferentPathStaysPut(t *testing.T) {
	var port string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Host, "www.") {
			w.Header().Set("Location", "http://site.test:"+port+"/elsewhere")
			w.WriteHeader(http.StatusMovedPermanently)
			return
		}
		fmt.Fprint(w, "bare site")
	}))
	defer server.Close()

	serverURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	port = serverURL.Port()

	req := requester.New(anyResolver{})
	engine := NewEngine(nil, req, nil)
	engine.AddBuiltin(NewSubjectSwitchHandler(req))

	st := newStatus("www.site.test:"+port, status.Up, status.SourceHTTPCode, 200)
	engine.Apply(st)
	if !st.IsUp() || st.StatusSource != status.SourceHTTPCode {
		t.Errorf("status = %s/%s, a redirect to a different path is not a subject switch", st.Status, st.StatusSource)
	}
}

func TestSwitchTarget(t *testing.T) {
	tests := []struct {
		netloc string
		want   string
	}{
		{"www.example.org", "example.org"},
		{"m.example.org:8080", "example.org:8080"},
		{"example.org", ""},
		{"mexample.org", ""},
		{"www.m.example.org", "m.example.org"},
	}

	for _, tt := range tests {
		if got := switchTarget(tt.netloc); got != tt.want {
			t.Errorf("switchTarget(%q) = %q, want %q", tt.netloc, got, tt.want)
		}
	}
}
