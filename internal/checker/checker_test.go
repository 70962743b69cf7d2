package checker

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/rules"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

type literalResolver struct{}

func (literalResolver) Resolve(hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	return "", errors.NewDNSError(errors.ErrorDNSResolutionFailed, "resolution failed", hostname, nil)
}

// fakeDNS answers lookups from a fixed table; absent hostnames fail.
// IP literals always resolve to themselves.
type fakeDNS struct {
	table map[string][]string
}

func (f *fakeDNS) Lookup(hostname string) ([]string, error) {
	if net.ParseIP(hostname) != nil {
		return []string{hostname}, nil
	}
	if addresses, ok := f.table[hostname]; ok {
		return addresses, nil
	}
	return nil, errors.NewDNSError(errors.ErrorDNSResolutionFailed, "resolution failed", hostname, nil)
}

func (f *fakeDNS) LastLookupRecord() *dnsquery.LookupRecord {
	return &dnsquery.LookupRecord{QueryType: "A"}
}

type fakeReputation struct {
	malicious map[string]bool
}

func (f *fakeReputation) IsMalicious(hostname string) bool {
	return f.malicious[hostname]
}

var defaultUpCodes = []int{200, 201, 204}
var defaultPotentiallyUpCodes = []int{301, 403, 503}

func newChecker(t *testing.T, mutate func(*Config)) *Checker {
	t.Helper()
	cfg := Config{
		Flags: Flags{
			UseHTTPCode:        true,
			UseExtraRules:      false,
			DoSyntaxCheckFirst: true,
		},
		Requester:          requester.New(literalResolver{}),
		DNS:                &fakeDNS{},
		UpCodes:            defaultUpCodes,
		PotentiallyUpCodes: defaultPotentiallyUpCodes,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestDNSDownSwitch(t *testing.T) {
	// DNS failure for a URL subject forces DOWN regardless of what the
	// HTTP probe would have produced.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newChecker(t, func(cfg *Config) {
		cfg.DNS = &fakeDNS{table: map[string][]string{}}
	})

	st := c.Check("http://gone.example/")
	if !st.IsDown() || st.StatusSource != status.SourceDNSLookup {
		t.Errorf("status = %s/%s, want DOWN/DNSLOOKUP", st.Status, st.StatusSource)
	}
	if st.DNSLookupRecord == nil {
		t.Error("the DNS lookup record should be kept for reporting")
	}
}

func TestDNSSuccessIsDiscarded(t *testing.T) {
	// A successful DNS lookup is no evidence of a working URL. With the
	// HTTP probe disabled the verdict falls through to STDLOOKUP.
	c := newChecker(t, func(cfg *Config) {
		cfg.Flags.UseHTTPCode = false
		cfg.DNS = &fakeDNS{table: map[string][]string{"alive.example": {"192.0.2.1"}}}
	})

	st := c.Check("http://alive.example/")
	if !st.IsDown() || st.StatusSource != status.SourceSTDLookup {
		t.Errorf("status = %s/%s, want DOWN/STDLOOKUP", st.Status, st.StatusSource)
	}
}

func TestReputationTakesPriority(t *testing.T) {
	c := newChecker(t, func(cfg *Config) {
		cfg.Flags.UseReputation = true
		cfg.Reputation = &fakeReputation{malicious: map[string]bool{"evil.example": true}}
	})

	st := c.Check("evil.example")
	if !st.IsUp() || st.StatusSource != status.SourceReputation {
		t.Errorf("status = %s/%s, want UP/REPUTATION", st.Status, st.StatusSource)
	}
	// The HTTP probe must not have run; a committed reputation verdict
	// short-circuits the rest of the pipeline.
	if st.HTTPStatusCode != 0 {
		t.Errorf("HTTPStatusCode = %d, the HTTP probe should have been skipped", st.HTTPStatusCode)
	}
}

func TestFallbackTotality(t *testing.T) {
	c := newChecker(t, func(cfg *Config) {
		cfg.Flags = Flags{}
	})

	st := c.Check("example.org")
	if !st.IsDown() || st.StatusSource != status.SourceSTDLookup {
		t.Errorf("status = %s/%s, want DOWN/STDLOOKUP with every probe disabled", st.Status, st.StatusSource)
	}
}

func TestHTTPCodeProbeUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	}))
	defer server.Close()

	c := newChecker(t, nil)

	st := c.Check(server.URL)
	if !st.IsUp() || st.StatusSource != status.SourceHTTPCode {
		t.Errorf("status = %s/%s, want UP/HTTP CODE", st.Status, st.StatusSource)
	}
	if st.HTTPStatusCode != http.StatusOK {
		t.Errorf("HTTPStatusCode = %d, want 200", st.HTTPStatusCode)
	}
	if !st.URLSyntax {
		t.Error("a URL subject should carry URLSyntax")
	}
}

func TestHTTPCodeOutsideSetsFallsThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newChecker(t, nil)

	st := c.Check(server.URL)
	if !st.IsDown() || st.StatusSource != status.SourceSTDLookup {
		t.Errorf("status = %s/%s, want DOWN/STDLOOKUP for an unclassified code", st.Status, st.StatusSource)
	}
	if st.HTTPStatusCode != http.StatusNotFound {
		t.Errorf("HTTPStatusCode = %d, want the observed 404 kept for the rule engine", st.HTTPStatusCode)
	}
}

func TestPotentiallyUpCodeIsUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := newChecker(t, nil)

	st := c.Check(server.URL)
	if !st.IsUp() || st.StatusSource != status.SourceHTTPCode {
		t.Errorf("status = %s/%s, want UP/HTTP CODE for a potentially-up code", st.Status, st.StatusSource)
	}
}

func TestInvalidSyntaxVerdict(t *testing.T) {
	c := newChecker(t, func(cfg *Config) {
		cfg.Flags.UseHTTPCode = false
	})

	st := c.Check("definitely not a subject")
	if !st.IsDown() || st.StatusSource != status.SourceSyntax {
		t.Errorf("status = %s/%s, want DOWN/SYNTAX", st.Status, st.StatusSource)
	}
}

func TestExtraRulesRunLast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rule, err := rules.ParseRule(rules.RawRule{
		SubjectPattern:     ".*",
		ValidationType:     "status_code",
		StateTransition:    "up",
		RequiredStatusCode: []int{404},
	})
	if err != nil {
		t.Fatalf("ParseRule failed: %v", err)
	}

	req := requester.New(literalResolver{})
	c := newChecker(t, func(cfg *Config) {
		cfg.Flags.UseExtraRules = true
		cfg.Requester = req
		cfg.Rules = rules.NewEngine([]*rules.Rule{rule}, req, nil)
	})

	st := c.Check(server.URL)
	if !st.IsUp() || st.StatusSource != status.SourceExtraRules {
		t.Errorf("status = %s/%s, want the rule to override the 404 fallback", st.Status, st.StatusSource)
	}
	if st.StatusBeforeExtraRules != status.Down {
		t.Errorf("StatusBeforeExtraRules = %q, want the DOWN the pipeline resolved", st.StatusBeforeExtraRules)
	}
}

func TestCheckAlwaysResolves(t *testing.T) {
	subjects := []string{
		"example.org",
		"http://unreachable.example/",
		"192.0.2.55",
		"%%%garbage%%%",
	}

	c := newChecker(t, func(cfg *Config) {
		cfg.DNS = &fakeDNS{table: map[string][]string{}}
	})

	for _, subject := range subjects {
		st := c.Check(subject)
		if !st.Resolved() {
			t.Errorf("Check(%q) left the verdict unresolved", subject)
		}
	}
}
