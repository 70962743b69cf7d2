package status

import (
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
)

// Verdict values. An empty verdict means the check is still unresolved;
// a finished check never carries one.
const (
	Up   = "UP"
	Down = "DOWN"
)

// Source tags identify which probe committed the verdict.
const (
	SourceSyntax     = "SYNTAX"
	SourceReputation = "REPUTATION"
	SourceDNSLookup  = "DNSLOOKUP"
	SourceHTTPCode   = "HTTP CODE"
	SourceSTDLookup  = "STDLOOKUP"
	SourceExtraRules = "EXTRA_RULES"
)

// UnknownStatusCode is the sentinel carried when the HTTP probe got no
// usable response. It is treated as absence of signal, not an error.
const UnknownStatusCode = 99999999

// Status is the evolving verdict record for one subject check. It is
// created fresh per check, mutated in place by each probe stage, and
// handed to the caller as the terminal artifact.
type Status struct {
	Subject     string `json:"subject"`
	IDNASubject string `json:"idna_subject"`
	Netloc      string `json:"netloc"`

	Status       string `json:"status"`
	StatusSource string `json:"status_source"`

	HTTPStatusCode    int                    `json:"http_status_code,omitempty"`
	DNSLookupRecord   *dnsquery.LookupRecord `json:"dns_lookup_record,omitempty"`
	WhoisLookupRecord string                 `json:"whois_lookup_record,omitempty"`
	URLSyntax         bool                   `json:"url_syntax"`

	// StatusBeforeExtraRules preserves the pipeline verdict the rule
	// engine started from, for reporting.
	StatusBeforeExtraRules string `json:"status_before_extra_rules,omitempty"`

	// StatusAfterExtraRules flips once the rule engine commits a
	// terminal verdict; no further rule may fire after that.
	StatusAfterExtraRules bool `json:"status_after_extra_rules"`

	// StatusPostSyntaxChecker remembers a syntax-only verdict. Such a
	// verdict is non-terminal: stronger evidence may overwrite it.
	StatusPostSyntaxChecker string `json:"-"`

	CheckedAt time.Time `json:"checked_at"`

	// Duration of the whole check in seconds.
	Duration float64 `json:"duration"`
}

// Resolved reports whether a verdict has been committed.
func (s *Status) Resolved() bool {
	return s.Status != ""
}

// IsUp reports whether the subject was classified reachable.
func (s *Status) IsUp() bool {
	return s.Status == Up
}

// IsDown reports whether the subject was classified unreachable.
func (s *Status) IsDown() bool {
	return s.Status == Down
}

// Set commits a verdict with its source tag.
func (s *Status) Set(verdict, source string) {
	s.Status = verdict
	s.StatusSource = source
}

// Reset discards the current verdict, returning the record to the
// unresolved state. The DNS probe uses this to discard a would-be "up"
// signal.
func (s *Status) Reset() {
	s.Status = ""
	s.StatusSource = ""
}
