package checker

import (
	"time"

	"github.com/ResistanceIsUseless/StatusHawk/internal/dnsquery"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/requester"
	"github.com/ResistanceIsUseless/StatusHawk/internal/rules"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
	"github.com/ResistanceIsUseless/StatusHawk/internal/subject"
)

// DNSProber is the lookup capability the DNS probe depends on.
type DNSProber interface {
	Lookup(hostname string) ([]string, error)
	LastLookupRecord() *dnsquery.LookupRecord
}

// ReputationProber answers whether a host appears in a reputation
// dataset.
type ReputationProber interface {
	IsMalicious(hostname string) bool
}

// Flags enables or disables individual probe stages. The probe order
// itself is fixed: syntax, reputation, DNS, HTTP code, fallback,
// extra rules. Disabling a stage skips it; it never reorders.
type Flags struct {
	UseReputation      bool
	UseHTTPCode        bool
	UseExtraRules      bool
	DoSyntaxCheckFirst bool
}

// Config assembles the collaborators of one checker instance.
type Config struct {
	Flags     Flags
	Requester *requester.Requester
	DNS       DNSProber

	// Reputation may be nil; the reputation probe is then skipped even
	// when enabled.
	Reputation ReputationProber

	// Rules may be nil; the extra-rules stage is then skipped.
	Rules *rules.Engine

	UpCodes            []int
	PotentiallyUpCodes []int

	Logger *logging.Logger
}

// Checker resolves one subject at a time into a terminal verdict. It
// is synchronous and not safe for concurrent use; run one checker per
// worker.
type Checker struct {
	flags      Flags
	req        *requester.Requester
	dns        DNSProber
	reputation ReputationProber
	engine     *rules.Engine

	upCodes            map[int]bool
	potentiallyUpCodes map[int]bool

	logger *logging.Logger
}

// New creates a checker from its collaborators.
func New(cfg Config) *Checker {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	return &Checker{
		flags:              cfg.Flags,
		req:                cfg.Requester,
		dns:                cfg.DNS,
		reputation:         cfg.Reputation,
		engine:             cfg.Rules,
		upCodes:            codeSet(cfg.UpCodes),
		potentiallyUpCodes: codeSet(cfg.PotentiallyUpCodes),
		logger:             logger,
	}
}

func codeSet(codes []int) map[int]bool {
	set := make(map[int]bool, len(codes))
	for _, code := range codes {
		set[code] = true
	}
	return set
}

// Check runs the full probe pipeline for one subject and returns the
// terminal verdict. The result always carries a status; an unresolved
// record never leaves this method.
func (c *Checker) Check(raw string) *status.Status {
	start := time.Now()

	st := &status.Status{
		Subject:   raw,
		CheckedAt: start,
	}

	sub, err := subject.Derive(raw)
	if err != nil {
		// Underivable input is handled by the syntax stage below; keep
		// the raw string as both forms so reporting stays meaningful.
		st.IDNASubject = raw
		st.Netloc = raw
	} else {
		st.IDNASubject = sub.IDNA
		st.Netloc = sub.Netloc
		st.URLSyntax = sub.IsURL()
	}

	c.runSyntaxProbe(st, sub)
	c.runReputationProbe(st, sub)
	c.runDNSProbe(st, sub)
	c.runHTTPCodeProbe(st, sub)

	// The pipeline never returns an unresolved verdict.
	if !st.Resolved() {
		st.Set(status.Down, status.SourceSTDLookup)
	}

	if c.flags.UseExtraRules && c.engine != nil {
		c.engine.Apply(st)
	}

	st.Duration = time.Since(start).Seconds()
	c.logger.StatusResolved(st.Subject, st.Status, st.StatusSource, st.Duration)

	return st
}

// shouldContinue decides whether later probes still run. A verdict
// committed by the syntax stage alone is non-terminal: stronger
// evidence may overwrite it.
func (c *Checker) shouldContinue(st *status.Status) bool {
	if !st.Resolved() {
		return true
	}
	return st.StatusSource == status.SourceSyntax &&
		st.Status == st.StatusPostSyntaxChecker
}

// runSyntaxProbe classifies the subject's syntax. A subject that fits
// no known shape is provisionally down; the marker allows later
// probes to overwrite this with real network evidence.
func (c *Checker) runSyntaxProbe(st *status.Status, sub *subject.Subject) {
	if !c.flags.DoSyntaxCheckFirst || st.Resolved() {
		return
	}

	if sub == nil || !sub.Valid() {
		st.Set(status.Down, status.SourceSyntax)
		st.StatusPostSyntaxChecker = st.Status
		c.logger.ProbeResult(st.Subject, "syntax", st.Status)
	}
}

// runReputationProbe marks listed hosts up. A malicious host is by
// definition reachable; reputation says nothing about safety here.
func (c *Checker) runReputationProbe(st *status.Status, sub *subject.Subject) {
	if !c.flags.UseReputation || c.reputation == nil || sub == nil {
		return
	}
	if !c.shouldContinue(st) {
		return
	}

	if c.reputation.IsMalicious(sub.Hostname) {
		st.Set(status.Up, status.SourceReputation)
		st.StatusPostSyntaxChecker = ""
		c.logger.ProbeResult(st.Subject, "reputation", st.Status)
	}
}

// runDNSProbe treats DNS strictly as a down-only switch for URL
// subjects. A failed lookup forces down, overriding anything set so
// far; a successful lookup is discarded because DNS presence alone is
// not evidence of a working URL.
func (c *Checker) runDNSProbe(st *status.Status, sub *subject.Subject) {
	if sub == nil || !sub.IsURL() || c.dns == nil {
		return
	}
	if !c.shouldContinue(st) {
		return
	}

	addresses, err := c.dns.Lookup(sub.Hostname)
	st.DNSLookupRecord = c.dns.LastLookupRecord()

	if err != nil || len(addresses) == 0 {
		st.Set(status.Down, status.SourceDNSLookup)
		st.StatusPostSyntaxChecker = ""
		c.logger.ProbeResult(st.Subject, "dns", st.Status)
		return
	}

	// Resolution succeeded: no signal. If only the syntax marker was
	// set, clear it so the HTTP probe starts from a clean slate.
	if st.StatusSource == status.SourceSyntax {
		st.Reset()
		st.StatusPostSyntaxChecker = ""
	}
}

// runHTTPCodeProbe issues a GET and classifies the status code against
// the configured up and potentially-up sets. The unknown sentinel is
// absence of signal, not an error.
func (c *Checker) runHTTPCodeProbe(st *status.Status, sub *subject.Subject) {
	if !c.flags.UseHTTPCode || c.req == nil || sub == nil {
		return
	}
	if !c.shouldContinue(st) {
		return
	}

	st.HTTPStatusCode = c.httpStatusCode(sub)
	if st.HTTPStatusCode == status.UnknownStatusCode {
		return
	}

	if c.upCodes[st.HTTPStatusCode] || c.potentiallyUpCodes[st.HTTPStatusCode] {
		st.Set(status.Up, status.SourceHTTPCode)
		st.StatusPostSyntaxChecker = ""
		c.logger.ProbeResult(st.Subject, "http_code", st.Status)
	}
}

func (c *Checker) httpStatusCode(sub *subject.Subject) int {
	resp, err := c.req.Get(sub.RequestURL())
	if err != nil {
		return status.UnknownStatusCode
	}
	resp.Body.Close()
	return resp.StatusCode
}
