package subject

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// Kind represents the syntactic classification of a subject
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindDomain  Kind = "domain"
	KindIP      Kind = "ip"
	KindURL     Kind = "url"
)

// domainPattern matches a plausible DNS name: dot-separated labels, each
// up to 63 characters, with an alphabetic TLD of at least 2 characters.
var domainPattern = regexp.MustCompile(
	`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}\.?$`,
)

// Subject holds an input string and its derived forms. A Subject is
// immutable once derived for a given check.
type Subject struct {
	// Raw is the subject exactly as supplied by the caller.
	Raw string

	// IDNA is the internationalized (punycode) form of the subject.
	IDNA string

	// Hostname is the bare host, without port or URL decoration.
	Hostname string

	// Netloc is the network-location portion (host plus optional port).
	Netloc string

	// Kind is the syntax classification of the subject.
	Kind Kind
}

// IsURL reports whether the subject is syntactically a URL.
func (s *Subject) IsURL() bool {
	return s.Kind == KindURL
}

// IsIP reports whether the subject is syntactically an IP address.
func (s *Subject) IsIP() bool {
	return s.Kind == KindIP
}

// IsDomain reports whether the subject is syntactically a domain.
func (s *Subject) IsDomain() bool {
	return s.Kind == KindDomain
}

// Valid reports whether the subject has a recognized syntax.
func (s *Subject) Valid() bool {
	return s.Kind != KindUnknown
}

// RequestURL provides a viable URL to probe the subject over HTTP.
// URL subjects are requested as-is, everything else defaults to plain HTTP.
func (s *Subject) RequestURL() string {
	if s.Kind == KindURL {
		return s.IDNA
	}
	return "http://" + s.Netloc
}

// Derive classifies the given input and computes its derived forms.
// An empty input is rejected; an input with unrecognized syntax still
// yields a Subject with KindUnknown so the caller can record the verdict.
func Derive(raw string) (*Subject, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.NewSubjectError(errors.ErrorSubjectEmpty, "subject is empty", raw, nil)
	}

	s := &Subject{
		Raw:  trimmed,
		Kind: KindUnknown,
	}

	switch {
	case looksLikeURL(trimmed):
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Hostname() == "" {
			break
		}
		s.Kind = KindURL
		s.Hostname = toIDNA(parsed.Hostname())
		s.Netloc = s.Hostname
		if port := parsed.Port(); port != "" {
			s.Netloc = net.JoinHostPort(s.Hostname, port)
		}
		s.IDNA = rebuildURL(parsed, s.Netloc)

	case net.ParseIP(trimmed) != nil:
		s.Kind = KindIP
		s.Hostname = trimmed
		s.Netloc = trimmed
		s.IDNA = trimmed

	default:
		idnaForm := toIDNA(trimmed)
		if domainPattern.MatchString(idnaForm) {
			s.Kind = KindDomain
		}
		s.Hostname = idnaForm
		s.Netloc = idnaForm
		s.IDNA = idnaForm
	}

	if s.IDNA == "" {
		s.IDNA = trimmed
		s.Hostname = trimmed
		s.Netloc = trimmed
	}

	return s, nil
}

// HostnameFromURL extracts the hostname of a URL, falling back to the
// input itself when it does not parse as a URL.
func HostnameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

// Netloc extracts the network-location portion of a URL or bare host.
func Netloc(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// toIDNA converts a hostname to its punycode form. Conversion failures
// keep the original spelling, matching lookup behavior: an unconvertible
// name will simply fail resolution later.
func toIDNA(hostname string) string {
	converted, err := idna.Lookup.ToASCII(hostname)
	if err != nil || converted == "" {
		return hostname
	}
	return converted
}

func rebuildURL(parsed *url.URL, netloc string) string {
	rebuilt := *parsed
	rebuilt.Host = netloc
	return rebuilt.String()
}
