package proxyroute

import "strings"

// Pair holds the proxy endpoints to apply to a request. A zero Pair
// means "no proxy". Endpoints may be http://, https:// or socks4/5://
// URLs; the transport decides how to dial them.
type Pair struct {
	HTTP  string `yaml:"http" json:"http,omitempty"`
	HTTPS string `yaml:"https" json:"https,omitempty"`
}

// IsZero reports whether no proxy endpoint is configured.
func (p Pair) IsZero() bool {
	return p.HTTP == "" && p.HTTPS == ""
}

// normalized fills the missing scheme from the other one, mirroring
// how HTTP_PROXY/HTTPS_PROXY environment pairs behave.
func (p Pair) normalized() Pair {
	result := p
	if result.HTTP == "" {
		result.HTTP = result.HTTPS
	}
	if result.HTTPS == "" {
		result.HTTPS = result.HTTP
	}
	return result
}

// ForScheme returns the proxy endpoint for the given URL scheme.
func (p Pair) ForScheme(scheme string) string {
	if scheme == "https" {
		return p.HTTPS
	}
	return p.HTTP
}

// Rule maps a set of TLDs to a proxy pair.
type Rule struct {
	HTTP  string   `yaml:"http" json:"http,omitempty"`
	HTTPS string   `yaml:"https" json:"https,omitempty"`
	TLDs  []string `yaml:"tld" json:"tld"`
}

// Pattern is the full routing table: ordered TLD rules with an optional
// global fallback.
type Pattern struct {
	Global *Pair  `yaml:"global" json:"global,omitempty"`
	Rules  []Rule `yaml:"rules" json:"rules,omitempty"`
}

// Router resolves which proxy to use for a hostname based on its TLD.
type Router struct {
	pattern Pattern
}

// NewRouter creates a router over the given pattern.
func NewRouter(pattern Pattern) *Router {
	return &Router{pattern: pattern}
}

// Pattern returns the routing table the router was built with.
func (r *Router) Pattern() Pattern {
	return r.pattern
}

// ExtractTLD provides the TLD of the given hostname. Hostnames without
// a dot have no TLD; a trailing dot (absolute name) is ignored.
func ExtractTLD(hostname string) string {
	if hostname == "" || !strings.Contains(hostname, ".") {
		return ""
	}

	trimmed := strings.TrimSuffix(hostname, ".")
	lastDot := strings.LastIndex(trimmed, ".")
	if lastDot < 0 {
		return ""
	}

	return trimmed[lastDot+1:]
}

// Route returns the proxy pair for the hostname. The first rule whose
// TLD set contains the hostname's TLD wins; otherwise the global pair
// applies; otherwise the zero Pair. An unmatched TLD is a normal,
// silent outcome, never an error.
func (r *Router) Route(hostname string) Pair {
	tld := ExtractTLD(hostname)

	if tld != "" {
		for _, rule := range r.pattern.Rules {
			pair := Pair{HTTP: rule.HTTP, HTTPS: rule.HTTPS}
			if pair.IsZero() {
				continue
			}
			for _, candidate := range rule.TLDs {
				if candidate == tld {
					return pair.normalized()
				}
			}
		}
	}

	if r.pattern.Global != nil && !r.pattern.Global.IsZero() {
		return r.pattern.Global.normalized()
	}

	return Pair{}
}
