package dnsquery

import (
	"net"
	"sync"

	"github.com/miekg/dns"
	"github.com/projectdiscovery/retryabledns"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// Resolver is the capability the transport and the probes depend on.
// Implementations must resolve through their own configured nameservers,
// never through the OS default.
type Resolver interface {
	// Resolve returns one usable address for the hostname or an error
	// when the hostname does not resolve.
	Resolve(hostname string) (string, error)
}

const (
	// maxCNAMEDepth bounds CNAME chasing before the address lookup.
	maxCNAMEDepth = 60

	defaultRetries = 3
)

// DefaultNameservers are used when the configuration supplies none.
var DefaultNameservers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// LookupRecord describes the last performed lookup, kept for reporting.
type LookupRecord struct {
	Subject     string   `json:"subject"`
	QueryType   string   `json:"query_type"`
	Nameservers []string `json:"nameservers"`
	Records     []string `json:"records"`
	Status      string   `json:"status,omitempty"`
}

// QueryTool performs DNS lookups through a fixed set of nameservers with
// bounded retries. It optionally caches resolved addresses for the
// lifetime of the process.
type QueryTool struct {
	client      *retryabledns.Client
	nameservers []string

	useCache bool
	cache    map[string]string
	cacheMu  sync.RWMutex

	recordMu   sync.Mutex
	lastRecord *LookupRecord
}

// Option configures a QueryTool.
type Option func(*QueryTool)

// WithCache enables the in-process resolution cache.
func WithCache() Option {
	return func(q *QueryTool) {
		q.useCache = true
	}
}

// New creates a QueryTool bound to the given nameservers. Empty input
// falls back to DefaultNameservers; retries below zero fall back to the
// standard retry count.
func New(nameservers []string, retries int, opts ...Option) (*QueryTool, error) {
	if len(nameservers) == 0 {
		nameservers = DefaultNameservers
	}
	if retries < 0 {
		retries = defaultRetries
	}

	client, err := retryabledns.New(nameservers, retries)
	if err != nil {
		return nil, errors.NewDNSError(errors.ErrorDNSQueryFailed, "failed to initialize resolver", "", err)
	}

	q := &QueryTool{
		client:      client,
		nameservers: nameservers,
		cache:       make(map[string]string),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q, nil
}

// Nameservers returns the nameservers this tool queries.
func (q *QueryTool) Nameservers() []string {
	return q.nameservers
}

// LastLookupRecord returns the record of the most recent lookup, or nil
// when no lookup happened yet.
func (q *QueryTool) LastLookupRecord() *LookupRecord {
	q.recordMu.Lock()
	defer q.recordMu.Unlock()
	return q.lastRecord
}

func (q *QueryTool) saveRecord(record *LookupRecord) {
	q.recordMu.Lock()
	q.lastRecord = record
	q.recordMu.Unlock()
}

// Query performs a lookup of the given record type and returns the
// matching records.
func (q *QueryTool) Query(hostname string, queryType uint16) ([]string, error) {
	data, err := q.client.Query(hostname, queryType)
	if err != nil {
		return nil, errors.NewDNSError(errors.ErrorDNSQueryFailed, "query failed", hostname, err)
	}

	var records []string
	switch queryType {
	case dns.TypeA:
		records = data.A
	case dns.TypeAAAA:
		records = data.AAAA
	case dns.TypeCNAME:
		records = data.CNAME
	case dns.TypeNS:
		records = data.NS
	case dns.TypeTXT:
		records = data.TXT
	case dns.TypeMX:
		records = data.MX
	}

	q.saveRecord(&LookupRecord{
		Subject:     hostname,
		QueryType:   dns.TypeToString[queryType],
		Nameservers: q.nameservers,
		Records:     records,
		Status:      data.StatusCode,
	})

	return records, nil
}

// Lookup resolves the hostname to its addresses. CNAMEs are chased to
// the end of the chain before the address lookup, so a record behind a
// CNAME farm still resolves the way a browser would see it.
func (q *QueryTool) Lookup(hostname string) ([]string, error) {
	if net.ParseIP(hostname) != nil {
		return []string{hostname}, nil
	}

	target := hostname
	if last := q.lastCNAME(hostname); last != "" {
		target = last
	}

	addresses, err := q.Query(target, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		if addresses, err = q.Query(target, dns.TypeAAAA); err != nil {
			return nil, err
		}
	}

	return addresses, nil
}

// Resolve returns a single usable address for the hostname. It is the
// Resolver implementation handed to the transport.
func (q *QueryTool) Resolve(hostname string) (string, error) {
	if hostname == "" {
		return "", errors.NewDNSError(errors.ErrorDNSNoUsableAddress, "empty hostname", hostname, nil)
	}

	if q.useCache {
		q.cacheMu.RLock()
		cached, ok := q.cache[hostname]
		q.cacheMu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	addresses, err := q.Lookup(hostname)
	if err != nil {
		return "", err
	}
	if len(addresses) == 0 {
		return "", errors.NewDNSError(errors.ErrorDNSNoUsableAddress, "no usable address", hostname, nil)
	}

	address := addresses[0]

	if q.useCache {
		q.cacheMu.Lock()
		q.cache[hostname] = address
		q.cacheMu.Unlock()
	}

	return address, nil
}

// lastCNAME follows the CNAME chain and returns the final target, or an
// empty string when the hostname has no CNAME.
func (q *QueryTool) lastCNAME(hostname string) string {
	var chain []string
	current := hostname

	for depth := 0; depth < maxCNAMEDepth; depth++ {
		records, err := q.Query(current, dns.TypeCNAME)
		if err != nil || len(records) == 0 {
			break
		}

		if contains(chain, records[0]) {
			break // loop in the chain
		}

		chain = append(chain, records...)
		current = records[0]
	}

	if len(chain) == 0 {
		return ""
	}
	return chain[len(chain)-1]
}

func contains(haystack []string, needle string) bool {
	for _, candidate := range haystack {
		if candidate == needle {
			return true
		}
	}
	return false
}
