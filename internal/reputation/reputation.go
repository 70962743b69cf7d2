package reputation

import (
	"bufio"
	"os"
	"strings"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// Checker answers reputation queries against a loaded dataset of
// malicious hosts. A malicious host is considered reachable for
// availability purposes, not safe.
type Checker struct {
	hosts map[string]struct{}
}

// NewFromHosts builds a checker from an in-memory host list. Mostly
// useful for tests and embedded datasets.
func NewFromHosts(hosts []string) *Checker {
	c := &Checker{hosts: make(map[string]struct{}, len(hosts))}
	for _, host := range hosts {
		host = normalize(host)
		if host != "" {
			c.hosts[host] = struct{}{}
		}
	}
	return c
}

// Load reads a reputation dataset from disk. The format is
// line-oriented: one host per line, hosts-file style lines with a
// leading address are accepted, comments and blank lines are skipped.
func Load(filename string) (*Checker, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to open reputation file", filename, err)
	}
	defer file.Close()

	c := &Checker{hosts: make(map[string]struct{})}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		host := fields[0]
		// hosts-file style: "0.0.0.0 evil.example"
		if len(fields) > 1 && (host == "0.0.0.0" || host == "127.0.0.1") {
			host = fields[1]
		}

		host = normalize(host)
		if host != "" {
			c.hosts[host] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to read reputation file", filename, err)
	}

	return c, nil
}

// Len returns the number of hosts in the dataset.
func (c *Checker) Len() int {
	return len(c.hosts)
}

// IsMalicious reports whether the hostname appears in the dataset.
func (c *Checker) IsMalicious(hostname string) bool {
	_, ok := c.hosts[normalize(hostname)]
	return ok
}

func normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
