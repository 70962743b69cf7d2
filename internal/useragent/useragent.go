package useragent

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// defaultAgents is the built-in rotation used when no dataset file is
// configured.
var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Pool hands out user agents in rotation so long batch runs do not
// present a single fingerprint.
type Pool struct {
	mu     sync.Mutex
	agents []string
	next   int
}

// NewPool builds a pool from the given agents, falling back to the
// built-in rotation when the list is empty.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	return &Pool{agents: agents}
}

// Load reads a user agent dataset from disk, one agent per line.
// Comments and blank lines are skipped.
func Load(filename string) (*Pool, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to open user agents file", filename, err)
	}
	defer file.Close()

	var agents []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		agents = append(agents, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to read user agents file", filename, err)
	}

	return NewPool(agents), nil
}

// Latest returns the next agent in rotation.
func (p *Pool) Latest() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	agent := p.agents[p.next]
	p.next = (p.next + 1) % len(p.agents)
	return agent
}

// Len returns the number of agents in the pool.
func (p *Pool) Len() int {
	return len(p.agents)
}
