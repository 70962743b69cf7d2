package dnsquery

import (
	"testing"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

func TestNewDefaults(t *testing.T) {
	q, err := New(nil, -1)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if len(q.Nameservers()) != len(DefaultNameservers) {
		t.Errorf("expected default nameservers, got %v", q.Nameservers())
	}
}

func TestResolveIPLiteral(t *testing.T) {
	q, err := New(nil, 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	// IP literals resolve to themselves without touching the network.
	address, err := q.Resolve("192.0.2.10")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if address != "192.0.2.10" {
		t.Errorf("Resolve = %q, want the literal back", address)
	}
}

func TestResolveEmptyHostname(t *testing.T) {
	q, err := New(nil, 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = q.Resolve("")
	if err == nil {
		t.Fatal("expected an error for an empty hostname")
	}
	if !errors.IsDNSError(err) {
		t.Errorf("expected a DNS error, got %v", err)
	}
}

func TestResolveCache(t *testing.T) {
	q, err := New(nil, 0, WithCache())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	// Seed the cache directly; Resolve must prefer it over the network.
	q.cache["cached.example.org"] = "198.51.100.7"

	address, err := q.Resolve("cached.example.org")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if address != "198.51.100.7" {
		t.Errorf("Resolve = %q, want cached address", address)
	}
}
