package subject

import "testing"

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantHost string
		wantLoc  string
	}{
		{
			name:     "plain domain",
			input:    "example.org",
			wantKind: KindDomain,
			wantHost: "example.org",
			wantLoc:  "example.org",
		},
		{
			name:     "subdomain",
			input:    "api.v2.example.org",
			wantKind: KindDomain,
			wantHost: "api.v2.example.org",
			wantLoc:  "api.v2.example.org",
		},
		{
			name:     "internationalized domain",
			input:    "bücher.example",
			wantKind: KindDomain,
			wantHost: "xn--bcher-kva.example",
			wantLoc:  "xn--bcher-kva.example",
		},
		{
			name:     "ipv4 address",
			input:    "192.0.2.10",
			wantKind: KindIP,
			wantHost: "192.0.2.10",
			wantLoc:  "192.0.2.10",
		},
		{
			name:     "ipv6 address",
			input:    "2001:db8::1",
			wantKind: KindIP,
			wantHost: "2001:db8::1",
			wantLoc:  "2001:db8::1",
		},
		{
			name:     "http url",
			input:    "http://example.org/path",
			wantKind: KindURL,
			wantHost: "example.org",
			wantLoc:  "example.org",
		},
		{
			name:     "https url with port",
			input:    "https://example.org:8443/path",
			wantKind: KindURL,
			wantHost: "example.org",
			wantLoc:  "example.org:8443",
		},
		{
			name:     "garbage input",
			input:    "not a subject at all",
			wantKind: KindUnknown,
		},
		{
			name:     "single label is not a domain",
			input:    "localhost",
			wantKind: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Derive(tt.input)
			if err != nil {
				t.Fatalf("Derive(%q) returned error: %v", tt.input, err)
			}
			if s.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", s.Kind, tt.wantKind)
			}
			if tt.wantHost != "" && s.Hostname != tt.wantHost {
				t.Errorf("Hostname = %q, want %q", s.Hostname, tt.wantHost)
			}
			if tt.wantLoc != "" && s.Netloc != tt.wantLoc {
				t.Errorf("Netloc = %q, want %q", s.Netloc, tt.wantLoc)
			}
		})
	}
}

func TestDeriveEmpty(t *testing.T) {
	if _, err := Derive("   "); err == nil {
		t.Fatal("expected an error for a blank subject")
	}
}

func TestRequestURL(t *testing.T) {
	urlSubject, _ := Derive("https://example.org:8443/status")
	if got := urlSubject.RequestURL(); got != "https://example.org:8443/status" {
		t.Errorf("RequestURL() = %q, want the original URL", got)
	}

	domainSubject, _ := Derive("example.org")
	if got := domainSubject.RequestURL(); got != "http://example.org" {
		t.Errorf("RequestURL() = %q, want %q", got, "http://example.org")
	}
}

func TestHostnameFromURL(t *testing.T) {
	if got := HostnameFromURL("https://example.org:8443/x"); got != "example.org" {
		t.Errorf("HostnameFromURL = %q, want example.org", got)
	}
	if got := HostnameFromURL("example.org"); got != "example.org" {
		t.Errorf("HostnameFromURL fallback = %q, want example.org", got)
	}
}
