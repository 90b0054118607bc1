package geoip

import (
	"errors"
	"testing"
)

func TestOpenBlankPathDisablesLookups(t *testing.T) {
	r, err := Open("  ")
	if err != nil || r != nil {
		t.Fatalf("Open(blank) = %v, %v, want nil, nil", r, err)
	}
	if r.Lookup() != nil {
		t.Fatalf("Lookup() on nil resolver = non-nil, want nil")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() on nil resolver = %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/GeoLite2-Country.mmdb"); err == nil {
		t.Fatalf("Open(missing) error = nil, want error")
	}
}

func TestCountryCodeWithoutDatabase(t *testing.T) {
	var r *Resolver
	tests := []struct {
		ip      string
		wantErr error
	}{
		{ip: "127.0.0.1"},
		{ip: "10.1.2.3"},
		{ip: "192.168.0.7"},
		{ip: "169.254.1.1"},
		{ip: "::1"},
		{ip: "::ffff:10.0.0.1"},
		{ip: "fd00::1"},
		{ip: "0.0.0.0"},
		{ip: "203.0.113.9", wantErr: ErrUnavailable},
		{ip: "2001:db8::1", wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		got, err := r.CountryCode(tt.ip)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CountryCode(%q) err = %v, want %v", tt.ip, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != "" {
			t.Fatalf("CountryCode(%q) = %q, %v, want empty", tt.ip, got, err)
		}
	}
}

func TestCountryCodeRejectsGarbage(t *testing.T) {
	var r *Resolver
	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatalf("CountryCode(garbage) error = nil, want error")
	}
}
