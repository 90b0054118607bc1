// Package geoip maps client addresses to countries for locale detection.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

var ErrUnavailable = errors.New("geoip: no database loaded")

// cacheLimit bounds the memo of recent answers. The memo is dropped
// wholesale when full.
const cacheLimit = 4096

// Resolver answers country lookups from a MaxMind country database. The nil
// *Resolver resolves nothing.
type Resolver struct {
	db *geoip2.Reader

	mu   sync.RWMutex
	memo map[netip.Addr]string
}

// Open loads the database at path. A blank path yields a nil resolver and
// no error, which disables lookups.
func Open(path string) (*Resolver, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open %s: %w", path, err)
	}
	return &Resolver{db: db, memo: make(map[netip.Addr]string)}, nil
}

// CountryCode returns the ISO 3166 code for ip, falling back to the
// registered country. Non-routable addresses answer "" without a lookup.
func (r *Resolver) CountryCode(ip string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("geoip: %w", err)
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return "", nil
	}
	if r == nil || r.db == nil {
		return "", ErrUnavailable
	}

	r.mu.RLock()
	code, ok := r.memo[addr]
	r.mu.RUnlock()
	if ok {
		return code, nil
	}

	rec, err := r.db.Country(net.IP(addr.AsSlice()))
	if err != nil {
		return "", fmt.Errorf("geoip: country of %s: %w", addr, err)
	}
	code = rec.Country.IsoCode
	if code == "" {
		code = rec.RegisteredCountry.IsoCode
	}

	r.mu.Lock()
	if len(r.memo) >= cacheLimit {
		r.memo = make(map[netip.Addr]string)
	}
	r.memo[addr] = code
	r.mu.Unlock()
	return code, nil
}

// Lookup returns CountryCode as a plain function, or nil without a database
// so the middleware skips the lookup.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil || r.db == nil {
		return nil
	}
	return r.CountryCode
}

func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
