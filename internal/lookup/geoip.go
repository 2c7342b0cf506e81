package lookup

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// Geolocator maps an address to a country.
type Geolocator interface {
	// Country returns the display form "Germany (DE)" and the lowercase
	// ISO code. ok is false when the address is unknown.
	Country(ip string) (name, iso string, ok bool)
}

// GeoIP resolves countries from a MaxMind GeoLite2-Country database.
type GeoIP struct {
	db *geoip2.Reader
}

// OpenGeoIP opens the mmdb file at path.
func OpenGeoIP(path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database: %w", err)
	}
	return &GeoIP{db: db}, nil
}

func (g *GeoIP) Close() error { return g.db.Close() }

func (g *GeoIP) Country(ip string) (string, string, bool) {
	if isLocal(ip) {
		return "", "", false
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", "", false
	}
	rec, err := g.db.Country(addr)
	if err != nil || rec.Country.IsoCode == "" {
		return "", "", false
	}
	return FormatCountry(rec.Country.Names["en"], rec.Country.IsoCode)
}

// FormatCountry builds the connect message form of a country.
func FormatCountry(name, iso string) (string, string, bool) {
	if iso == "" {
		return "", "", false
	}
	return fmt.Sprintf("%s (%s)", name, iso), strings.ToLower(iso), true
}

// isLocal reports bot and loopback addresses, which are never looked up.
func isLocal(ip string) bool {
	return ip == "" || ip == "0.0.0.0" || ip == "127.0.0.1"
}

// NoGeo is used when no database is configured.
type NoGeo struct{}

func (NoGeo) Country(string) (string, string, bool) { return "", "", false }
