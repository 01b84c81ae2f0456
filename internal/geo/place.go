package geo

import (
	"net"
	"strings"
)

// Place holds the location fields a provider extracted for one address.
type Place struct {
	City    string
	Region  string
	Country string
}

// Primary returns the most specific named area: the city, or the region when
// the provider has no city.
func (p Place) Primary() string {
	if city := strings.TrimSpace(p.City); city != "" {
		return city
	}
	return strings.TrimSpace(p.Region)
}

// Format renders the place as "<primary>, <country>". When only one of the two
// is known it is returned alone; when neither is known the result is "".
func (p Place) Format() string {
	return Compose(p.Primary(), p.Country)
}

// Compose joins primary and secondary with ", ", omitting empty components.
func Compose(primary, secondary string) string {
	primary = strings.TrimSpace(primary)
	secondary = strings.TrimSpace(secondary)
	switch {
	case primary == "":
		return secondary
	case secondary == "":
		return primary
	default:
		return primary + ", " + secondary
	}
}

var loopbackLiterals = map[string]struct{}{
	"127.0.0.1":       {},
	"::1":             {},
	"0:0:0:0:0:0:0:1": {},
}

// IsLocal reports whether ip is empty, whitespace or a loopback literal.
// Such addresses carry no real-world location and are never sent to a
// provider.
func IsLocal(ip string) bool {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return true
	}
	_, ok := loopbackLiterals[ip]
	return ok
}

// validIP reports whether ip parses as an IPv4 or IPv6 literal.
func validIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
