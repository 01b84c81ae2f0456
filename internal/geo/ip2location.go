package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/ip2location/ip2location-go/v9"
)

// IP2LocationDefaultPath is used when no BIN file path is configured.
const IP2LocationDefaultPath = "data/IP2LOCATION-LITE-DB3.BIN"

// IP2Location resolves addresses offline from an IP2Location BIN database.
//
// This site or product includes IP2Location LITE data available from
// <a href="https://lite.ip2location.com">https://lite.ip2location.com</a>.
type IP2Location struct {
	db *ip2location.DB
}

// OpenIP2Location opens the BIN database at path. The caller must Close it.
func OpenIP2Location(path string) (*IP2Location, error) {
	if path == "" {
		path = IP2LocationDefaultPath
	}
	db, err := ip2location.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("open ip2location database %s: %w", path, err)
	}
	return &IP2Location{db: db}, nil
}

// Name identifies the provider in logs and metrics.
func (p *IP2Location) Name() string { return "ip2location" }

// Lookup reads the record for ip from the local database.
func (p *IP2Location) Lookup(ctx context.Context, ip string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if !validIP(ip) {
		return Place{}, fmt.Errorf("%w: invalid ip address %q", ErrProviderFailure, ip)
	}

	rec, err := p.db.Get_all(ip)
	if err != nil {
		return Place{}, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	return Place{
		City:    ip2locationField(rec.City),
		Region:  ip2locationField(rec.Region),
		Country: ip2locationField(rec.Country_long),
	}, nil
}

// Close releases the database file.
func (p *IP2Location) Close() error {
	p.db.Close()
	return nil
}

// ip2locationField maps the library's placeholder values ("-" for unknown
// ranges, explanatory sentences for fields the BIN edition lacks) to "".
func ip2locationField(v string) string {
	v = strings.TrimSpace(v)
	switch {
	case v == "-":
		return ""
	case strings.HasPrefix(v, "This parameter is unavailable"),
		strings.HasPrefix(v, "Invalid"):
		return ""
	default:
		return v
	}
}
