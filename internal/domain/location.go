package domain

import "context"

// LocationResolver turns a client IP address into a human-readable location
// such as "Lima, Peru". Implementations never fail: when the location cannot
// be determined they return their configured default location.
type LocationResolver interface {
	Resolve(ctx context.Context, ip string) string
}
