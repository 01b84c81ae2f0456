package domain

import "context"

// Database is the lifecycle of the user store: schema migration at startup
// and release of connections at shutdown.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
