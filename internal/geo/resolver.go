package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultLocation is returned when no location can be determined.
const DefaultLocation = "Unknown location"

// DefaultTimeout bounds a single provider lookup.
const DefaultTimeout = 3 * time.Second

// Provider looks up the place of a single, non-local IP address.
// Errors should wrap one of the package's failure kinds; anything else is
// treated as ErrUnexpected.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (Place, error)
}

// Resolver implements domain.LocationResolver on top of a Provider.
// It is safe for concurrent use; it holds no mutable state.
type Resolver struct {
	provider        Provider
	defaultLocation string
	timeout         time.Duration
	logger          *slog.Logger
	metrics         *Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDefaultLocation overrides DefaultLocation. Empty values are ignored.
func WithDefaultLocation(location string) Option {
	return func(r *Resolver) {
		if location != "" {
			r.defaultLocation = location
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for lookup outcomes. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records every lookup in m. A nil m disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a Resolver backed by p.
func NewResolver(p Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider:        p,
		defaultLocation: DefaultLocation,
		timeout:         DefaultTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultLocation returns the location reported when resolution fails.
func (r *Resolver) DefaultLocation() string {
	return r.defaultLocation
}

// Resolve returns the location of ip, or the default location if it cannot
// be determined. It never blocks longer than the configured timeout.
func (r *Resolver) Resolve(ctx context.Context, ip string) string {
	start := time.Now()
	location, err := r.Lookup(ctx, ip)
	outcome := Outcome(err)
	r.metrics.observe(r.provider.Name(), outcome, time.Since(start))

	if err != nil {
		r.logFailure(ctx, ip, outcome, err)
		return r.defaultLocation
	}

	r.logger.InfoContext(ctx, "location resolved",
		"provider", r.provider.Name(), "ip", ip, "location", location)
	return location
}

// Lookup is Resolve without the fallback: it reports why resolution failed.
func (r *Resolver) Lookup(ctx context.Context, ip string) (location string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			location, err = "", fmt.Errorf("%w: panic: %v", ErrUnexpected, rec)
		}
	}()

	if IsLocal(ip) {
		return "", ErrEmptyOrLoopback
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	place, err := r.provider.Lookup(ctx, strings.TrimSpace(ip))
	if err != nil {
		if Outcome(err) == OutcomeUnexpected && !errors.Is(err, ErrUnexpected) {
			err = fmt.Errorf("%w: %w", ErrUnexpected, err)
		}
		return "", err
	}

	location = place.Format()
	if location == "" {
		return "", ErrEmptyResult
	}
	return location, nil
}

func (r *Resolver) logFailure(ctx context.Context, ip, outcome string, err error) {
	attrs := []any{"provider", r.provider.Name(), "ip", ip, "kind", outcome, "error", err}
	switch outcome {
	case OutcomeSkipped:
		r.logger.DebugContext(ctx, "skipping geolocation for local address", "ip", ip)
	case OutcomeProvider, OutcomeEmptyResult:
		r.logger.WarnContext(ctx, "geolocation unavailable", attrs...)
	default:
		r.logger.ErrorContext(ctx, "geolocation lookup failed", attrs...)
	}
}
