// Package geo resolves client IP addresses to human-readable locations.
//
// A Resolver wraps one Provider (ipapi.co, ip-api.com or a local IP2Location
// BIN file) and owns the outward contract: Resolve always returns a string.
// Empty and loopback addresses short-circuit without contacting the
// provider, and every lookup failure degrades to the configured default
// location. Failures are still distinguishable to operators through
// structured logs and the lookup outcome metric.
package geo
