// Package clientip derives the originating client address of an HTTP request
// from proxy forwarding headers.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

const headerForwardedFor = "X-Forwarded-For"

// Headers lists the forwarding headers consulted by Extract, highest
// precedence first.
var Headers = []string{
	headerForwardedFor,
	"X-Real-IP",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
}

// Extract returns the client address carried by the first qualifying header
// in Headers order. A header qualifies when it is present, not blank and not
// the literal "unknown" (any case). When X-Forwarded-For wins and lists a
// proxy chain, only the originating (leftmost) entry is returned. If no header
// qualifies, fallback is returned unchanged.
//
// The result is not validated as an IP literal.
func Extract(headers http.Header, fallback string) string {
	for _, name := range Headers {
		value := headers.Get(name)
		trimmed := strings.TrimSpace(value)
		if trimmed == "" || strings.EqualFold(trimmed, "unknown") {
			continue
		}
		if name == headerForwardedFor {
			if first, _, found := strings.Cut(value, ","); found {
				return strings.TrimSpace(first)
			}
		}
		return value
	}
	return fallback
}

// FromRequest extracts the client address of r, falling back to the host part
// of r.RemoteAddr.
func FromRequest(r *http.Request) string {
	return Extract(r.Header, RemoteHost(r))
}

// RemoteHost returns r.RemoteAddr without its port.
func RemoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
