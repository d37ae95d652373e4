// Package clientip resolves the client address used for rate limiting.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the client IP from r.RemoteAddr. Proxy headers are
// deliberately ignored; traffic reaches the app directly.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}
