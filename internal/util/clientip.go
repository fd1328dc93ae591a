package util

import (
	"net/http"
	"strings"
)

var ipHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_CLIENT_IP",
	"HTTP_X_FORWARDED_FOR",
}

// ClientIP resolves the calling client's address, preferring proxy headers
// over the socket peer. Forwarded chains keep only the first hop.
func ClientIP(r *http.Request) string {
	ip := ""
	for _, h := range ipHeaders {
		v := r.Header.Get(h)
		if v != "" && !strings.EqualFold(v, "unknown") {
			ip = v
			break
		}
	}
	if ip == "" {
		ip = r.RemoteAddr
		if i := strings.LastIndex(ip, ":"); i > 0 && !strings.HasSuffix(ip, "]") {
			ip = ip[:i]
		}
	}
	if i := strings.Index(ip, ","); i >= 0 {
		ip = strings.TrimSpace(ip[:i])
	}
	if ip == "" {
		return "unknown"
	}
	return ip
}
