package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const clientIPKey contextKey = "client_ip"

// ClientIdentifier extracts the client IP used as the rate limit
// identifier and stores it on the request context.
func ClientIdentifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, getClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getClientIP walks the forwarded-IP header chain: first x-forwarded-for
// hop, then x-real-ip, then the transport peer address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		addr = addr[:idx]
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

// GetClientIP retrieves the client IP from context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok {
		return ip
	}
	return "unknown"
}
