package botcheck

import (
	"net/http"
	"strings"
)

// botUserAgents are substrings indicating an automated client.
var botUserAgents = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python",
	"go-http",
}

// requiredHeaders are sent by every mainstream browser; their absence is a
// strong automation signal.
var requiredHeaders = []string{
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
}

// HoneypotTripped reports whether the hidden form field was filled in.
// Legitimate clients leave it empty or absent.
func HoneypotTripped(value string) bool {
	return strings.TrimSpace(value) != ""
}

// DetectBot classifies a request as automated based on its user agent and
// the presence of standard browser headers.
func DetectBot(userAgent string, headers http.Header) bool {
	ua := strings.ToLower(userAgent)
	for _, pattern := range botUserAgents {
		if strings.Contains(ua, pattern) {
			return true
		}
	}

	for _, h := range requiredHeaders {
		if headers.Get(h) == "" {
			return true
		}
	}

	return false
}
