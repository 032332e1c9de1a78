package validate

import (
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
)

const (
	minEmailLen     = 5
	maxEmailLen     = 254
	maxFieldLen     = 100
	maxMetadataSize = 1000
)

// Submission is the inbound waitlist payload. Website is the honeypot
// field; legitimate clients leave it empty or absent.
type Submission struct {
	Email         string `json:"email"`
	Source        string `json:"source,omitempty"`
	Referrer      string `json:"referrer,omitempty"`
	UTMSource     string `json:"utm_source,omitempty"`
	UTMMedium     string `json:"utm_medium,omitempty"`
	UTMCampaign   string `json:"utm_campaign,omitempty"`
	UTMTerm       string `json:"utm_term,omitempty"`
	UTMContent    string `json:"utm_content,omitempty"`
	ABTestVariant string `json:"ab_test_variant,omitempty"`
	Metadata      string `json:"metadata,omitempty"`
	Website       string `json:"website,omitempty"`
}

// Structure validates the payload shape and normalizes the email in place
// (trimmed, lowercased). It returns the first violated constraint.
func (s *Submission) Structure() error {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))

	if s.Email == "" {
		return fmt.Errorf("email is required")
	}
	if len(s.Email) < minEmailLen || len(s.Email) > maxEmailLen {
		return fmt.Errorf("email must be between %d and %d characters", minEmailLen, maxEmailLen)
	}
	if !govalidator.IsEmail(s.Email) {
		return fmt.Errorf("email is not a valid address")
	}

	fields := map[string]string{
		"source":          s.Source,
		"referrer":        s.Referrer,
		"utm_source":      s.UTMSource,
		"utm_medium":      s.UTMMedium,
		"utm_campaign":    s.UTMCampaign,
		"utm_term":        s.UTMTerm,
		"utm_content":     s.UTMContent,
		"ab_test_variant": s.ABTestVariant,
	}
	for _, name := range []string{"source", "referrer", "utm_source", "utm_medium",
		"utm_campaign", "utm_term", "utm_content", "ab_test_variant"} {
		if len(fields[name]) > maxFieldLen {
			return fmt.Errorf("%s must be at most %d characters", name, maxFieldLen)
		}
	}
	if len(s.Metadata) > maxMetadataSize {
		return fmt.Errorf("metadata must be at most %d bytes", maxMetadataSize)
	}

	return nil
}

// EmailResult is the outcome of the advanced email checks. Suggestions are
// advisory only: they accompany a rejection or are surfaced alongside an
// acceptance for UX, but never block one.
type EmailResult struct {
	Valid       bool
	Reason      string
	Suggestions []string
}

// EmailAdvanced re-validates syntax, rejects disposable domains and
// computes up to three "did you mean" suggestions for likely domain typos.
func EmailAdvanced(email string) EmailResult {
	if !govalidator.IsEmail(email) {
		return EmailResult{Valid: false, Reason: "email is not a valid address"}
	}

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	if _, ok := disposableDomains[domain]; ok {
		return EmailResult{
			Valid:       false,
			Reason:      "disposable email addresses are not accepted",
			Suggestions: suggestDomains(local, domain),
		}
	}

	return EmailResult{Valid: true, Suggestions: suggestDomains(local, domain)}
}

// disposableDomains is a fixed denylist of throwaway email providers.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"mailinator.com":    {},
	"tempmail.com":      {},
	"temp-mail.org":     {},
	"throwaway.email":   {},
	"yopmail.com":       {},
	"trashmail.com":     {},
	"getnada.com":       {},
	"sharklasers.com":   {},
	"dispostable.com":   {},
	"maildrop.cc":       {},
}
