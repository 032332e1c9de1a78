package gerr

import "errors"

var (
	ErrAlreadyOnWaitlist = errors.New("email already on waitlist")

	ErrNoProvidersConfigured = errors.New("no providers configured")
	ErrAllProvidersFailed    = errors.New("all providers failed")
)
