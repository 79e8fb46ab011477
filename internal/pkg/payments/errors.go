package payments

import "errors"

var (
	// ErrNoActivePrice means the configured product exists but has no active
	// price; checkout must fail with a server error, never a redirect.
	ErrNoActivePrice = errors.New("no active price found for product")

	// ErrPaymentIncomplete means the session never reached paid status within
	// the polling budget. Client-retriable (402), not a hard failure.
	ErrPaymentIncomplete = errors.New("payment not completed")

	// ErrVerificationFailed means the session could not be fetched at all
	// after exhausting retries.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrSignatureInvalid means an inbound webhook did not authenticate
	// against the signing secret. Nothing downstream may run.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
)
