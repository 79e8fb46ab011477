package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v82"
)

const (
	// DefaultConfirmAttempts bounds the fixed-interval polling loop. The loop
	// exists to absorb the provider's short propagation delay between the
	// redirect and the payment status settling, not to wait out slow payers.
	DefaultConfirmAttempts = 4

	// DefaultConfirmDelay is the fixed inter-attempt delay.
	DefaultConfirmDelay = 2 * time.Second
)

// Poller repeatedly asks the provider whether a checkout session was paid.
// It is a read-only check and safe to run multiple times for one session.
type Poller struct {
	api      API
	attempts int
	delay    time.Duration
}

// NewPoller builds a poller with the given retry bounds; non-positive values
// fall back to the defaults.
func NewPoller(api API, attempts int, delay time.Duration) *Poller {
	if attempts <= 0 {
		attempts = DefaultConfirmAttempts
	}
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}
	return &Poller{api: api, attempts: attempts, delay: delay}
}

// ConfirmPaid fetches the session by reference until its payment status is
// paid. It returns the paid session on the first paid observation and makes
// no further attempts. Exhausting attempts on an unpaid session yields
// ErrPaymentIncomplete; exhausting attempts on fetch failures yields
// ErrVerificationFailed wrapping the last upstream error.
func (p *Poller) ConfirmPaid(ctx context.Context, sessionRef string) (*stripe.CheckoutSession, error) {
	var lastErr error

	for attempt := 1; attempt <= p.attempts; attempt++ {
		session, err := p.api.GetSession(ctx, sessionRef)
		if err != nil {
			lastErr = err
			log.Warnf("[Payments] session %s fetch attempt %d/%d failed: %v", sessionRef, attempt, p.attempts, err)
		} else if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			return session, nil
		} else {
			lastErr = nil
		}

		if attempt < p.attempts {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, lastErr)
	}
	return nil, ErrPaymentIncomplete
}
