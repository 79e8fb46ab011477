package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/orbitkey/payrelay/internal/pkg/tiers"
)

// CompletedCheckout is the trusted payload extracted from a signed
// checkout.session.completed event. It only exists transiently to drive
// fulfillment side effects and is never stored.
type CompletedCheckout struct {
	SessionRef    string
	Tier          string
	Endpoint      string
	RefCode       string
	RequestText   string
	AmountTotal   int64 // smallest currency unit
	Currency      string
	PaymentMethod string
	PayerName     string
}

// VerifyWebhookEvent authenticates raw webhook bytes against the signing
// secret. The payload must be the exact unmodified request body; any
// verification failure maps to ErrSignatureInvalid and nothing downstream
// may run.
func VerifyWebhookEvent(payload []byte, signatureHeader, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

// ExtractCompletedCheckout pulls fulfillment data out of a verified event.
// It returns false for every event type other than checkout session
// completion; those are acknowledged and ignored by the caller.
func ExtractCompletedCheckout(event stripe.Event) (*CompletedCheckout, bool, error) {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, false, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, true, fmt.Errorf("failed to decode completed session payload: %w", err)
	}

	return CompletedFromSession(&session), true, nil
}

// CompletedFromSession builds the fulfillment payload from a session,
// whether it arrived inside a webhook event or was fetched on the
// success-page pull path, so both confirmation paths feed the dispatcher
// identically. The tier metadata is normalized because it round-trips
// through the provider dashboard, where it is editable.
func CompletedFromSession(session *stripe.CheckoutSession) *CompletedCheckout {
	out := &CompletedCheckout{
		SessionRef:  session.ID,
		Tier:        string(tiers.Normalize(session.Metadata["tier"])),
		Endpoint:    session.Metadata["endpoint"],
		RefCode:     session.Metadata["ref"],
		RequestText: session.Metadata["request_text"],
		AmountTotal: session.AmountTotal,
		Currency:    strings.ToUpper(string(session.Currency)),
	}
	if len(session.PaymentMethodTypes) > 0 {
		out.PaymentMethod = session.PaymentMethodTypes[0]
	}
	if session.CustomerDetails != nil {
		out.PayerName = session.CustomerDetails.Name
	}
	return out
}
