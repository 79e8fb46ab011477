package payments

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/orbitkey/payrelay/internal/pkg/tiers"
)

// MaxFreeTextLen caps user-supplied request text carried in session metadata.
const MaxFreeTextLen = 60

// CheckoutInput describes one checkout session to open.
type CheckoutInput struct {
	Tier       tiers.Tier
	Endpoint   string // source discriminator stored in session metadata
	RefCode    string // optional referral code
	FreeText   string // optional short request text ("request" flow only)
	SuccessURL string
	CancelURL  string
}

// StartCheckout resolves the tier's product and current price, opens a
// checkout session with the provider and returns the hosted payment page URL.
// The product must be configured and the free text within bounds before any
// provider call is made.
func StartCheckout(ctx context.Context, api API, in CheckoutInput) (string, error) {
	if utf8.RuneCountInString(in.FreeText) > MaxFreeTextLen {
		return "", fmt.Errorf("request text exceeds %d characters", MaxFreeTextLen)
	}

	productID, err := tiers.ProductID(in.Tier)
	if err != nil {
		return "", err
	}

	price, err := api.FirstActivePrice(ctx, productID)
	if err != nil {
		if err == ErrNoActivePrice {
			return "", fmt.Errorf("%w %s", ErrNoActivePrice, productID)
		}
		return "", fmt.Errorf("failed to list prices: %w", err)
	}

	mode := stripe.CheckoutSessionModePayment
	if price.Type == stripe.PriceTypeRecurring {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(mode)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price.ID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.AddMetadata("tier", string(in.Tier))
	params.AddMetadata("endpoint", in.Endpoint)
	if ref := strings.TrimSpace(in.RefCode); ref != "" {
		params.AddMetadata("ref", ref)
	}
	if text := strings.TrimSpace(in.FreeText); text != "" {
		params.AddMetadata("request_text", text)
	}

	session, err := api.CreateSession(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}
	return session.URL, nil
}
