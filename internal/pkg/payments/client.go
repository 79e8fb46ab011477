package payments

import (
	"context"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/price"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// API is the slice of the Stripe surface this service talks to. The payment
// provider is the authoritative source of payment truth; nothing is cached
// locally.
type API interface {
	// FirstActivePrice returns the first active price for a product, or
	// ErrNoActivePrice when the product has none.
	FirstActivePrice(ctx context.Context, productID string) (*stripe.Price, error)
	// CreateSession opens a new checkout session.
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	// GetSession fetches a checkout session by its opaque reference.
	GetSession(ctx context.Context, sessionRef string) (*stripe.CheckoutSession, error)
}

// Client implements API against the live Stripe backend using the official
// SDK bindings.
type Client struct{}

// NewClientFromEnv configures the global Stripe key and returns a live client.
func NewClientFromEnv() *Client {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &Client{}
}

func (c *Client) FirstActivePrice(ctx context.Context, productID string) (*stripe.Price, error) {
	params := &stripe.PriceListParams{
		Product: stripe.String(productID),
		Active:  stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := price.List(params)
	for iter.Next() {
		return iter.Price(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoActivePrice
}

func (c *Client) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return checkoutsession.New(params)
}

func (c *Client) GetSession(ctx context.Context, sessionRef string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return checkoutsession.Get(sessionRef, params)
}
