package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/orbitkey/payrelay/internal/pkg/discord"
	"github.com/orbitkey/payrelay/internal/pkg/env"
	"github.com/orbitkey/payrelay/internal/pkg/goroutine"
	"github.com/orbitkey/payrelay/internal/pkg/payments"
)

// HandleStripeWebhook authenticates inbound provider events against the
// signing secret and reacts to completed checkout sessions with the
// notification action. Entitlement issuance stays on the success-page pull
// path; webhook delivery failures therefore never block it.
func HandleStripeWebhook(c *fiber.Ctx) error {
	// The signature covers the exact request bytes; copy before fiber reuses
	// the buffer.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	event, err := payments.VerifyWebhookEvent(rawBody, signature, secret)
	if err != nil {
		log.Warnf("[Webhook] rejected event: %v", err)
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature")
	}

	// Signature passed, so the event is acknowledged from here on; a payload
	// this service cannot decode is not the provider's problem.
	completed, relevant, err := payments.ExtractCompletedCheckout(event)
	if err != nil {
		log.Errorf("[Webhook] malformed completed-session payload: %v", err)
		return c.JSON(fiber.Map{"received": true})
	}
	if !relevant {
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}

	// Acknowledge regardless of notification outcome; provider retries are
	// not relied upon for the notification's correctness.
	dispatcher := deps.Dispatcher
	goroutine.SafeGo("webhook-notify", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		dispatcher.NotifyPayment(ctx, discord.PaymentNotice{
			SessionRef:    completed.SessionRef,
			Tier:          completed.Tier,
			Endpoint:      completed.Endpoint,
			AmountTotal:   completed.AmountTotal,
			Currency:      completed.Currency,
			PaymentMethod: completed.PaymentMethod,
			PayerName:     completed.PayerName,
			RequestText:   completed.RequestText,
		})
	})

	return c.JSON(fiber.Map{"received": true})
}
