package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/orbitkey/payrelay/internal/pkg/payments"
	"github.com/orbitkey/payrelay/internal/pkg/tiers"
)

// HandleInstantCheckout returns the handler for a tier's instant checkout
// route: resolve the current price, open a session, redirect to the hosted
// payment page.
func HandleInstantCheckout(tier tiers.Tier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return startCheckout(c, tier, "")
	}
}

// HandleRequestCheckout serves the "request" flow, which carries short
// user-supplied text in the session metadata.
func HandleRequestCheckout(c *fiber.Ctx) error {
	text := strings.TrimSpace(c.Query("text"))
	if utf8.RuneCountInString(text) > payments.MaxFreeTextLen {
		return c.Status(fiber.StatusBadRequest).
			SendString(fmt.Sprintf("Request text must be at most %d characters.", payments.MaxFreeTextLen))
	}
	return startCheckout(c, tiers.TierRequest, text)
}

func startCheckout(c *fiber.Ctx, tier tiers.Tier, freeText string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	domain := publicDomain()
	url, err := payments.StartCheckout(ctx, deps.API, payments.CheckoutInput{
		Tier:       tier,
		Endpoint:   c.Path(),
		RefCode:    c.Query("ref"),
		FreeText:   freeText,
		SuccessURL: fmt.Sprintf("%s/success?tier=%s&session_id={CHECKOUT_SESSION_ID}", domain, tier),
		CancelURL:  domain + "/",
	})
	if err != nil {
		log.Errorf("[Checkout] %s failed: %v", c.Path(), err)
		if errors.Is(err, payments.ErrNoActivePrice) {
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		}
		// Configuration and upstream errors both surface their detail; the
		// operator reads this, not the payer.
		return c.Status(fiber.StatusInternalServerError).
			SendString("Failed to create checkout session: " + err.Error())
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}
