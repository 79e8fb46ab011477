package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/orbitkey/payrelay/app/controllers"
	"github.com/orbitkey/payrelay/internal/pkg/tiers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Instant checkout redirects, one route per tier.
	app.Get("/basic", controllers.HandleInstantCheckout(tiers.TierBasic))
	app.Get("/premium", controllers.HandleInstantCheckout(tiers.TierPremium))
	app.Get("/customaccess", controllers.HandleInstantCheckout(tiers.TierCustomAccess))
	app.Get("/test", controllers.HandleInstantCheckout(tiers.TierTest))
	app.Get("/request", controllers.HandleRequestCheckout)

	// Post-payment landing page; fulfillment runs through its /api calls.
	app.Get("/success", func(c *fiber.Ctx) error {
		return c.SendFile("./public/success.html")
	})

	// Provider webhook: raw body, signature-gated.
	app.Post("/webhook", controllers.HandleStripeWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
