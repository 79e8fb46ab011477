package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/orbitkey/payrelay/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Success pages on the checkout domain call these cross-origin.
	api := app.Group("/api", cors.New())

	api.Post("/claim", controllers.HandleClaim)
	api.Post("/verify", controllers.HandleVerify)
	api.Post("/grant-role", controllers.HandleGrantRole)
	api.Post("/notify", controllers.HandleNotify)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
