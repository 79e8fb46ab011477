package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/orbitkey/payrelay/app/controllers"
	"github.com/orbitkey/payrelay/internal/pkg/cache"
	"github.com/orbitkey/payrelay/internal/pkg/env"
	"github.com/orbitkey/payrelay/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "0.0.0.0"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	cache.SetupCache()
	controllers.SetupFromEnv()

	app := fiber.New()
	app.Use(recover.New(), logger.New())
	app.Static("/", "./public")

	// ROUTER
	router.InstallRouter(app)

	return app
}
