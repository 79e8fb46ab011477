package controllers

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/orbitkey/payrelay/internal/pkg/discord"
	"github.com/orbitkey/payrelay/internal/pkg/env"
	"github.com/orbitkey/payrelay/internal/pkg/fulfillment"
	"github.com/orbitkey/payrelay/internal/pkg/payments"
	"github.com/orbitkey/payrelay/internal/pkg/voice"
)

// Deps holds the services the route handlers dispatch into. Wired once at
// startup; tests swap in fakes through Setup.
type Deps struct {
	API        payments.API
	Poller     *payments.Poller // claim/grant-role call sites
	FastPoller *payments.Poller // verify/notify call sites
	Dispatcher *fulfillment.Dispatcher
}

var deps Deps

var validate = validator.New()

// Setup injects the controller dependencies.
func Setup(d Deps) {
	deps = d
}

// SetupFromEnv wires the production dependency graph: Stripe client, the two
// pollers, the Discord bot (optional), the voice announcer and the
// fulfillment dispatcher.
func SetupFromEnv() {
	api := payments.NewClientFromEnv()

	var client *discord.Client
	var announcer *voice.Announcer
	if c, err := discord.NewClientFromEnv(); err != nil {
		log.Warnf("[Setup] discord bot disabled: %v", err)
	} else {
		client = c
		if err := client.Connect(); err != nil {
			log.Warnf("[Setup] discord gateway connection failed, voice announcements disabled: %v", err)
		} else {
			announcer = voice.NewAnnouncerFromEnv(client)
			announcer.Start()
		}
	}

	Setup(Deps{
		API:        api,
		Poller:     payments.NewPoller(api, payments.DefaultConfirmAttempts, 2*time.Second),
		FastPoller: payments.NewPoller(api, payments.DefaultConfirmAttempts, 1500*time.Millisecond),
		Dispatcher: fulfillment.NewDispatcherFromEnv(client, announcer),
	})
}

// publicDomain is this service's own origin, used to build redirect targets.
func publicDomain() string {
	return strings.TrimRight(env.GetEnv("DOMAIN", "http://localhost:4000"), "/")
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
