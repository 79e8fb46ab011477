package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/orbitkey/payrelay/internal/pkg/discord"
	"github.com/orbitkey/payrelay/internal/pkg/goroutine"
	"github.com/orbitkey/payrelay/internal/pkg/payments"
)

type claimRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type grantRoleRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Username  string `json:"username" validate:"required,max=100"`
}

type notifyRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Name      string `json:"name" validate:"omitempty,max=60"`
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(out); err != nil {
		return err
	}
	return nil
}

// confirmPaid runs the polling confirmation with a request-scoped deadline.
func confirmPaid(poller *payments.Poller, sessionRef string) (*payments.CompletedCheckout, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := poller.ConfirmPaid(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	return payments.CompletedFromSession(session), nil
}

// paymentFailure translates a confirmation error into the response the client
// acts on: 402 for not-yet-paid, 500 for a verification breakdown.
func paymentFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, payments.ErrPaymentIncomplete) {
		return jsonError(c, fiber.StatusPaymentRequired, "payment not completed")
	}
	return jsonError(c, fiber.StatusInternalServerError, err.Error())
}

// HandleClaim verifies payment and issues a fresh access key, forwarding it
// to the peer site. A session that already claimed its key gets an
// already-claimed response instead of a second key.
func HandleClaim(c *fiber.Ctx) error {
	var req claimRequest
	if err := parseBody(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	completed, err := confirmPaid(deps.Poller, req.SessionID)
	if err != nil {
		return paymentFailure(c, err)
	}

	key, already, err := deps.Dispatcher.IssueAccessKey(c.Context(), completed.SessionRef, completed.Tier)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	if already {
		return c.JSON(fiber.Map{"ok": true, "already_claimed": true})
	}
	return c.JSON(fiber.Map{"ok": true, "key": key})
}

// HandleVerify is the bare payment check used by success pages that fulfill
// nothing themselves.
func HandleVerify(c *fiber.Ctx) error {
	var req claimRequest
	if err := parseBody(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	if _, err := confirmPaid(deps.FastPoller, req.SessionID); err != nil {
		return paymentFailure(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "paid": true})
}

// HandleGrantRole verifies payment and grants the community role to the
// claimed member. Search and assignment failures return distinct, actionable
// messages.
func HandleGrantRole(c *fiber.Ctx) error {
	var req grantRoleRequest
	if err := parseBody(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	completed, err := confirmPaid(deps.Poller, req.SessionID)
	if err != nil {
		return paymentFailure(c, err)
	}

	member, already, err := deps.Dispatcher.GrantRole(c.Context(), completed.SessionRef, req.Username)
	if err != nil {
		goroutine.SafeGo("role-grant-notify", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			deps.Dispatcher.NotifyRoleGrant(ctx, req.Username, "", err)
		})
		switch {
		case errors.Is(err, discord.ErrUserNotFound), errors.Is(err, discord.ErrAmbiguousUser):
			return jsonError(c, fiber.StatusNotFound, err.Error())
		default:
			return jsonError(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	if already {
		return c.JSON(fiber.Map{"ok": true, "already_granted": true})
	}

	memberID := member.User.ID
	goroutine.SafeGo("role-grant-notify", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		deps.Dispatcher.NotifyRoleGrant(ctx, req.Username, memberID, nil)
	})
	return c.JSON(fiber.Map{"ok": true, "member_id": memberID})
}

// HandleNotify verifies payment, then posts notifications and queues the
// voice announcement in the background. The response is sent before either
// side effect runs; their failures are logged, never surfaced.
func HandleNotify(c *fiber.Ctx) error {
	var req notifyRequest
	if err := parseBody(c, &req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}

	completed, err := confirmPaid(deps.FastPoller, req.SessionID)
	if err != nil {
		return paymentFailure(c, err)
	}

	notice := discord.PaymentNotice{
		SessionRef:    completed.SessionRef,
		Tier:          completed.Tier,
		Endpoint:      completed.Endpoint,
		AmountTotal:   completed.AmountTotal,
		Currency:      completed.Currency,
		PaymentMethod: completed.PaymentMethod,
		PayerName:     completed.PayerName,
		RequestText:   completed.RequestText,
	}
	if req.Name != "" {
		notice.PayerName = req.Name
	}

	dispatcher := deps.Dispatcher
	goroutine.SafeGo("payment-notify", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		dispatcher.NotifyPayment(ctx, notice)
		dispatcher.TriggerAnnouncement(ctx, notice)
	})

	return c.JSON(fiber.Map{"ok": true})
}
