package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2/log"

	"github.com/orbitkey/payrelay/internal/pkg/discord"
	"github.com/orbitkey/payrelay/internal/pkg/keygen"
	"github.com/orbitkey/payrelay/internal/pkg/voice"
)

// KeyStore forwards issued keys to the peer site.
type KeyStore interface {
	StoreKey(ctx context.Context, key, tier, sessionRef string) error
}

// RoleGranter resolves a claimed username and assigns the community role.
type RoleGranter interface {
	GrantRole(ctx context.Context, name string) (*discordgo.Member, error)
}

// ChannelNotifier posts embeds to the operational channel.
type ChannelNotifier interface {
	SendChannelEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error
}

// MonitorNotifier posts embeds to the monitoring webhook.
type MonitorNotifier interface {
	Send(ctx context.Context, embed *discordgo.MessageEmbed) error
}

// Dispatcher fans a confirmed payment out into its side effects. Entitlement
// actions (key issuance, role grant) consult the ledger so the webhook push
// and success-page pull paths cannot double-fulfill one session; notification
// actions are best-effort and never fail the caller.
type Dispatcher struct {
	Ledger    Ledger
	Peer      KeyStore
	Roles     RoleGranter
	Channel   ChannelNotifier
	Monitor   MonitorNotifier
	Announcer *voice.Announcer
}

// NewDispatcherFromEnv wires the production dispatcher. The discord client
// may be nil when no bot token is configured; role grants and channel
// notifications are then disabled.
func NewDispatcherFromEnv(client *discord.Client, announcer *voice.Announcer) *Dispatcher {
	d := &Dispatcher{
		Ledger:    NewLedgerFromEnv(),
		Peer:      NewPeerClientFromEnv(),
		Monitor:   discord.NewWebhookNotifierFromEnv(),
		Announcer: announcer,
	}
	if client != nil {
		d.Roles = client
		d.Channel = client
	}
	return d
}

// IssueAccessKey generates a fresh opaque key for a paid session and forwards
// it to the peer store. The second return reports an already-fulfilled
// session (no new key is issued). A peer forwarding failure is logged and the
// key is still returned to the caller; the peer side is reconciled manually.
func (d *Dispatcher) IssueAccessKey(ctx context.Context, sessionRef, tier string) (string, bool, error) {
	if !d.firstClaim(ctx, ScopeAccessKey, sessionRef) {
		return "", true, nil
	}

	key, err := keygen.GenerateAccessKey()
	if err != nil {
		d.releaseClaim(ctx, ScopeAccessKey, sessionRef)
		return "", false, fmt.Errorf("failed to generate access key: %w", err)
	}

	if err := d.Peer.StoreKey(ctx, key, tier, sessionRef); err != nil {
		log.Errorf("[Fulfillment] peer store-key failed for session %s: %v", sessionRef, err)
	}
	return key, false, nil
}

// GrantRole assigns the community role for a paid session. Search and
// assignment failures surface distinctly so the caller gets an actionable
// message; a failed grant releases the claim so the user can retry with a
// corrected name.
func (d *Dispatcher) GrantRole(ctx context.Context, sessionRef, username string) (*discordgo.Member, bool, error) {
	if d.Roles == nil {
		return nil, false, fmt.Errorf("role grants are not configured")
	}
	if !d.firstClaim(ctx, ScopeRoleGrant, sessionRef) {
		return nil, true, nil
	}

	member, err := d.Roles.GrantRole(ctx, username)
	if err != nil {
		d.releaseClaim(ctx, ScopeRoleGrant, sessionRef)
		return nil, false, err
	}
	return member, false, nil
}

// NotifyPayment posts the payment embed to the operational channel and the
// monitoring webhook, once per session. Observability, not business logic:
// every failure is logged and swallowed.
func (d *Dispatcher) NotifyPayment(ctx context.Context, notice discord.PaymentNotice) {
	if !d.firstClaim(ctx, ScopeNotification, notice.SessionRef) {
		log.Infof("[Fulfillment] notification for session %s already sent, skipping", notice.SessionRef)
		return
	}

	embed := discord.PaymentEmbed(notice)
	if d.Channel != nil {
		if err := d.Channel.SendChannelEmbed(ctx, embed); err != nil {
			log.Errorf("[Fulfillment] channel notification failed for session %s: %v", notice.SessionRef, err)
		}
	}
	if d.Monitor != nil {
		if err := d.Monitor.Send(ctx, embed); err != nil {
			log.Errorf("[Fulfillment] monitor notification failed for session %s: %v", notice.SessionRef, err)
		}
	}
}

// NotifyRoleGrant reports a role-grant outcome to the monitoring webhook.
func (d *Dispatcher) NotifyRoleGrant(ctx context.Context, username, memberID string, grantErr error) {
	if d.Monitor == nil {
		return
	}
	if err := d.Monitor.Send(ctx, discord.RoleGrantEmbed(username, memberID, grantErr)); err != nil {
		log.Errorf("[Fulfillment] role-grant notification failed: %v", err)
	}
}

// TriggerAnnouncement queues the voice announcement for a paid session.
// Fire-and-forget: the caller responds to its client before this plays.
func (d *Dispatcher) TriggerAnnouncement(ctx context.Context, notice discord.PaymentNotice) {
	if d.Announcer == nil {
		return
	}
	if !d.firstClaim(ctx, ScopeAnnouncement, notice.SessionRef) {
		return
	}

	name := strings.TrimSpace(notice.PayerName)
	text := ""
	if name != "" {
		text = fmt.Sprintf("%s just paid %s. Thank you!", name, discord.FormatAmount(notice.AmountTotal, notice.Currency))
	}
	d.Announcer.Enqueue(voice.Job{
		PayerName:   name,
		AmountTotal: notice.AmountTotal,
		Text:        text,
	})
}

// firstClaim consults the ledger and fails open: a broken ledger must not
// block fulfillment, it only costs dedupe.
func (d *Dispatcher) firstClaim(ctx context.Context, scope, sessionRef string) bool {
	if d.Ledger == nil || sessionRef == "" {
		return true
	}
	first, err := d.Ledger.FirstClaim(ctx, scope, sessionRef)
	if err != nil {
		log.Warnf("[Fulfillment] ledger check failed for %s:%s, proceeding: %v", scope, sessionRef, err)
		return true
	}
	return first
}

// releaseClaim undoes a recorded claim after the action it guarded failed.
// Best-effort: losing the release only re-exposes the failed session to the
// dedupe window.
func (d *Dispatcher) releaseClaim(ctx context.Context, scope, sessionRef string) {
	if d.Ledger == nil || sessionRef == "" {
		return
	}
	if err := d.Ledger.Release(ctx, scope, sessionRef); err != nil {
		log.Warnf("[Fulfillment] ledger release failed for %s:%s: %v", scope, sessionRef, err)
	}
}
