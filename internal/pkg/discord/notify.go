package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// PaymentNotice summarizes one confirmed payment for operational channels.
type PaymentNotice struct {
	SessionRef    string
	Tier          string
	Endpoint      string
	AmountTotal   int64 // smallest currency unit
	Currency      string
	PaymentMethod string
	PayerName     string
	RequestText   string
}

// FormatAmount renders a minor-unit amount as "12.34 EUR".
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "???"
	}
	return fmt.Sprintf("%.2f %s", float64(amount)/100, strings.ToUpper(currency))
}

// PaymentEmbed builds the rich notification for a confirmed payment.
func PaymentEmbed(n PaymentNotice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Payment received",
		Color: 0x57F287,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Tier", Value: orDash(n.Tier), Inline: true},
			{Name: "Amount", Value: FormatAmount(n.AmountTotal, n.Currency), Inline: true},
			{Name: "Method", Value: orDash(n.PaymentMethod), Inline: true},
			{Name: "Endpoint", Value: orDash(n.Endpoint), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: n.SessionRef},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if n.PayerName != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Name", Value: n.PayerName, Inline: true})
	}
	if n.RequestText != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Request", Value: n.RequestText})
	}
	return embed
}

// RoleGrantEmbed builds the notification for a role-grant outcome.
func RoleGrantEmbed(username, memberID string, grantErr error) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Role grant",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Username", Value: orDash(username), Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if grantErr != nil {
		embed.Color = 0xED4245
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Outcome", Value: grantErr.Error()})
	} else {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Outcome", Value: "granted", Inline: true},
			&discordgo.MessageEmbedField{Name: "Member", Value: memberID, Inline: true},
		)
	}
	return embed
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// SendChannelEmbed posts an embed to the operational channel with the bot
// token. Best-effort: callers log and swallow the error.
func (c *Client) SendChannelEmbed(ctx context.Context, embed *discordgo.MessageEmbed) error {
	if c.NotifyChannelID == "" {
		return nil
	}
	_, err := c.Session.ChannelMessageSendEmbed(c.NotifyChannelID, embed, discordgo.WithContext(ctx))
	return err
}

// WebhookNotifier delivers embeds to a monitoring webhook URL, independent of
// the bot session.
type WebhookNotifier struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookNotifierFromEnv reads MONITOR_WEBHOOK_URL; an empty URL disables
// delivery.
func NewWebhookNotifierFromEnv() *WebhookNotifier {
	return &WebhookNotifier{
		URL: strings.TrimSpace(env.GetEnv("MONITOR_WEBHOOK_URL", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send posts the embed as a webhook message.
func (w *WebhookNotifier) Send(ctx context.Context, embed *discordgo.MessageEmbed) error {
	if w.URL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"embeds": []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("monitor webhook delivery failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
