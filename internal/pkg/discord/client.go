package discord

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/orbitkey/payrelay/internal/pkg/env"
)

// Client wraps the bot session plus the guild/role/channel identifiers this
// service operates on. The underlying session is process-lifetime and shared
// across requests.
type Client struct {
	Session         *discordgo.Session
	GuildID         string
	RoleID          string
	NotifyChannelID string
	VoiceChannelID  string
}

// NewClientFromEnv builds the bot client from configuration. The gateway
// connection is opened lazily by Connect so HTTP-only deployments can skip it.
func NewClientFromEnv() (*Client, error) {
	token := strings.TrimSpace(env.GetEnv("DISCORD_BOT_TOKEN", ""))
	if token == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not set")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	return &Client{
		Session:         session,
		GuildID:         strings.TrimSpace(env.GetEnv("DISCORD_GUILD_ID", "")),
		RoleID:          strings.TrimSpace(env.GetEnv("DISCORD_ROLE_ID", "")),
		NotifyChannelID: strings.TrimSpace(env.GetEnv("DISCORD_NOTIFY_CHANNEL_ID", "")),
		VoiceChannelID:  strings.TrimSpace(env.GetEnv("DISCORD_VOICE_CHANNEL_ID", "")),
	}, nil
}

// Connect opens the gateway connection. Voice operations require it; plain
// REST calls (member search, role grant, channel messages) do not.
func (c *Client) Connect() error {
	c.Session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildVoiceStates
	return c.Session.Open()
}

// Close tears down the gateway connection.
func (c *Client) Close() error {
	return c.Session.Close()
}
