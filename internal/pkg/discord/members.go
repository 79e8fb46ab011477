package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// MatchesMember reports whether a guild member matches the claimed name by
// exact case-insensitive comparison against username, display name or
// nickname.
func MatchesMember(m *discordgo.Member, name string) bool {
	if m == nil || m.User == nil {
		return false
	}
	return strings.EqualFold(m.User.Username, name) ||
		(m.User.GlobalName != "" && strings.EqualFold(m.User.GlobalName, name)) ||
		(m.Nick != "" && strings.EqualFold(m.Nick, name))
}

// UniqueMatch resolves a claimed name against a member list. Zero matches
// yield ErrUserNotFound, more than one distinct member yields
// ErrAmbiguousUser.
func UniqueMatch(members []*discordgo.Member, name string) (*discordgo.Member, error) {
	var found *discordgo.Member
	for _, m := range members {
		if !MatchesMember(m, name) {
			continue
		}
		if found != nil && found.User.ID != m.User.ID {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousUser, name)
		}
		found = m
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", ErrUserNotFound, name)
	}
	return found, nil
}

// FindMember pages through the guild member list looking for a unique
// case-insensitive match.
func (c *Client) FindMember(ctx context.Context, name string) (*discordgo.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUserNotFound)
	}

	var all []*discordgo.Member
	after := ""
	for {
		page, err := c.Session.GuildMembers(c.GuildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("%w: %v (is the bot in the server?)", ErrMemberSearch, err)
		}
		all = append(all, page...)
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	return UniqueMatch(all, name)
}

// GrantRole locates the member by claimed name and assigns the configured
// role. Role assignment at the provider is naturally idempotent; granting an
// already-held role succeeds.
func (c *Client) GrantRole(ctx context.Context, name string) (*discordgo.Member, error) {
	member, err := c.FindMember(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := c.Session.GuildMemberRoleAdd(c.GuildID, member.User.ID, c.RoleID, discordgo.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoleAssign, err)
	}
	return member, nil
}
