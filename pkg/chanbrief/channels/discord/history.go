package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/hferr/chanbrief/pkg/chanbrief/digest"
)

// pageFetcher returns one newest-first page of messages posted before
// beforeID (empty = latest).
type pageFetcher func(beforeID string, limit int) ([]*discordgo.Message, error)

// FetchHistory pulls messages newer than since from one channel,
// paginating backward until a page crosses since or the pages run out.
// Results are returned in chronological order.
func (d *Discord) FetchHistory(ctx context.Context, channelID string, since time.Time) ([]digest.Message, error) {
	if d.session == nil {
		return nil, fmt.Errorf("discord: not connected")
	}
	fetch := func(beforeID string, limit int) ([]*discordgo.Message, error) {
		return d.session.ChannelMessages(channelID, limit,
			beforeID, "", "", discordgo.WithContext(ctx))
	}
	return collectHistory(fetch, channelID, since, d.cfg.PageLimit)
}

// collectHistory walks backward through newest-first pages of size
// pageLimit, keeping messages at or after since.
func collectHistory(fetch pageFetcher, channelID string, since time.Time, pageLimit int) ([]digest.Message, error) {
	var collected []digest.Message
	beforeID := ""

	for {
		page, err := fetch(beforeID, pageLimit)
		if err != nil {
			return nil, fmt.Errorf("discord: fetching history: %w", err)
		}
		if len(page) == 0 {
			break
		}

		// Pages are newest-first.
		crossed := false
		for _, m := range page {
			if m.Timestamp.Before(since) {
				crossed = true
				break
			}
			text := extractMessageText(m)
			if text == "" || m.Author == nil {
				continue
			}
			collected = append(collected, digest.Message{
				ChannelID:  channelID,
				AuthorID:   m.Author.ID,
				AuthorName: m.Author.Username,
				Text:       text,
				Timestamp:  m.Timestamp,
			})
		}
		if crossed || len(page) < pageLimit {
			break
		}
		beforeID = page[len(page)-1].ID
	}

	// Reverse newest-first into chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected, nil
}

// ResolveChannels returns the collection set: the explicitly configured
// channel IDs, or the guild's text channels filtered by prefix, skip
// list, and read permissions.
func (d *Discord) ResolveChannels(ctx context.Context) ([]digest.ChannelRef, error) {
	if d.session == nil {
		return nil, fmt.Errorf("discord: not connected")
	}

	if len(d.cfg.ChannelIDs) > 0 {
		refs := make([]digest.ChannelRef, 0, len(d.cfg.ChannelIDs))
		for _, id := range d.cfg.ChannelIDs {
			refs = append(refs, digest.ChannelRef{ID: id, Name: d.channelName(ctx, id)})
		}
		return refs, nil
	}

	if d.cfg.GuildID == "" {
		return nil, fmt.Errorf("discord: either channel IDs or a guild ID is required")
	}

	channels, err := d.session.GuildChannels(d.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord: listing guild channels: %w", err)
	}

	var refs []digest.ChannelRef
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if !channelEligible(ch.Name, d.cfg.ChannelPrefix, d.cfg.SkipSubstrings) {
			continue
		}
		if !d.canReadHistory(ch.ID) {
			d.logger.Debug("skipping channel without read permissions", "channel", ch.Name)
			continue
		}
		refs = append(refs, digest.ChannelRef{ID: ch.ID, Name: ch.Name})
	}

	d.logger.Info("resolved channels", "count", len(refs))
	return refs, nil
}

// channelEligible applies the name prefix and skip-substring filters.
func channelEligible(name, prefix string, skip []string) bool {
	lowered := strings.ToLower(name)
	if prefix != "" && !strings.HasPrefix(lowered, strings.ToLower(prefix)) {
		return false
	}
	for _, s := range skip {
		if s != "" && strings.Contains(lowered, strings.ToLower(s)) {
			return false
		}
	}
	return true
}

// canReadHistory checks the bot's own permissions in a channel. Errors
// resolve to true so a permission lookup hiccup does not silently drop
// a channel; the fetch itself reports the real failure.
func (d *Discord) canReadHistory(channelID string) bool {
	perms, err := d.session.State.UserChannelPermissions(d.session.State.User.ID, channelID)
	if err != nil {
		return true
	}
	need := int64(discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory)
	return perms&need == need
}

// channelName resolves a channel's display name, falling back to the ID.
func (d *Discord) channelName(ctx context.Context, channelID string) string {
	if ch, err := d.session.State.Channel(channelID); err == nil {
		return ch.Name
	}
	if ch, err := d.session.Channel(channelID, discordgo.WithContext(ctx)); err == nil {
		return ch.Name
	}
	return channelID
}

// extractMessageText returns the message content, or for embed-only
// messages the concatenated embed title, description, and field texts.
func extractMessageText(m *discordgo.Message) string {
	if len(m.Embeds) == 0 {
		return m.Content
	}
	var parts []string
	for _, embed := range m.Embeds {
		if embed.Title != "" {
			parts = append(parts, embed.Title)
		}
		if embed.Description != "" {
			parts = append(parts, embed.Description)
		}
		for _, field := range embed.Fields {
			parts = append(parts, field.Name+"\n"+field.Value)
		}
	}
	if len(parts) == 0 {
		return m.Content
	}
	return strings.Join(parts, "\n")
}
