// Package discord implements the chat-platform capabilities for the
// digest pipeline using discordgo: message history fetching with
// pagination, channel discovery, direct-message delivery, and the
// owner-only manual digest command.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/hferr/chanbrief/pkg/chanbrief/digest"
)

// commandPrefix triggers a manual digest run when sent by the owner.
const commandPrefix = "!brief"

// maxMessageLen is Discord's hard per-message character limit.
const maxMessageLen = 2000

// Config holds Discord connection configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// GuildID is the server to discover channels in when ChannelIDs is
	// empty.
	GuildID string

	// ChannelIDs pins the collection set to explicit channel IDs.
	ChannelIDs []string

	// ChannelPrefix restricts discovered channel names (empty = all).
	ChannelPrefix string

	// SkipSubstrings excludes discovered channels whose names contain
	// any of these (default: "test").
	SkipSubstrings []string

	// OwnerUserID is the digest recipient and the only user allowed to
	// run the manual command.
	OwnerUserID string

	// PageLimit is the history page size (Discord caps it at 100).
	PageLimit int
}

// BriefCommand is an owner-issued manual digest request.
type BriefCommand struct {
	// ChannelID is where the command was issued, for acknowledgements.
	ChannelID string

	// DayArg is the raw day argument ("" means the trailing window).
	DayArg string
}

// BriefHandler processes a manual digest request.
type BriefHandler func(cmd BriefCommand)

// Discord wraps a discordgo session. Implements digest.HistoryFetcher
// and digest.DirectMessenger.
type Discord struct {
	cfg       Config
	logger    *slog.Logger
	session   *discordgo.Session
	connected atomic.Bool
	onBrief   atomic.Pointer[BriefHandler]
}

// New creates a Discord instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if cfg.PageLimit <= 0 || cfg.PageLimit > 100 {
		cfg.PageLimit = 100
	}
	if cfg.SkipSubstrings == nil {
		cfg.SkipSubstrings = []string{"test"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:    cfg,
		logger: logger.With("component", "discord"),
	}
}

// Connect opens the Discord gateway connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the gateway connection.
func (d *Discord) Disconnect() error {
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("disconnected")
	return nil
}

// IsConnected reports the gateway connection state.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// SetBriefHandler registers the manual digest command handler.
func (d *Discord) SetBriefHandler(h BriefHandler) {
	d.onBrief.Store(&h)
}

// SendDirectMessage opens (or reuses) the DM channel with userID and
// sends text, split at Discord's message size limit.
func (d *Discord) SendDirectMessage(ctx context.Context, userID, text string) error {
	if d.session == nil {
		return fmt.Errorf("discord: not connected")
	}

	dm, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: opening DM channel: %w", err)
	}

	for _, chunk := range splitMessage(text, maxMessageLen) {
		if _, err := d.session.ChannelMessageSend(dm.ID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: sending DM: %w", err)
		}
	}
	return nil
}

// Reply sends an acknowledgement to the channel a command came from.
func (d *Discord) Reply(channelID, text string) {
	if d.session == nil {
		return
	}
	if _, err := d.session.ChannelMessageSend(channelID, text); err != nil {
		d.logger.Warn("failed to send reply", "channel_id", channelID, "error", err)
	}
}

// onMessageCreate watches for the owner's manual digest command.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	content := strings.TrimSpace(m.Content)
	if content != commandPrefix && !strings.HasPrefix(content, commandPrefix+" ") {
		return
	}

	if m.Author.ID != d.cfg.OwnerUserID {
		d.logger.Warn("unauthorized digest command",
			"user", m.Author.Username, "user_id", m.Author.ID)
		return
	}

	handler := d.onBrief.Load()
	if handler == nil {
		return
	}

	(*handler)(BriefCommand{
		ChannelID: m.ChannelID,
		DayArg:    strings.TrimSpace(strings.TrimPrefix(content, commandPrefix)),
	})
}

// splitMessage splits text into chunks under maxLen bytes, preferring
// newline boundaries and never cutting inside a multibyte rune.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		} else {
			for cutAt > 0 && !utf8.RuneStart(text[cutAt]) {
				cutAt--
			}
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

// Compile-time interface verification.
var (
	_ digest.HistoryFetcher  = (*Discord)(nil)
	_ digest.DirectMessenger = (*Discord)(nil)
)
