package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"prismbot/config"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

type Bot struct {
	Session *discordgo.Session
	Config  *config.Config
	log     *slog.Logger
	ready   chan struct{}
}

func New(cfg *config.Config, log *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.Identify.Intents = intents
	return &Bot{
		Session: s,
		Config:  cfg,
		log:     log.With("component", "bot"),
		ready:   make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("Gateway ready", "user", r.User.Username, "session", r.SessionID)
		select {
		case <-b.ready:
		default:
			close(b.ready)
		}
	})
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	if err := b.Session.Close(); err != nil {
		b.log.Warn("Failed to close session", "err", err)
	}
}

func (b *Bot) waitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ready: %w", ctx.Err())
	}
}

// RegisterCommands replaces the application's guild commands with cmds.
func (b *Bot) RegisterCommands(ctx context.Context, cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	if err := b.waitReady(ctx); err != nil {
		return nil, err
	}
	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID
	b.log.Info("Registering commands", "count", len(cmds), "app", appID, "guild", guildID)

	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		return nil, fmt.Errorf("bulk overwrite commands: %w", err)
	}
	b.log.Info("Registered slash commands", "count", len(registered))
	return registered, nil
}

func (b *Bot) CleanupCommands(ctx context.Context) error {
	if err := b.waitReady(ctx); err != nil {
		return err
	}
	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("clean up commands: %w", err)
	}
	b.log.Info("Cleaned up all slash commands")
	return nil
}
