package handlers

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/config"
	"prismbot/events"
	"prismbot/lang"
	"prismbot/state"
	"prismbot/storage"
)

const (
	colorOrange = 0xE67E22
	colorBlue   = 0x3498DB
	colorGreen  = 0x2ECC71
	colorRed    = 0xE74C3C
	colorGold   = 0xF1C40F
	colorPurple = 0x9B59B6
)

type Deps struct {
	API    API
	Store  *state.Store
	Config *config.Config
	Lang   *lang.Catalog
	Log    *slog.Logger
	Cases  storage.Database
	Events events.Publisher
}

type Handler struct {
	api    API
	store  *state.Store
	cfg    *config.Config
	tr     *lang.Catalog
	log    *slog.Logger
	cases  storage.Database
	events events.Publisher
	waiter *Waiter

	commands map[string]*Command
	order    []*Command
	flows    map[state.PromptKind]modalFlow

	ctx    context.Context
	cancel context.CancelFunc
	// later runs f after d. Replaced in tests to run synchronously.
	later func(d time.Duration, f func())

	started time.Time

	mu      sync.Mutex
	selfID  string
	timers  map[string]*time.Timer
	parents map[string]channelInfo
}

type channelInfo struct {
	name     string
	parentID string
}

func New(d Deps) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		api:     d.API,
		store:   d.Store,
		cfg:     d.Config,
		tr:      d.Lang,
		log:     d.Log,
		cases:   d.Cases,
		events:  d.Events,
		waiter:  NewWaiter(),
		ctx:     ctx,
		cancel:  cancel,
		later:   func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		timers:  make(map[string]*time.Timer),
		parents: make(map[string]channelInfo),

		started: time.Now(),
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.tr == nil {
		h.tr = lang.New()
	}
	if h.cases == nil {
		h.cases = storage.NewMemory()
	}
	if h.events == nil {
		h.events = events.Nop{}
	}
	h.registerCommands()
	h.flows = h.modalFlows()
	return h
}

// Register wires the handler into a live gateway session.
func (h *Handler) Register(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) { h.OnReady(r) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) { h.OnMessageCreate(m) })
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) { h.OnReactionAdd(r) })
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) { h.OnReactionRemove(r) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) { h.OnMemberJoin(m) })
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) { h.OnMemberLeave(m) })
	s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) { h.OnInteractionCreate(i) })
}

// Close stops giveaway timers and aborts running questionnaires.
func (h *Handler) Close() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
}

func (h *Handler) OnReady(r *discordgo.Ready) {
	h.mu.Lock()
	h.selfID = r.User.ID
	h.mu.Unlock()
	h.log.Info("Bot is online", "component", "bot", "user", r.User.Username, "guilds", len(r.Guilds))

	if v := h.cfg.Verification; v.MessageID != "" && v.Emoji != "" && v.RoleID != "" {
		h.store.BindReactionRole(v.MessageID, v.Emoji, v.RoleID)
	}
	h.postVerification()
}

func (h *Handler) botID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selfID
}

func (h *Handler) publish(e events.Event) {
	if e.At.IsZero() {
		e.At = h.store.Now()
	}
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if err := h.events.Publish(ctx, e); err != nil {
		h.log.Warn("Failed to publish event", "component", "events", "type", e.Type, "err", err)
	}
}

// staffLog posts content to the staff log channel when one is configured.
func (h *Handler) staffLog(content string) {
	if h.cfg.Channels.StaffLog == "" {
		return
	}
	if _, err := h.api.ChannelMessageSend(h.cfg.Channels.StaffLog, content); err != nil {
		h.log.Warn("Failed to write staff log", "component", "log", "err", err)
	}
}

func (h *Handler) staffLogEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if channelID == "" {
		return
	}
	if _, err := h.api.ChannelMessageSendEmbed(channelID, embed); err != nil {
		h.log.Warn("Failed to send log embed", "component", "log", "channel", channelID, "err", err)
	}
}

// sendTemp posts content and deletes it after d.
func (h *Handler) sendTemp(channelID, content string, d time.Duration) {
	msg, err := h.api.ChannelMessageSend(channelID, content)
	if err != nil {
		h.log.Warn("Failed to send message", "component", "router", "channel", channelID, "err", err)
		return
	}
	h.deleteLater(channelID, msg.ID, d)
}

func (h *Handler) deleteLater(channelID, messageID string, d time.Duration) {
	h.later(d, func() {
		_ = h.api.ChannelMessageDelete(channelID, messageID)
	})
}

func hasRole(m *discordgo.Member, roleID string) bool {
	return m != nil && roleID != "" && slices.Contains(m.Roles, roleID)
}

func hasAnyRole(m *discordgo.Member, roleIDs []string) bool {
	for _, id := range roleIDs {
		if hasRole(m, id) {
			return true
		}
	}
	return false
}

func mentionUser(id string) string    { return "<@" + id + ">" }
func mentionRole(id string) string    { return "<@&" + id + ">" }
func mentionChannel(id string) string { return "<#" + id + ">" }

func displayName(u *discordgo.User, m *discordgo.Member) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil && m != nil {
		u = m.User
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
