package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
)

func (h *Handler) OnMessageCreate(mc *discordgo.MessageCreate) {
	m := mc.Message
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		h.waiter.Deliver(m.Author.ID, m.Content)
		return
	}

	h.touchTicket(m.ChannelID)
	h.accrue(m)
	h.checkAFK(m)
	if h.automod(m) {
		return
	}
	h.dispatchText(m)
}

// accrue awards xp and coins for a guild message.
func (h *Handler) accrue(m *discordgo.Message) {
	lvl := h.cfg.Leveling
	up := h.store.AwardRandomXP(m.Author.ID, lvl.XPMin, lvl.XPMax)
	if up.LeveledUp {
		h.sendTemp(m.ChannelID, h.tr.T("level_up",
			"user", mentionUser(m.Author.ID),
			"level", strconv.Itoa(up.Level),
		), 5*time.Second)
		h.publish(events.Event{
			Type:      events.LevelUp,
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			UserID:    m.Author.ID,
			Data:      map[string]string{"level": strconv.Itoa(up.Level)},
		})
	}
	eco := h.cfg.Economy
	h.store.CreditRandom(m.Author.ID, eco.CoinMin, eco.CoinMax)
}

func (h *Handler) checkAFK(m *discordgo.Message) {
	if h.store.ClearAFK(m.Author.ID) {
		h.sendTemp(m.ChannelID, h.tr.T("afk_back", "user", mentionUser(m.Author.ID)), 5*time.Second)
	}
	for _, u := range m.Mentions {
		reason, ok := h.store.AFK(u.ID)
		if !ok {
			continue
		}
		h.sendTemp(m.ChannelID, h.tr.T("afk_notice", "name", displayName(u, nil), "reason", reason), 10*time.Second)
	}
}

// automod deletes messages containing a blocked word and reports whether it
// did.
func (h *Handler) automod(m *discordgo.Message) bool {
	content := strings.ToLower(m.Content)
	for _, word := range h.cfg.AutoMod.BadWords {
		if word == "" || !strings.Contains(content, strings.ToLower(word)) {
			continue
		}
		if err := h.api.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
			h.log.Warn("Failed to delete message", "component", "automod", "channel", m.ChannelID, "err", err)
		}
		h.sendTemp(m.ChannelID, h.tr.T("automod_warning", "user", mentionUser(m.Author.ID)), 5*time.Second)
		return true
	}
	return false
}

func (h *Handler) reactionFromBot(userID string, m *discordgo.Member) bool {
	if userID == h.botID() {
		return true
	}
	return m != nil && m.User != nil && m.User.Bot
}

func (h *Handler) OnReactionAdd(r *discordgo.MessageReactionAdd) {
	if h.reactionFromBot(r.UserID, r.Member) {
		return
	}
	if r.Emoji.Name == "✅" && h.store.IsIdlePrompt(r.ChannelID, r.MessageID) {
		h.closeIdleTicket(r.ChannelID, r.UserID)
		return
	}
	roleID, ok := h.store.ReactionRole(r.MessageID, r.Emoji.APIName())
	if !ok {
		return
	}
	if err := h.api.GuildMemberRoleAdd(r.GuildID, r.UserID, roleID); err != nil {
		h.log.Warn("Failed to grant reaction role", "component", "reactionroles", "user", r.UserID, "role", roleID, "err", err)
	}
}

func (h *Handler) OnReactionRemove(r *discordgo.MessageReactionRemove) {
	if r.UserID == h.botID() {
		return
	}
	roleID, ok := h.store.ReactionRole(r.MessageID, r.Emoji.APIName())
	if !ok {
		return
	}
	if err := h.api.GuildMemberRoleRemove(r.GuildID, r.UserID, roleID); err != nil {
		h.log.Warn("Failed to revoke reaction role", "component", "reactionroles", "user", r.UserID, "role", roleID, "err", err)
	}
}
