package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) OnMemberJoin(m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	h.memberEmbed(&discordgo.MessageEmbed{
		Title:       h.tr.T("welcome_title"),
		Description: mentionUser(m.User.ID),
		Color:       colorOrange,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("256")},
	})
}

func (h *Handler) OnMemberLeave(m *discordgo.GuildMemberRemove) {
	if m.User == nil || m.User.Bot {
		return
	}
	h.memberEmbed(&discordgo.MessageEmbed{
		Title:       h.tr.T("leave_title"),
		Description: h.tr.T("leave_description", "name", m.User.Username),
		Color:       colorOrange,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("256")},
	})
}

func (h *Handler) memberEmbed(embed *discordgo.MessageEmbed) {
	channelID := h.cfg.Channels.Welcome
	if channelID == "" {
		return
	}
	if _, err := h.api.ChannelMessageSendEmbed(channelID, embed); err != nil {
		h.log.Warn("Failed to send member embed", "component", "welcome", "err", err)
	}
}

// postVerification replaces the bot's verification message with a fresh one
// and binds its reaction to the member role.
func (h *Handler) postVerification() {
	v := h.cfg.Verification
	if v.ChannelID == "" || v.Emoji == "" || v.RoleID == "" {
		return
	}
	text := h.tr.T("verification_message")
	firstLine, _, _ := strings.Cut(text, "\n")

	msgs, err := h.api.ChannelMessages(v.ChannelID, 50, "", "", "")
	if err != nil {
		h.log.Warn("Failed to read verification channel", "component", "reactionroles", "channel", v.ChannelID, "err", err)
		return
	}
	self := h.botID()
	for _, m := range msgs {
		if m.Author != nil && m.Author.ID == self && strings.Contains(m.Content, firstLine) {
			if err := h.api.ChannelMessageDelete(v.ChannelID, m.ID); err != nil {
				h.log.Warn("Failed to delete old verification message", "component", "reactionroles", "message", m.ID, "err", err)
			}
			break
		}
	}

	msg, err := h.api.ChannelMessageSend(v.ChannelID, text)
	if err != nil {
		h.log.Warn("Failed to post verification message", "component", "reactionroles", "channel", v.ChannelID, "err", err)
		return
	}
	if err := h.api.MessageReactionAdd(v.ChannelID, msg.ID, v.Emoji); err != nil {
		h.log.Warn("Failed to react to verification message", "component", "reactionroles", "err", err)
	}
	h.store.BindReactionRole(msg.ID, v.Emoji, v.RoleID)
	h.log.Info("Posted verification message", "component", "reactionroles", "message", msg.ID)
}
