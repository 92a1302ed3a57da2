package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
	"prismbot/state"
)

func (h *Handler) sessionCommands() []*Command {
	host := func(name, desc string, run func(*Context), args ...Arg) *Command {
		return &Command{
			Name:        name,
			Description: desc,
			Category:    "server",
			Perm:        PermSessionHost,
			DenyKey:     "session_host_required",
			Args:        args,
			Run:         run,
		}
	}
	userArg := Arg{Name: "user", Description: "Member", Kind: ArgUser, Required: true}
	return []*Command{
		host("startup", "Announce a session startup", h.cmdStartup),
		host("setting_up", "Tell players the session is being set up", h.cmdSettingUp),
		host("release_early", "Release early access to the session", h.cmdReleaseEarly),
		host("release", "Release the session", h.cmdRelease),
		host("addcohost", "Add a co-host to the session", h.cmdAddCohost, userArg),
		host("removecohost", "Remove a co-host from the session", h.cmdRemoveCohost, userArg),
		host("session_end", "End the current session", h.cmdSessionEnd),
		{
			Name:        "cohost",
			Description: "Co-host the released session",
			Category:    "server",
			Run:         h.cmdCohost,
		},
	}
}

func (h *Handler) sessionChannel(c *Context) string {
	if h.cfg.Channels.Session != "" {
		return h.cfg.Channels.Session
	}
	return c.ChannelID
}

func rolePings(roles []string) string {
	pings := make([]string, 0, len(roles))
	for _, r := range roles {
		pings = append(pings, mentionRole(r))
	}
	return strings.Join(pings, " ")
}

func (h *Handler) releaseLog(title, description string) {
	h.staffLogEmbed(h.cfg.Channels.ReleaseLog, &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       colorBlue,
		Timestamp:   h.store.Now().Format(time.RFC3339),
	})
}

func linkButton(label, token string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: label, Style: discordgo.SuccessButton, CustomID: "session:link:" + token},
		}},
	}
}

func (h *Handler) cmdStartup(c *Context) {
	c.OpenModal(state.PromptStartup, nil, "startup_prompt", "startup_button")
}

func (h *Handler) startupFlow() modalFlow {
	return modalFlow{
		titleKey: "startup_modal_title",
		inputs: func() []discordgo.TextInput {
			return []discordgo.TextInput{{
				CustomID:    "count",
				Label:       h.tr.T("startup_modal_label"),
				Style:       discordgo.TextInputShort,
				Placeholder: h.tr.T("startup_modal_placeholder"),
				Required:    true,
				MaxLength:   4,
			}}
		},
		submit: h.submitStartup,
	}
}

func (h *Handler) submitStartup(c *Context, values map[string]string, _ state.Prompt) {
	count, err := strconv.Atoi(values["count"])
	if err != nil || count < 1 {
		c.ReplyPrivate(h.tr.T("startup_invalid_count"))
		return
	}
	channelID := h.sessionChannel(c)
	n := strconv.Itoa(count)
	msg, err := c.Post(channelID, &discordgo.MessageSend{
		Content: rolePings(h.cfg.Roles.StartupPings),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       h.tr.T("startup_title"),
			Description: h.tr.T("startup_description", "host", c.Mention(), "count", n),
			Color:       colorBlue,
		}},
	})
	if err != nil {
		h.log.Warn("Failed to post startup", "component", "sessions", "channel", channelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	if err := h.api.MessageReactionAdd(channelID, msg.ID, "✅"); err != nil {
		h.log.Warn("Failed to react to startup", "component", "sessions", "err", err)
	}
	h.store.StartSession(c.UserID(), channelID, msg.ID)
	h.releaseLog(h.tr.T("startup_log_title"), h.tr.T("startup_log_description", "host", c.Mention(), "count", n))
	c.ReplyPrivate(h.tr.T("startup_announced", "channel", mentionChannel(channelID)))
	h.publish(events.Event{
		Type:      events.SessionStarted,
		GuildID:   c.GuildID,
		ChannelID: channelID,
		UserID:    c.UserID(),
		Data:      map[string]string{"reactions": n},
	})
}

func (h *Handler) cmdSettingUp(c *Context) {
	sess := h.store.Session()
	if sess.StartupMessageID == "" {
		c.Reply(h.tr.T("setting_up_no_startup"))
		return
	}
	_, err := c.Post(sess.StartupChannelID, &discordgo.MessageSend{
		Content: h.tr.T("setting_up", "host", c.Mention()),
		Reference: &discordgo.MessageReference{
			MessageID: sess.StartupMessageID,
			ChannelID: sess.StartupChannelID,
			GuildID:   c.GuildID,
		},
	})
	if err != nil {
		h.log.Warn("Failed to post setting up notice", "component", "sessions", "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
	}
}

func (h *Handler) linkInput() discordgo.TextInput {
	return discordgo.TextInput{
		CustomID:    "link",
		Label:       h.tr.T("link_modal_label"),
		Style:       discordgo.TextInputShort,
		Placeholder: h.tr.T("link_modal_placeholder"),
		Required:    true,
	}
}

func (h *Handler) cmdReleaseEarly(c *Context) {
	c.OpenModal(state.PromptEarlyRelease, nil, "early_prompt", "early_button")
}

func (h *Handler) earlyReleaseFlow() modalFlow {
	return modalFlow{
		titleKey: "early_modal_title",
		inputs:   func() []discordgo.TextInput { return []discordgo.TextInput{h.linkInput()} },
		submit:   h.submitEarlyRelease,
	}
}

func (h *Handler) submitEarlyRelease(c *Context, values map[string]string, _ state.Prompt) {
	link := h.store.AddSessionLink(values["link"], h.cfg.Roles.ReleasePings)
	channelID := h.sessionChannel(c)
	ping := rolePings(h.cfg.Roles.ReleasePings)
	_, err := c.Post(channelID, &discordgo.MessageSend{
		Content: ping,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       h.tr.T("early_title"),
			Description: h.tr.T("early_description", "ping", ping, "host", c.Mention()),
			Color:       colorGold,
		}},
		Components: linkButton(h.tr.T("link_button"), link.Token),
	})
	if err != nil {
		h.log.Warn("Failed to post early access", "component", "sessions", "channel", channelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	h.releaseLog(h.tr.T("early_log_title"), h.tr.T("early_log_description", "host", c.Mention(), "link", link.URL))
	c.ReplyPrivate(h.tr.T("early_released"))
}

func (h *Handler) cmdRelease(c *Context) {
	c.OpenModal(state.PromptRelease, nil, "release_prompt", "release_button")
}

func (h *Handler) releaseFlow() modalFlow {
	field := func(id, label, placeholder string) discordgo.TextInput {
		return discordgo.TextInput{
			CustomID:    id,
			Label:       h.tr.T(label),
			Style:       discordgo.TextInputShort,
			Placeholder: h.tr.T(placeholder),
			Required:    true,
		}
	}
	return modalFlow{
		titleKey: "release_modal_title",
		inputs: func() []discordgo.TextInput {
			return []discordgo.TextInput{
				h.linkInput(),
				field("peacetime", "release_peacetime_label", "release_peacetime_placeholder"),
				field("frp", "release_frp_label", "release_frp_placeholder"),
				field("law", "release_law_label", "release_law_placeholder"),
			}
		},
		submit: h.submitRelease,
	}
}

func (h *Handler) submitRelease(c *Context, values map[string]string, _ state.Prompt) {
	link := h.store.AddSessionLink(values["link"], nil)
	channelID := h.sessionChannel(c)
	msg, err := c.Post(channelID, &discordgo.MessageSend{
		Content: rolePings(h.cfg.Roles.StartupPings),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       h.tr.T("release_title"),
			Description: h.tr.T("release_description", "host", c.Mention()),
			Color:       colorGreen,
			Fields: []*discordgo.MessageEmbedField{
				{Name: h.tr.T("release_field_peacetime"), Value: values["peacetime"], Inline: true},
				{Name: h.tr.T("release_field_frp"), Value: values["frp"], Inline: true},
				{Name: h.tr.T("release_field_law"), Value: values["law"], Inline: true},
			},
		}},
		Components: linkButton(h.tr.T("link_button"), link.Token),
	})
	if err != nil {
		h.log.Warn("Failed to post release", "component", "sessions", "channel", channelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	h.store.ReleaseSession(c.UserID(), channelID, msg.ID)
	h.releaseLog(h.tr.T("release_log_title"), h.tr.T("release_log_description",
		"host", c.Mention(),
		"link", link.URL,
		"peacetime", values["peacetime"],
		"frp", values["frp"],
		"law", values["law"],
	))
	c.ReplyPrivate(h.tr.T("released"))
	h.publish(events.Event{
		Type:      events.SessionReleased,
		GuildID:   c.GuildID,
		ChannelID: channelID,
		UserID:    c.UserID(),
	})
}

func (h *Handler) revealSessionLink(c *Context, token string) {
	link, ok := h.store.SessionLink(token)
	if !ok {
		c.ReplyPrivate(h.tr.T("prompt_expired"))
		return
	}
	if len(link.AllowedRoles) > 0 && !hasAnyRole(c.Member, link.AllowedRoles) && !h.isAdmin(c.GuildID, c.Member) {
		c.ReplyPrivate(h.tr.T("link_denied"))
		return
	}
	c.ReplyPrivate(h.tr.T("link_reveal", "link", link.URL))
}

func (h *Handler) cmdAddCohost(c *Context) {
	userID := c.Arg("user")
	mention := mentionUser(userID)
	_, err := h.store.AddCohost(userID)
	switch {
	case errors.Is(err, state.ErrAlreadyCohost):
		c.Reply(h.tr.T("cohost_already", "user", mention))
		return
	case errors.Is(err, state.ErrCohostLimit):
		c.Reply(h.tr.T("cohost_limit"))
		return
	}
	c.Reply(h.tr.T("cohost_added", "user", mention))
	h.releaseLog(h.tr.T("cohost_log_added_title"), h.tr.T("cohost_log_added_description", "host", c.Mention(), "user", mention))
}

func (h *Handler) cmdRemoveCohost(c *Context) {
	userID := c.Arg("user")
	mention := mentionUser(userID)
	if _, err := h.store.RemoveCohost(userID); err != nil {
		c.Reply(h.tr.T("cohost_missing", "user", mention))
		return
	}
	c.Reply(h.tr.T("cohost_removed", "user", mention))
	h.releaseLog(h.tr.T("cohost_log_removed_title"), h.tr.T("cohost_log_removed_description", "host", c.Mention(), "user", mention))
}

func (h *Handler) cmdCohost(c *Context) {
	sess, err := h.store.JoinAsCohost(c.UserID())
	switch {
	case errors.Is(err, state.ErrNoRelease):
		c.Reply(h.tr.T("cohost_no_release"))
		return
	case errors.Is(err, state.ErrAlreadyCohost):
		c.Reply(h.tr.T("cohost_self_already"))
		return
	case errors.Is(err, state.ErrCohostLimit):
		c.Reply(h.tr.T("cohost_limit"))
		return
	}
	_, err = c.Post(sess.ReleaseChannelID, &discordgo.MessageSend{
		Content: h.tr.T("cohost_joined", "user", c.Mention()),
		Reference: &discordgo.MessageReference{
			MessageID: sess.ReleaseMessageID,
			ChannelID: sess.ReleaseChannelID,
			GuildID:   c.GuildID,
		},
	})
	if err != nil {
		h.log.Warn("Failed to announce co-host", "component", "sessions", "err", err)
	}
	h.releaseLog(h.tr.T("cohost_log_joined_title"), h.tr.T("cohost_log_joined_description", "user", c.Mention()))
}

func (h *Handler) cmdSessionEnd(c *Context) {
	ended := h.store.EndSession()
	channelID := h.sessionChannel(c)
	_, err := h.api.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       h.tr.T("session_end_title"),
		Description: h.tr.T("session_end_description", "host", c.Mention()),
		Color:       colorRed,
	})
	if err != nil {
		h.log.Warn("Failed to post session end", "component", "sessions", "channel", channelID, "err", err)
	}
	h.releaseLog(h.tr.T("session_end_log_title"), h.tr.T("session_end_log_description", "host", c.Mention()))
	c.ReplyPrivate(h.tr.T("session_ended"))
	h.publish(events.Event{
		Type:      events.SessionEnded,
		GuildID:   c.GuildID,
		ChannelID: channelID,
		UserID:    ended.HostID,
		ActorID:   c.UserID(),
		Data:      map[string]string{"cohosts": strconv.Itoa(len(ended.Cohosts))},
	})
}
