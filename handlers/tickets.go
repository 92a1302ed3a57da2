package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
)

const (
	ticketMemberPerms = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory
	ticketViewerPerms = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
)

func (h *Handler) ticketCommands() []*Command {
	return []*Command{
		{
			Name:        "ticketbutton",
			Description: "Post the ticket creation panel",
			Category:    "server",
			Perm:        PermStaff,
			Run:         h.cmdTicketButton,
		},
		{
			Name:        "ticketclose",
			Aliases:     []string{"close"},
			Description: "Close the current ticket",
			Category:    "server",
			Perm:        PermStaff,
			DenyKey:     "ticket_close_no_permission",
			Run:         h.cmdTicketClose,
		},
		{
			Name:        "ticketadd",
			Description: "Let a member see the current ticket",
			Category:    "server",
			Perm:        PermStaff,
			Args:        []Arg{{Name: "user", Description: "Member to add", Kind: ArgUser, Required: true}},
			Run:         h.cmdTicketAdd,
		},
	}
}

func (h *Handler) cmdTicketButton(c *Context) {
	channelID := h.cfg.Channels.Tickets
	if channelID == "" {
		channelID = c.ChannelID
	}
	_, err := c.Post(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       h.tr.T("ticket_panel_title"),
			Description: h.tr.T("ticket_panel_description"),
			Color:       colorOrange,
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    h.tr.T("ticket_button"),
					Style:    discordgo.SuccessButton,
					CustomID: "ticket:create",
					Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
				},
			}},
		},
	})
	if err != nil {
		h.log.Warn("Failed to post ticket panel", "component", "tickets", "channel", channelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	c.ReplyPrivate(h.tr.T("ticket_panel_sent"))
}

func (h *Handler) openTicketModal(c *Context) {
	c.responded = true
	resp := modalResponse("ticket:reason", h.tr.T("ticket_modal_title"), []discordgo.TextInput{{
		CustomID:    "reason",
		Label:       h.tr.T("ticket_modal_label"),
		Style:       discordgo.TextInputParagraph,
		Placeholder: h.tr.T("ticket_modal_placeholder"),
		Required:    true,
		MaxLength:   1000,
	}})
	if err := h.api.InteractionRespond(c.Interaction, resp); err != nil {
		h.log.Warn("Failed to open ticket modal", "component", "tickets", "err", err)
	}
}

func (h *Handler) createTicket(c *Context, reason string) {
	if reason == "" {
		reason = h.tr.T("default_reason")
	}
	user := c.Author
	name := "ticket-" + strings.ToLower(user.Username)

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: c.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: user.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketMemberPerms},
	}
	if role := h.cfg.Roles.Staff; role != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketMemberPerms,
		})
	}
	if role := h.cfg.Roles.TicketAccess; role != "" && role != h.cfg.Roles.Staff {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: role, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketViewerPerms,
		})
	}

	ch, err := h.api.GuildChannelCreateComplex(c.GuildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             h.cfg.Tickets.CategoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		h.log.Warn("Failed to create ticket channel", "component", "tickets", "user", user.ID, "err", err)
		c.ReplyPrivate(h.tr.T("ticket_create_failed"))
		return
	}
	h.store.OpenTicket(ch.ID, user.ID, ch.Name, reason)

	if _, err := h.api.ChannelMessageSend(ch.ID, h.tr.T("ticket_opened",
		"staff", h.cfg.Roles.Staff,
		"user", mentionUser(user.ID),
		"reason", reason,
	)); err != nil {
		h.log.Warn("Failed to greet ticket", "component", "tickets", "channel", ch.ID, "err", err)
	}
	c.ReplyPrivate(h.tr.T("ticket_created", "channel", mentionChannel(ch.ID)))
	h.staffLog(h.tr.T("ticket_log_created", "user", mentionUser(user.ID), "channel", mentionChannel(ch.ID)))
	h.publish(events.Event{
		Type:      events.TicketOpened,
		GuildID:   c.GuildID,
		ChannelID: ch.ID,
		UserID:    user.ID,
		Data:      map[string]string{"reason": reason},
	})
}

// ticketName returns the name of a ticket channel, or false if channelID is
// not a ticket.
func (h *Handler) ticketName(channelID string) (string, bool) {
	if t, ok := h.store.Ticket(channelID); ok {
		return t.Name, true
	}
	return h.categoryChannel(channelID)
}

// categoryChannel reports whether channelID sits in the ticket category.
// Lookups are cached per channel.
func (h *Handler) categoryChannel(channelID string) (string, bool) {
	cat := h.cfg.Tickets.CategoryID
	if cat == "" {
		return "", false
	}
	h.mu.Lock()
	info, ok := h.parents[channelID]
	h.mu.Unlock()
	if !ok {
		ch, err := h.api.Channel(channelID)
		if err != nil {
			h.log.Warn("Failed to fetch channel", "component", "tickets", "channel", channelID, "err", err)
			return "", false
		}
		info = channelInfo{name: ch.Name, parentID: ch.ParentID}
		h.mu.Lock()
		h.parents[channelID] = info
		h.mu.Unlock()
	}
	return info.name, info.parentID == cat
}

// touchTicket records activity in a ticket channel, adopting category
// channels the store does not know yet.
func (h *Handler) touchTicket(channelID string) {
	if h.store.Touch(channelID, h.store.Now()) {
		return
	}
	if name, ok := h.categoryChannel(channelID); ok && h.store.TrackTicket(channelID, name) {
		h.log.Info("Tracking ticket channel", "component", "tickets", "channel", channelID)
	}
}

func (h *Handler) cmdTicketClose(c *Context) {
	name, ok := h.ticketName(c.ChannelID)
	if !ok {
		c.ReplyPrivate(h.tr.T("ticket_only_in_ticket"))
		return
	}
	delay := h.cfg.Tickets.CloseDelay
	c.Reply(h.tr.T("ticket_closing", "seconds", strconv.Itoa(int(delay.Seconds()))))

	h.staffLog(truncate(h.tr.T("ticket_log_closed",
		"name", name,
		"user", mentionUser(c.UserID()),
		"history", h.transcript(c.ChannelID),
	), 2000))

	t, _ := h.store.CloseTicket(c.ChannelID)
	h.publish(events.Event{
		Type:      events.TicketClosed,
		GuildID:   c.GuildID,
		ChannelID: c.ChannelID,
		UserID:    t.OwnerID,
		ActorID:   c.UserID(),
	})
	h.deleteChannelLater(c.ChannelID)
}

// transcript renders the last 100 messages oldest first, clipped to fit a
// single log message.
func (h *Handler) transcript(channelID string) string {
	msgs, err := h.api.ChannelMessages(channelID, 100, "", "", "")
	if err != nil {
		h.log.Warn("Failed to fetch ticket history", "component", "tickets", "channel", channelID, "err", err)
		return ""
	}
	var sb strings.Builder
	for idx := len(msgs) - 1; idx >= 0; idx-- {
		m := msgs[idx]
		if m.Author == nil {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Author.Username, m.Content)
	}
	return truncate(sb.String(), 1900)
}

func (h *Handler) deleteChannelLater(channelID string) {
	h.later(h.cfg.Tickets.CloseDelay, func() {
		if _, err := h.api.ChannelDelete(channelID); err != nil {
			h.log.Warn("Failed to delete ticket channel", "component", "tickets", "channel", channelID, "err", err)
		}
		h.mu.Lock()
		delete(h.parents, channelID)
		h.mu.Unlock()
	})
}

func (h *Handler) cmdTicketAdd(c *Context) {
	if _, ok := h.ticketName(c.ChannelID); !ok {
		c.ReplyPrivate(h.tr.T("ticket_only_in_ticket"))
		return
	}
	userID := c.Arg("user")
	if _, err := h.api.GuildMember(c.GuildID, userID); err != nil {
		c.Reply(h.tr.T("member_not_found"))
		return
	}
	// Added members can read along but not post.
	err := h.api.ChannelPermissionSet(c.ChannelID, userID, discordgo.PermissionOverwriteTypeMember,
		ticketViewerPerms, discordgo.PermissionSendMessages)
	if err != nil {
		h.log.Warn("Failed to add ticket viewer", "component", "tickets", "channel", c.ChannelID, "user", userID, "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	_ = h.store.AddViewer(c.ChannelID, userID)
	c.Reply(h.tr.T("ticket_added", "user", mentionUser(userID)))
}

// SweepIdleTickets posts a close prompt in every ticket that has gone quiet
// for the idle threshold and has not been prompted yet.
func (h *Handler) SweepIdleTickets() {
	var restrict []string
	if cat, guild := h.cfg.Tickets.CategoryID, h.cfg.Discord.GuildID; cat != "" && guild != "" {
		channels, err := h.api.GuildChannels(guild)
		if err != nil {
			h.log.Warn("Failed to list channels, sweeping tracked tickets", "component", "tickets", "err", err)
		} else {
			restrict = make([]string, 0, len(channels))
			for _, ch := range channels {
				if ch.ParentID == cat {
					restrict = append(restrict, ch.ID)
				}
			}
		}
	}

	threshold := h.cfg.Tickets.IdleThreshold
	hours := strconv.FormatFloat(threshold.Hours(), 'f', -1, 64)
	for _, t := range h.store.IdleTickets(threshold, restrict) {
		msg, err := h.api.ChannelMessageSendEmbed(t.ChannelID, &discordgo.MessageEmbed{
			Title:       h.tr.T("ticket_idle_title"),
			Description: h.tr.T("ticket_idle_description", "hours", hours),
			Color:       colorOrange,
		})
		if err != nil {
			h.log.Warn("Failed to post idle prompt", "component", "tickets", "channel", t.ChannelID, "err", err)
			continue
		}
		if err := h.api.MessageReactionAdd(t.ChannelID, msg.ID, "✅"); err != nil {
			h.log.Warn("Failed to react to idle prompt", "component", "tickets", "channel", t.ChannelID, "err", err)
		}
		if !h.store.MarkWarned(t.ChannelID, msg.ID, t.LastActivity) {
			// activity arrived while the prompt was being posted
			if err := h.api.ChannelMessageDelete(t.ChannelID, msg.ID); err != nil {
				h.log.Warn("Failed to remove stale idle prompt", "component", "tickets", "channel", t.ChannelID, "err", err)
			}
			continue
		}
		h.log.Info("Ticket marked idle", "component", "tickets", "channel", t.ChannelID)
		h.publish(events.Event{Type: events.TicketIdle, ChannelID: t.ChannelID, UserID: t.OwnerID})
	}
}

func (h *Handler) closeIdleTicket(channelID, userID string) {
	t, ok := h.store.CloseTicket(channelID)
	if !ok {
		return
	}
	if _, err := h.api.ChannelMessageSend(channelID, h.tr.T("ticket_idle_closed")); err != nil {
		h.log.Warn("Failed to announce idle close", "component", "tickets", "channel", channelID, "err", err)
	}
	h.staffLog(h.tr.T("ticket_log_idle_closed", "name", t.Name, "user", mentionUser(userID)))
	h.publish(events.Event{
		Type:      events.TicketClosed,
		ChannelID: channelID,
		UserID:    t.OwnerID,
		ActorID:   userID,
		Data:      map[string]string{"reason": "idle"},
	})
	h.deleteChannelLater(channelID)
}
