package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
	"prismbot/state"
)

const giveawayEmoji = "🎉"

func (h *Handler) giveawayCommands() []*Command {
	messageArg := Arg{Name: "message_id", Description: "Giveaway message id", Kind: ArgString, Required: true}
	return []*Command{
		{
			Name:        "giveaway",
			Description: "Start a giveaway in this channel",
			Category:    "utility",
			Perm:        PermStaff,
			Run:         h.cmdGiveaway,
		},
		{
			Name:        "endgiveaway",
			Description: "End a running giveaway now",
			Category:    "utility",
			Perm:        PermStaff,
			Args:        []Arg{messageArg},
			Run:         h.cmdEndGiveaway,
		},
		{
			Name:        "reroll",
			Description: "Draw a new giveaway winner",
			Category:    "utility",
			Perm:        PermStaff,
			Args:        []Arg{messageArg},
			Run:         h.cmdReroll,
		},
	}
}

func (h *Handler) cmdGiveaway(c *Context) {
	c.OpenModal(state.PromptGiveaway, nil, "giveaway_prompt", "giveaway_button")
}

func (h *Handler) giveawayFlow() modalFlow {
	return modalFlow{
		titleKey: "giveaway_modal_title",
		inputs: func() []discordgo.TextInput {
			return []discordgo.TextInput{
				{
					CustomID:    "prize",
					Label:       h.tr.T("giveaway_prize_label"),
					Style:       discordgo.TextInputShort,
					Placeholder: h.tr.T("giveaway_prize_placeholder"),
					Required:    true,
					MaxLength:   200,
				},
				{
					CustomID:    "duration",
					Label:       h.tr.T("giveaway_duration_label"),
					Style:       discordgo.TextInputShort,
					Placeholder: h.tr.T("giveaway_duration_placeholder"),
					Required:    true,
					MaxLength:   6,
				},
			}
		},
		submit: h.submitGiveaway,
	}
}

func (h *Handler) submitGiveaway(c *Context, values map[string]string, p state.Prompt) {
	minutes, err := strconv.Atoi(values["duration"])
	if err != nil || minutes < 1 {
		c.ReplyPrivate(h.tr.T("giveaway_invalid_duration"))
		return
	}
	prize := values["prize"]
	if prize == "" {
		prize = h.tr.T("giveaway_default_prize")
	}
	channelID := p.ChannelID
	if channelID == "" {
		channelID = c.ChannelID
	}
	mins := strconv.Itoa(minutes)
	d := time.Duration(minutes) * time.Minute
	endsAt := h.store.Now().Add(d)

	msg, err := h.api.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       h.tr.T("giveaway_title"),
		Description: h.tr.T("giveaway_description", "prize", prize, "minutes", mins, "host", c.Mention()),
		Color:       colorGold,
		Timestamp:   endsAt.Format(time.RFC3339),
	})
	if err != nil {
		h.log.Warn("Failed to post giveaway", "component", "giveaways", "channel", channelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	if err := h.api.MessageReactionAdd(channelID, msg.ID, giveawayEmoji); err != nil {
		h.log.Warn("Failed to react to giveaway", "component", "giveaways", "err", err)
	}
	h.store.AddGiveaway(state.Giveaway{
		MessageID: msg.ID,
		ChannelID: channelID,
		HostID:    c.UserID(),
		Prize:     prize,
		EndsAt:    endsAt,
	})
	h.scheduleGiveaway(msg.ID, d)
	c.ReplyPrivate(h.tr.T("giveaway_started", "minutes", mins))
}

func (h *Handler) scheduleGiveaway(messageID string, d time.Duration) {
	t := time.AfterFunc(d, func() {
		h.mu.Lock()
		delete(h.timers, messageID)
		h.mu.Unlock()
		if g, ok := h.store.RemoveGiveaway(messageID); ok {
			h.finishGiveaway(g)
		}
	})
	h.mu.Lock()
	h.timers[messageID] = t
	h.mu.Unlock()
}

func (h *Handler) cancelGiveawayTimer(messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.timers[messageID]; ok {
		t.Stop()
		delete(h.timers, messageID)
	}
}

func (h *Handler) cmdEndGiveaway(c *Context) {
	id := c.Arg("message_id")
	g, ok := h.store.RemoveGiveaway(id)
	if !ok {
		c.Reply(h.tr.T("giveaway_not_found"))
		return
	}
	h.cancelGiveawayTimer(id)
	h.finishGiveaway(g)
}

// finishGiveaway draws and announces the winner of a giveaway that has
// already been removed from the store.
func (h *Handler) finishGiveaway(g state.Giveaway) {
	winner, err := h.store.PickWinner(h.entrants(g.ChannelID, g.MessageID))
	if errors.Is(err, state.ErrNoEntries) {
		if _, err := h.api.ChannelMessageSend(g.ChannelID, h.tr.T("giveaway_no_entries")); err != nil {
			h.log.Warn("Failed to announce giveaway", "component", "giveaways", "err", err)
		}
		return
	}
	_, err = h.api.ChannelMessageSendComplex(g.ChannelID, &discordgo.MessageSend{
		Content: h.tr.T("giveaway_ended", "user", mentionUser(winner), "prize", g.Prize),
		Reference: &discordgo.MessageReference{
			MessageID: g.MessageID,
			ChannelID: g.ChannelID,
		},
	})
	if err != nil {
		h.log.Warn("Failed to announce giveaway", "component", "giveaways", "err", err)
	}
	h.log.Info("Giveaway ended", "component", "giveaways", "message", g.MessageID, "winner", winner)
	h.publish(events.Event{
		Type:      events.GiveawayEnded,
		ChannelID: g.ChannelID,
		UserID:    winner,
		ActorID:   g.HostID,
		Data:      map[string]string{"prize": g.Prize, "message_id": g.MessageID},
	})
}

func (h *Handler) cmdReroll(c *Context) {
	id := c.Arg("message_id")
	channelID := c.ChannelID
	if g, ok := h.store.Giveaway(id); ok {
		channelID = g.ChannelID
	}
	if _, err := h.api.ChannelMessage(channelID, id); err != nil {
		c.Reply(h.tr.T("giveaway_not_found"))
		return
	}
	winner, err := h.store.PickWinner(h.entrants(channelID, id))
	if err != nil {
		c.Reply(h.tr.T("giveaway_no_entries"))
		return
	}
	c.Reply(h.tr.T("giveaway_rerolled", "user", mentionUser(winner)))
}

// entrants lists the non-bot users who reacted to the giveaway message.
func (h *Handler) entrants(channelID, messageID string) []string {
	var (
		out   []string
		after string
	)
	for {
		users, err := h.api.MessageReactions(channelID, messageID, giveawayEmoji, 100, "", after)
		if err != nil {
			h.log.Warn("Failed to fetch giveaway entrants", "component", "giveaways", "message", messageID, "err", err)
			return out
		}
		for _, u := range users {
			if !u.Bot {
				out = append(out, u.ID)
			}
		}
		if len(users) < 100 {
			return out
		}
		after = users[len(users)-1].ID
	}
}
