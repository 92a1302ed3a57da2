package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
	"prismbot/state"
	"prismbot/storage"
)

func (h *Handler) moderationCommands() []*Command {
	userArg := Arg{Name: "user", Description: "Target member", Kind: ArgUser, Required: true}
	reasonArg := Arg{Name: "reason", Description: "Reason", Kind: ArgText}
	return []*Command{
		{
			Name:        "warn",
			Description: "Warn a member and move them up the warning ladder",
			Category:    "moderation",
			Perm:        PermStaff,
			DenyKey:     "warn_no_permission",
			Args:        []Arg{userArg, reasonArg},
			Run:         h.cmdWarn,
		},
		{
			Name:        "timeout",
			Description: "Time out a member",
			Category:    "moderation",
			Perm:        PermStaff,
			Args: []Arg{
				userArg,
				{Name: "minutes", Description: "Length of the timeout in minutes", Kind: ArgInt, Required: true},
				reasonArg,
			},
			Run: h.cmdTimeout,
		},
		{
			Name:        "untimeout",
			Description: "Remove a member's timeout",
			Category:    "moderation",
			Perm:        PermStaff,
			Args:        []Arg{userArg},
			Run:         h.cmdUntimeout,
		},
		{
			Name:        "kick",
			Description: "Kick a member",
			Category:    "moderation",
			Perm:        PermStaff,
			Args:        []Arg{userArg, reasonArg},
			Run:         h.cmdKick,
		},
		{
			Name:        "ban",
			Description: "Ban a member",
			Category:    "moderation",
			Perm:        PermStaff,
			Args:        []Arg{userArg, reasonArg},
			Run:         h.cmdBan,
		},
		{
			Name:        "clear",
			Aliases:     []string{"purge"},
			Description: "Delete recent messages in this channel",
			Category:    "moderation",
			Perm:        PermStaff,
			Args:        []Arg{{Name: "amount", Description: "Number of messages (default 10)", Kind: ArgInt}},
			Run:         h.cmdClear,
		},
		{
			Name:        "cases",
			Description: "List recorded moderation cases for a member",
			Category:    "moderation",
			Perm:        PermStaff,
			Args:        []Arg{userArg},
			Run:         h.cmdCases,
		},
	}
}

func (h *Handler) reason(c *Context) string {
	if r := c.Arg("reason"); r != "" {
		return r
	}
	return h.tr.T("default_reason")
}

// observedWarnLevel is the highest ladder role the member currently holds.
func (h *Handler) observedWarnLevel(m *discordgo.Member) int {
	level := 0
	for i, role := range h.cfg.Roles.WarningLevels {
		if hasRole(m, role) {
			level = i + 1
		}
	}
	return level
}

func (h *Handler) cmdWarn(c *Context) {
	userID := c.Arg("user")
	member, err := h.api.GuildMember(c.GuildID, userID)
	if err != nil {
		c.Reply(h.tr.T("member_not_found"))
		return
	}
	reason := h.reason(c)
	res := h.store.Warn(userID, h.observedWarnLevel(member))

	target := h.cfg.WarningRole(res.Level)
	for _, role := range h.cfg.Roles.WarningLevels {
		if role == target || !hasRole(member, role) {
			continue
		}
		if err := h.api.GuildMemberRoleRemove(c.GuildID, userID, role); err != nil {
			h.log.Warn("Failed to remove warning role", "component", "moderation", "user", userID, "role", role, "err", err)
		}
	}
	if target != "" && !hasRole(member, target) {
		if err := h.api.GuildMemberRoleAdd(c.GuildID, userID, target); err != nil {
			h.log.Warn("Failed to add warning role", "component", "moderation", "user", userID, "role", target, "err", err)
		}
	}

	mention := mentionUser(userID)
	level := strconv.Itoa(res.Level)
	if res.Level == state.MaxWarnLevel {
		c.Reply(h.tr.T("warned_final", "user", mention, "reason", reason))
	} else {
		c.Reply(h.tr.T("warned", "user", mention, "level", level, "reason", reason))
	}

	staffCh := h.cfg.Channels.WarningStaff
	if res.Final && staffCh != "" {
		_, err := h.api.ChannelMessageSendComplex(staffCh, &discordgo.MessageSend{
			Content: "@everyone",
			Embeds: []*discordgo.MessageEmbed{{
				Title: h.tr.T("warn_final_title"),
				Description: h.tr.T("warn_final_description",
					"user", mention, "reason", reason, "moderator", c.Mention()),
				Color:     colorRed,
				Timestamp: h.store.Now().Format(time.RFC3339),
			}},
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone},
			},
		})
		if err != nil {
			h.log.Warn("Failed to send final warning alert", "component", "moderation", "err", err)
		}
	}
	h.staffLogEmbed(staffCh, &discordgo.MessageEmbed{
		Title: h.tr.T("warn_log_title"),
		Description: h.tr.T("warn_log_description",
			"user", mention, "level", level, "reason", reason, "moderator", c.Mention()),
		Color:     colorOrange,
		Timestamp: h.store.Now().Format(time.RFC3339),
	})

	h.recordCase(c, userID, "warn", reason, "")
	kind := events.MemberWarned
	if res.Final {
		kind = events.MemberFinalWarning
	}
	h.publish(events.Event{
		Type:    kind,
		GuildID: c.GuildID,
		UserID:  userID,
		ActorID: c.UserID(),
		Data: map[string]string{
			"level":  level,
			"final":  strconv.FormatBool(res.Final),
			"reason": reason,
		},
	})
}

func (h *Handler) cmdTimeout(c *Context) {
	userID := c.Arg("user")
	minutes := c.Int("minutes", 0)
	if minutes <= 0 || minutes > 40320 {
		c.Reply(h.tr.T("invalid_argument", "arg", "minutes"))
		return
	}
	reason := h.reason(c)
	until := h.store.Now().Add(time.Duration(minutes) * time.Minute)
	if err := h.api.GuildMemberTimeout(c.GuildID, userID, &until); err != nil {
		h.modFailed(c, "timeout", userID, err)
		return
	}
	mins := strconv.FormatInt(minutes, 10)
	c.Reply(h.tr.T("timed_out", "user", mentionUser(userID), "minutes", mins, "reason", reason))
	h.staffLog(h.tr.T("timeout_log", "user", mentionUser(userID), "moderator", c.Mention(), "minutes", mins, "reason", reason))
	h.recordCase(c, userID, "timeout", reason, mins+"m")
}

func (h *Handler) cmdUntimeout(c *Context) {
	userID := c.Arg("user")
	if err := h.api.GuildMemberTimeout(c.GuildID, userID, nil); err != nil {
		h.modFailed(c, "untimeout", userID, err)
		return
	}
	c.Reply(h.tr.T("untimed_out", "user", mentionUser(userID)))
	h.staffLog(h.tr.T("untimeout_log", "user", mentionUser(userID), "moderator", c.Mention()))
	h.recordCase(c, userID, "untimeout", "", "")
}

func (h *Handler) cmdKick(c *Context) {
	userID := c.Arg("user")
	reason := h.reason(c)
	if err := h.api.GuildMemberDeleteWithReason(c.GuildID, userID, reason); err != nil {
		h.modFailed(c, "kick", userID, err)
		return
	}
	c.Reply(h.tr.T("kicked", "user", mentionUser(userID), "reason", reason))
	h.staffLog(h.tr.T("kick_log", "user", mentionUser(userID), "moderator", c.Mention(), "reason", reason))
	h.recordCase(c, userID, "kick", reason, "")
}

func (h *Handler) cmdBan(c *Context) {
	userID := c.Arg("user")
	reason := h.reason(c)
	if err := h.api.GuildBanCreateWithReason(c.GuildID, userID, reason, 0); err != nil {
		h.modFailed(c, "ban", userID, err)
		return
	}
	c.Reply(h.tr.T("banned", "user", mentionUser(userID), "reason", reason))
	h.staffLog(h.tr.T("ban_log", "user", mentionUser(userID), "moderator", c.Mention(), "reason", reason))
	h.recordCase(c, userID, "ban", reason, "")
}

func (h *Handler) cmdClear(c *Context) {
	amount := c.Int("amount", 10)
	if amount < 1 || amount > 99 {
		c.ReplyPrivate(h.tr.T("invalid_argument", "arg", "amount"))
		return
	}
	// A text invocation also removes the command message itself.
	fetch := int(amount)
	if c.Message != nil {
		fetch++
	}
	msgs, err := h.api.ChannelMessages(c.ChannelID, fetch, "", "", "")
	if err != nil {
		h.log.Warn("Failed to fetch messages", "component", "moderation", "channel", c.ChannelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	switch len(ids) {
	case 0:
	case 1:
		err = h.api.ChannelMessageDelete(c.ChannelID, ids[0])
	default:
		err = h.api.ChannelMessagesBulkDelete(c.ChannelID, ids)
	}
	if err != nil {
		h.log.Warn("Failed to delete messages", "component", "moderation", "channel", c.ChannelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	deleted := len(ids)
	if c.Message != nil && deleted > 0 {
		deleted--
	}
	count := strconv.Itoa(deleted)
	c.ReplyTemp(h.tr.T("cleared", "count", count), 3*time.Second)
	h.staffLog(h.tr.T("clear_log", "moderator", c.Mention(), "count", count, "channel", mentionChannel(c.ChannelID)))
}

func (h *Handler) cmdCases(c *Context) {
	userID := c.Arg("user")
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	cases, err := h.cases.ModCases(ctx, c.GuildID, userID, 10)
	if err != nil {
		h.log.Warn("Failed to load mod cases", "component", "moderation", "user", userID, "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	if len(cases) == 0 {
		c.Reply(h.tr.T("cases_empty", "user", mentionUser(userID)))
		return
	}
	lines := make([]string, 0, len(cases))
	for _, mc := range cases {
		reason := mc.Reason
		if mc.Duration != "" {
			reason = strings.TrimSpace(mc.Duration + " " + reason)
		}
		lines = append(lines, h.tr.T("case_line",
			"id", strconv.FormatInt(mc.ID, 10),
			"action", mc.Action,
			"moderator", mentionUser(mc.ModID),
			"date", mc.CreatedAt.Format("2006-01-02"),
			"reason", reason,
		))
	}
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       h.tr.T("cases_title", "user", userID),
		Description: truncate(strings.Join(lines, "\n\n"), 4000),
		Color:       colorRed,
	})
}

func (h *Handler) modFailed(c *Context, action, userID string, err error) {
	h.log.Warn("Moderation action failed", "component", "moderation", "action", action, "user", userID, "err", err)
	c.Reply(h.tr.T("mod_action_failed", "action", action, "user", mentionUser(userID), "error", err.Error()))
}

// recordCase stores the action in the audit log and publishes it.
func (h *Handler) recordCase(c *Context, userID, action, reason, duration string) {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	mc, err := h.cases.AddModCase(ctx, storage.ModCase{
		GuildID:   c.GuildID,
		UserID:    userID,
		ModID:     c.UserID(),
		Action:    action,
		Reason:    reason,
		Duration:  duration,
		CreatedAt: h.store.Now(),
	})
	if err != nil {
		h.log.Warn("Failed to record mod case", "component", "moderation", "action", action, "user", userID, "err", err)
		return
	}
	h.publish(events.Event{
		Type:    events.ModAction,
		GuildID: c.GuildID,
		UserID:  userID,
		ActorID: c.UserID(),
		Data: map[string]string{
			"case":     strconv.FormatInt(mc.ID, 10),
			"action":   action,
			"reason":   reason,
			"duration": duration,
		},
	})
}
