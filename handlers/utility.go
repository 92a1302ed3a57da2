package handlers

import (
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"prismbot/state"
)

const dateLayout = "January 02, 2006"

func (h *Handler) utilityCommands() []*Command {
	return []*Command{
		{
			Name:        "afk",
			Description: "Set your AFK status",
			Category:    "utility",
			Args:        []Arg{{Name: "reason", Description: "Why you are away", Kind: ArgText}},
			Run:         h.cmdAFK,
		},
		{
			Name:        "suggest",
			Description: "Submit a suggestion",
			Category:    "utility",
			Args:        []Arg{{Name: "suggestion", Description: "Your suggestion", Kind: ArgText, Required: true}},
			Run:         h.cmdSuggest,
		},
		{
			Name:        "serverinfo",
			Description: "Show information about this server",
			Category:    "utility",
			Run:         h.cmdServerInfo,
		},
		{
			Name:        "userinfo",
			Aliases:     []string{"whois"},
			Description: "Show information about a member",
			Category:    "utility",
			Args:        []Arg{{Name: "user", Description: "Member to look up", Kind: ArgUser}},
			Run:         h.cmdUserInfo,
		},
		{
			Name:        "botinfo",
			Description: "Show host and runtime statistics",
			Category:    "utility",
			Run:         h.cmdBotInfo,
		},
		{
			Name:        "embed",
			Description: "Build a custom embed",
			Category:    "utility",
			Run:         h.cmdEmbed,
		},
		{
			Name:        "announce",
			Description: "Post an announcement",
			Category:    "server",
			Perm:        PermStaff,
			Args:        []Arg{{Name: "message", Description: "Announcement text", Kind: ArgText, Required: true}},
			Run:         h.cmdAnnounce,
		},
		{
			Name:        "type",
			Aliases:     []string{"say"},
			Description: "Send a message as the bot",
			Category:    "server",
			Perm:        PermStaff,
			Args: []Arg{
				{Name: "channel", Description: "Target channel", Kind: ArgChannel, Required: true},
				{Name: "message", Description: "Message text", Kind: ArgText, Required: true},
			},
			Run: h.cmdType,
		},
		{
			Name:        "reactionrole",
			Description: "Grant a role when members react to a message",
			Category:    "server",
			Perm:        PermStaff,
			DenyKey:     "reactionrole_no_permission",
			Args: []Arg{
				{Name: "message_id", Description: "Message in this channel", Required: true},
				{Name: "emoji", Description: "Reaction emoji", Required: true},
				{Name: "role", Description: "Role to grant", Kind: ArgRole, Required: true},
			},
			Run: h.cmdReactionRole,
		},
		{
			Name:        "help",
			Description: "List commands",
			Category:    "utility",
			Args:        []Arg{{Name: "category", Description: "leveling, economy, moderation, fun, utility or server"}},
			Run:         h.cmdHelp,
		},
	}
}

func (h *Handler) cmdAFK(c *Context) {
	reason := c.Arg("reason")
	if reason == "" {
		reason = h.tr.T("afk_default")
	}
	h.store.SetAFK(c.UserID(), reason)
	c.ReplyTemp(h.tr.T("afk_set", "user", c.Mention(), "reason", reason), 5*time.Second)
}

func (h *Handler) cmdSuggest(c *Context) {
	channelID := h.cfg.Channels.Suggestions
	if channelID == "" {
		c.Reply(h.tr.T("suggestion_unconfigured"))
		return
	}
	n := h.store.NextSuggestion()
	msg, err := h.api.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       h.tr.T("suggestion_title", "number", strconv.Itoa(n)),
		Description: c.Arg("suggestion"),
		Color:       colorGold,
		Footer:      &discordgo.MessageEmbedFooter{Text: h.tr.T("suggestion_footer", "name", c.Author.Username)},
	})
	if err != nil {
		h.log.Warn("Failed to post suggestion", "component", "utility", "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	for _, e := range []string{"👍", "👎"} {
		if err := h.api.MessageReactionAdd(channelID, msg.ID, e); err != nil {
			h.log.Warn("Failed to react to suggestion", "component", "utility", "err", err)
		}
	}
	c.ReplyTemp(h.tr.T("suggestion_sent"), 5*time.Second)
}

func (h *Handler) cmdServerInfo(c *Context) {
	g, err := h.api.GuildWithCounts(c.GuildID)
	if err != nil {
		h.log.Warn("Failed to fetch guild", "component", "utility", "guild", c.GuildID, "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	channels := len(g.Channels)
	if chs, err := h.api.GuildChannels(c.GuildID); err == nil {
		channels = len(chs)
	}
	created := "-"
	if ts, err := discordgo.SnowflakeTimestamp(g.ID); err == nil {
		created = ts.Format(dateLayout)
	}
	embed := &discordgo.MessageEmbed{
		Title: h.tr.T("serverinfo_title", "guild", g.Name),
		Color: colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Owner", Value: mentionUser(g.OwnerID), Inline: true},
			{Name: "Members", Value: strconv.Itoa(g.ApproximateMemberCount), Inline: true},
			{Name: "Created", Value: created, Inline: true},
			{Name: "Roles", Value: strconv.Itoa(len(g.Roles)), Inline: true},
			{Name: "Channels", Value: strconv.Itoa(channels), Inline: true},
		},
	}
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL("")}
	}
	c.ReplyEmbed(embed)
}

func (h *Handler) cmdUserInfo(c *Context) {
	u, m := h.target(c)
	if m == nil {
		c.Reply(h.tr.T("member_not_found"))
		return
	}
	created := "-"
	if ts, err := discordgo.SnowflakeTimestamp(u.ID); err == nil {
		created = ts.Format(dateLayout)
	}
	joined := "-"
	if !m.JoinedAt.IsZero() {
		joined = m.JoinedAt.Format(dateLayout)
	}
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title:     h.tr.T("userinfo_title", "name", u.Username),
		Color:     colorBlue,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: u.ID, Inline: true},
			{Name: "Nickname", Value: displayName(u, m), Inline: true},
			{Name: "Joined", Value: joined, Inline: true},
			{Name: "Account Created", Value: created, Inline: true},
			{Name: "Roles", Value: strconv.Itoa(len(m.Roles)), Inline: true},
		},
	})
}

func (h *Handler) cmdBotInfo(c *Context) {
	fields := []*discordgo.MessageEmbedField{
		{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
		{Name: "🚀 Goroutines", Value: strconv.Itoa(runtime.NumGoroutine()), Inline: true},
		{Name: "⏱️ Uptime", Value: time.Since(h.started).Round(time.Second).String(), Inline: true},
	}
	if info, err := host.Info(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "💻 OS", Value: strings.TrimSpace(info.Platform + " " + info.PlatformVersion), Inline: true,
		})
	}
	if n, err := cpu.Counts(true); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🔼 CPUs", Value: strconv.Itoa(n), Inline: true})
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🔥 CPU", Value: fmt.Sprintf("%.1f%%", pct[0]), Inline: true})
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "🧠 Memory",
			Value:  fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024),
			Inline: true,
		})
	}
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title:  h.tr.T("botinfo_title"),
		Color:  colorBlue,
		Fields: fields,
	})
}

func (h *Handler) cmdEmbed(c *Context) {
	c.OpenModal(state.PromptEmbed, nil, "embed_prompt", "embed_button")
}

func (h *Handler) embedFlow() modalFlow {
	return modalFlow{
		titleKey: "embed_modal_title",
		inputs: func() []discordgo.TextInput {
			return []discordgo.TextInput{
				{CustomID: "title", Label: h.tr.T("embed_title_label"), Style: discordgo.TextInputShort, Placeholder: h.tr.T("embed_title_placeholder"), Required: true, MaxLength: 256},
				{CustomID: "description", Label: h.tr.T("embed_description_label"), Style: discordgo.TextInputParagraph, Placeholder: h.tr.T("embed_description_placeholder"), Required: true, MaxLength: 4000},
				{CustomID: "color", Label: h.tr.T("embed_color_label"), Style: discordgo.TextInputShort, Placeholder: h.tr.T("embed_color_placeholder"), MaxLength: 7},
			}
		},
		submit: func(c *Context, values map[string]string, _ state.Prompt) {
			c.ReplyEmbed(&discordgo.MessageEmbed{
				Title:       values["title"],
				Description: values["description"],
				Color:       parseColor(values["color"], colorBlue),
			})
		},
	}
}

// parseColor reads "#RRGGBB" or "RRGGBB", falling back to def.
func parseColor(s string, def int) int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return def
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil || n > 0xFFFFFF {
		return def
	}
	return int(n)
}

func (h *Handler) cmdAnnounce(c *Context) {
	channelID := h.cfg.Channels.Announcements
	if channelID == "" {
		channelID = c.ChannelID
	}
	_, err := h.api.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Description: c.Arg("message"),
		Color:       colorOrange,
	})
	if err != nil {
		h.log.Warn("Failed to post announcement", "component", "utility", "channel", channelID, "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	c.ReplyTemp(h.tr.T("announcement_sent"), 3*time.Second)
}

func (h *Handler) cmdType(c *Context) {
	channelID := c.Arg("channel")
	if _, err := h.api.ChannelMessageSend(channelID, c.Arg("message")); err != nil {
		h.log.Warn("Failed to send message", "component", "utility", "channel", channelID, "err", err)
		c.Reply(h.tr.T("generic_error"))
		return
	}
	c.ReplyTemp(h.tr.T("type_sent", "channel", mentionChannel(channelID)), 3*time.Second)
}

// emojiKey turns a typed emoji into the form reactions report: unicode as
// is, custom emoji "<:name:id>" as "name:id".
func emojiKey(s string) string {
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<"), ">")
		s = strings.TrimPrefix(s, "a")
		s = strings.TrimPrefix(s, ":")
	}
	return s
}

func (h *Handler) cmdReactionRole(c *Context) {
	messageID := c.Arg("message_id")
	if _, err := h.api.ChannelMessage(c.ChannelID, messageID); err != nil {
		c.Reply(h.tr.T("message_not_found"))
		return
	}
	emoji := emojiKey(c.Arg("emoji"))
	roleID := c.Arg("role")
	if err := h.api.MessageReactionAdd(c.ChannelID, messageID, emoji); err != nil {
		h.log.Warn("Failed to add reaction", "component", "reactionroles", "message", messageID, "err", err)
	}
	h.store.BindReactionRole(messageID, emoji, roleID)
	c.ReplyTemp(h.tr.T("reactionrole_set", "emoji", c.Arg("emoji"), "role", mentionRole(roleID)), 5*time.Second)
}

var helpCategories = []string{"leveling", "economy", "moderation", "fun", "utility", "server"}

func (h *Handler) cmdHelp(c *Context) {
	prefix := h.cfg.Discord.Prefix
	category := strings.ToLower(c.Arg("category"))
	if category == "" {
		embed := &discordgo.MessageEmbed{
			Title:       h.tr.T("help_title"),
			Description: h.tr.T("help_description", "prefix", prefix),
			Color:       colorOrange,
			Footer:      &discordgo.MessageEmbedFooter{Text: h.tr.T("help_footer", "name", c.Author.Username)},
		}
		for _, cat := range helpCategories {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   h.tr.T("help_" + cat),
				Value:  "`" + prefix + "help " + cat + "`",
				Inline: true,
			})
		}
		c.ReplyEmbed(embed)
		return
	}

	if !slices.Contains(helpCategories, category) {
		c.Reply(h.tr.T("help_invalid"))
		return
	}
	embed := &discordgo.MessageEmbed{Title: h.tr.T("help_" + category), Color: colorBlue}
	for _, cmd := range h.order {
		if cmd.Category != category {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  cmd.Usage(prefix),
			Value: cmd.Description,
		})
	}
	c.ReplyEmbed(embed)
}
