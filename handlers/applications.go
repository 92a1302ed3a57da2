package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/events"
)

func (h *Handler) applicationCommands() []*Command {
	return []*Command{
		{
			Name:        "apply",
			Description: "Apply for staff through direct messages",
			Category:    "server",
			Run:         h.cmdApply,
		},
	}
}

func (h *Handler) cmdApply(c *Context) {
	userID := c.UserID()
	if err := h.store.BeginApplication(userID); err != nil {
		c.ReplyPrivate(h.tr.T("application_active"))
		return
	}
	inbox, err := h.waiter.Open(userID)
	if err != nil {
		h.store.AbandonApplication(userID)
		c.ReplyPrivate(h.tr.T("application_active"))
		return
	}
	dm, err := h.api.UserChannelCreate(userID)
	if err == nil {
		_, err = h.api.ChannelMessageSend(dm.ID, h.tr.T("application_started"))
	}
	if err != nil {
		h.log.Info("Cannot DM applicant", "component", "applications", "user", userID, "err", err)
		inbox.Close()
		h.store.AbandonApplication(userID)
		c.ReplyPrivate(h.tr.T("dm_forbidden"))
		return
	}
	c.ReplyPrivate(h.tr.T("application_check_dms"))

	go h.runApplication(dm.ID, c.Author, inbox)
}

// runApplication walks the applicant through the questionnaire in their DMs.
// A question left unanswered past the answer timeout abandons the whole
// application.
func (h *Handler) runApplication(dmID string, user *discordgo.User, inbox *Inbox) {
	defer inbox.Close()
	questions := h.cfg.Applications.Questions
	total := strconv.Itoa(len(questions))
	answers := make([]string, 0, len(questions))

	for idx, q := range questions {
		_, err := h.api.ChannelMessageSendEmbed(dmID, &discordgo.MessageEmbed{
			Title:       h.tr.T("application_question_title", "index", strconv.Itoa(idx+1), "total", total),
			Description: q,
			Color:       colorBlue,
		})
		if err != nil {
			h.log.Warn("Failed to send application question", "component", "applications", "user", user.ID, "err", err)
			h.store.AbandonApplication(user.ID)
			return
		}
		answer, err := inbox.Next(h.ctx, h.cfg.Applications.AnswerTimeout)
		if err != nil {
			h.store.AbandonApplication(user.ID)
			if errors.Is(err, ErrWaitTimeout) {
				_, _ = h.api.ChannelMessageSend(dmID, h.tr.T("application_timed_out"))
			}
			h.log.Info("Application abandoned", "component", "applications", "user", user.ID, "question", idx+1, "err", err)
			return
		}
		answers = append(answers, answer)
	}

	if err := h.store.SubmitApplication(user.ID, answers); err != nil {
		h.log.Warn("Failed to submit application", "component", "applications", "user", user.ID, "err", err)
		return
	}
	h.postReview(user, questions, answers)
	_, _ = h.api.ChannelMessageSend(dmID, h.tr.T("application_submitted"))
}

func (h *Handler) postReview(user *discordgo.User, questions, answers []string) {
	channelID := h.cfg.Channels.Applications
	if channelID == "" {
		h.log.Warn("No application channel configured", "component", "applications", "user", user.ID)
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       h.tr.T("application_review_title"),
		Description: h.tr.T("application_review_description", "user", mentionUser(user.ID)),
		Color:       colorPurple,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Timestamp:   h.store.Now().Format(time.RFC3339),
	}
	for idx, q := range questions {
		answer := answers[idx]
		if answer == "" {
			answer = "-"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  truncate(strconv.Itoa(idx+1)+". "+q, 256),
			Value: truncate(answer, 1024),
		})
	}
	msg, err := h.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: h.reviewButtons(user.ID, false),
	})
	if err != nil {
		h.log.Warn("Failed to post application", "component", "applications", "user", user.ID, "err", err)
		return
	}
	h.store.AttachReview(user.ID, channelID, msg.ID)
}

func (h *Handler) reviewButtons(userID string, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: h.tr.T("application_accept_button"), Style: discordgo.SuccessButton, CustomID: "app:accept:" + userID, Disabled: disabled},
			discordgo.Button{Label: h.tr.T("application_deny_button"), Style: discordgo.DangerButton, CustomID: "app:deny:" + userID, Disabled: disabled},
		}},
	}
}

func (h *Handler) canReview(c *Context) bool {
	return hasRole(c.Member, h.cfg.Roles.Reviewer) || h.isAdmin(c.GuildID, c.Member)
}

func (h *Handler) openReviewModal(c *Context, userID string, accepted bool) {
	if !h.canReview(c) {
		c.ReplyPrivate(h.tr.T("application_reviewer_required"))
		return
	}
	app, ok := h.store.Application(userID)
	if !ok || app.ReviewMessageID == "" || (c.Interaction.Message != nil && c.Interaction.Message.ID != app.ReviewMessageID) {
		c.ReplyPrivate(h.tr.T("application_already_reviewed"))
		return
	}

	customID, title, label := "app:deny:"+userID, "application_deny_modal_title", "application_deny_label"
	if accepted {
		customID, title, label = "app:accept:"+userID, "application_accept_modal_title", "application_accept_label"
	}
	c.responded = true
	err := h.api.InteractionRespond(c.Interaction, modalResponse(customID, h.tr.T(title), []discordgo.TextInput{{
		CustomID:  "reason",
		Label:     h.tr.T(label),
		Style:     discordgo.TextInputParagraph,
		Required:  true,
		MaxLength: 1000,
	}}))
	if err != nil {
		h.log.Warn("Failed to open review modal", "component", "applications", "err", err)
	}
}

func (h *Handler) reviewApplication(c *Context, userID string, accepted bool, reason string) {
	if !h.canReview(c) {
		c.ReplyPrivate(h.tr.T("application_reviewer_required"))
		return
	}
	app, err := h.store.ResolveApplication(userID, c.UserID(), accepted, reason)
	if err != nil {
		c.ReplyPrivate(h.tr.T("application_already_reviewed"))
		return
	}

	components := h.reviewButtons(userID, true)
	if _, err := h.api.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         app.ReviewMessageID,
		Channel:    app.ReviewChannelID,
		Components: &components,
	}); err != nil {
		h.log.Warn("Failed to disable review buttons", "component", "applications", "err", err)
	}

	key, dmKey := "application_denied", "application_denied_dm"
	if accepted {
		key, dmKey = "application_accepted", "application_accepted_dm"
	}
	c.Reply(h.tr.T(key, "user", mentionUser(userID), "reviewer", c.Mention(), "reason", reason))

	guildName := c.GuildID
	if g, err := h.api.Guild(c.GuildID); err == nil {
		guildName = g.Name
	}
	if dm, err := h.api.UserChannelCreate(userID); err == nil {
		if _, err := h.api.ChannelMessageSend(dm.ID, h.tr.T(dmKey, "guild", guildName, "reason", reason)); err != nil {
			h.log.Info("Cannot DM applicant", "component", "applications", "user", userID, "err", err)
		}
	}
	h.publish(events.Event{
		Type:    events.ApplicationResolved,
		GuildID: c.GuildID,
		UserID:  userID,
		ActorID: c.UserID(),
		Data: map[string]string{
			"accepted": strconv.FormatBool(accepted),
			"reason":   reason,
		},
	})
}
