package handlers

import (
	"errors"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"

	"prismbot/state"
)

// dispatchText runs a prefixed text command. It reports whether m was one.
func (h *Handler) dispatchText(m *discordgo.Message) bool {
	prefix := h.cfg.Discord.Prefix
	if prefix == "" || !strings.HasPrefix(m.Content, prefix) {
		return false
	}
	body := strings.TrimPrefix(m.Content, prefix)
	name, raw := body, ""
	if idx := strings.IndexFunc(body, unicode.IsSpace); idx >= 0 {
		name, raw = body[:idx], strings.TrimSpace(body[idx:])
	}
	cmd, ok := h.lookup(name)
	if !ok {
		return false
	}

	c := h.messageContext(m, nil)
	if !h.allowed(cmd, c.Member) {
		c.Reply(h.denyMessage(cmd))
		return true
	}
	args, err := parseTextArgs(cmd, raw)
	if err != nil {
		var ae *argError
		if errors.As(err, &ae) && !ae.missing {
			c.Reply(h.tr.T("invalid_argument", "arg", ae.arg))
		} else {
			c.Reply(h.tr.T("usage", "usage", cmd.Usage(prefix)))
		}
		return true
	}
	c.args = args
	h.log.Debug("Running command", "component", "dispatch", "command", cmd.Name, "user", c.UserID())
	cmd.Run(c)
	return true
}

func (h *Handler) dispatchSlash(i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	cmd, ok := h.lookup(data.Name)
	if !ok {
		h.log.Warn("Unknown command", "component", "dispatch", "command", data.Name)
		return
	}
	c := h.interactionContext(i, parseSlashArgs(data.Options))
	if !h.allowed(cmd, c.Member) {
		c.ReplyPrivate(h.denyMessage(cmd))
		return
	}
	cmd.Run(c)
	if !c.responded {
		c.ReplyPrivate(h.tr.T("done"))
	}
}

func (h *Handler) OnInteractionCreate(ic *discordgo.InteractionCreate) {
	i := ic.Interaction
	if i.GuildID == "" {
		return
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.dispatchSlash(i)
	case discordgo.InteractionMessageComponent:
		h.handleComponent(i)
	case discordgo.InteractionModalSubmit:
		h.handleModal(i)
	}
}

func (h *Handler) handleComponent(i *discordgo.Interaction) {
	customID := i.MessageComponentData().CustomID
	c := h.interactionContext(i, nil)

	switch {
	case customID == "ticket:create":
		h.openTicketModal(c)
	case strings.HasPrefix(customID, "prompt:"):
		h.openPromptModal(c, strings.TrimPrefix(customID, "prompt:"))
	case strings.HasPrefix(customID, "session:link:"):
		h.revealSessionLink(c, strings.TrimPrefix(customID, "session:link:"))
	case strings.HasPrefix(customID, "app:accept:"):
		h.openReviewModal(c, strings.TrimPrefix(customID, "app:accept:"), true)
	case strings.HasPrefix(customID, "app:deny:"):
		h.openReviewModal(c, strings.TrimPrefix(customID, "app:deny:"), false)
	default:
		h.log.Warn("Unknown component", "component", "dispatch", "custom_id", customID)
	}
}

func (h *Handler) handleModal(i *discordgo.Interaction) {
	data := i.ModalSubmitData()
	values := modalValues(data)
	c := h.interactionContext(i, nil)

	switch {
	case data.CustomID == "ticket:reason":
		h.createTicket(c, values["reason"])
	case strings.HasPrefix(data.CustomID, "modal:"):
		h.submitPrompt(c, strings.TrimPrefix(data.CustomID, "modal:"), values)
	case strings.HasPrefix(data.CustomID, "app:accept:"):
		h.reviewApplication(c, strings.TrimPrefix(data.CustomID, "app:accept:"), true, values["reason"])
	case strings.HasPrefix(data.CustomID, "app:deny:"):
		h.reviewApplication(c, strings.TrimPrefix(data.CustomID, "app:deny:"), false, values["reason"])
	default:
		h.log.Warn("Unknown modal", "component", "dispatch", "custom_id", data.CustomID)
	}
}

// modalFlow is a button-then-modal interaction started by a command.
type modalFlow struct {
	titleKey string
	inputs   func() []discordgo.TextInput
	submit   func(c *Context, values map[string]string, p state.Prompt)
}

func (f modalFlow) response(h *Handler, customID string) *discordgo.InteractionResponse {
	return modalResponse(customID, h.tr.T(f.titleKey), f.inputs())
}

func modalResponse(customID, title string, inputs []discordgo.TextInput) *discordgo.InteractionResponse {
	rows := make([]discordgo.MessageComponent, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{in}})
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	}
}

func (h *Handler) modalFlows() map[state.PromptKind]modalFlow {
	return map[state.PromptKind]modalFlow{
		state.PromptStartup:      h.startupFlow(),
		state.PromptEarlyRelease: h.earlyReleaseFlow(),
		state.PromptRelease:      h.releaseFlow(),
		state.PromptGiveaway:     h.giveawayFlow(),
		state.PromptEmbed:        h.embedFlow(),
	}
}

func (h *Handler) promptError(c *Context, err error) {
	switch {
	case errors.Is(err, state.ErrPromptOwner):
		c.ReplyPrivate(h.tr.T("prompt_not_yours"))
	case errors.Is(err, state.ErrPromptExpired), errors.Is(err, state.ErrPromptNotFound):
		c.ReplyPrivate(h.tr.T("prompt_expired"))
	default:
		c.ReplyPrivate(h.tr.T("generic_error"))
	}
}

func (h *Handler) openPromptModal(c *Context, token string) {
	p, err := h.store.OpenPrompt(token, c.UserID(), h.cfg.Sessions.ModalTimeout)
	if err != nil {
		h.promptError(c, err)
		return
	}
	flow, ok := h.flows[p.Kind]
	if !ok {
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	c.responded = true
	if err := h.api.InteractionRespond(c.Interaction, flow.response(h, "modal:"+p.Token)); err != nil {
		h.log.Warn("Failed to open modal", "component", "dispatch", "kind", p.Kind, "err", err)
	}
}

func (h *Handler) submitPrompt(c *Context, token string, values map[string]string) {
	p, err := h.store.TakePrompt(token, c.UserID())
	if err != nil {
		h.promptError(c, err)
		return
	}
	flow, ok := h.flows[p.Kind]
	if !ok {
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	if p.MessageID != "" {
		_ = h.api.ChannelMessageDelete(p.ChannelID, p.MessageID)
	}
	flow.submit(c, values, p)
}

// PrunePrompts drops expired prompts and removes the buttons posted for them.
func (h *Handler) PrunePrompts() {
	for _, p := range h.store.PrunePrompts() {
		if p.MessageID == "" {
			continue
		}
		if err := h.api.ChannelMessageDelete(p.ChannelID, p.MessageID); err != nil {
			h.log.Debug("Prompt message already gone", "component", "dispatch", "message", p.MessageID, "err", err)
		}
	}
}

func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	out := make(map[string]string)
	for _, comp := range data.Components {
		row, ok := comp.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if in, ok := inner.(*discordgo.TextInput); ok {
				out[in.CustomID] = strings.TrimSpace(in.Value)
			}
		}
	}
	return out
}
