package handlers

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/state"
)

// Context is one invocation of a command, from either a prefixed message or
// an interaction. Replies go back through whichever surface it came from.
type Context struct {
	h           *Handler
	GuildID     string
	ChannelID   string
	Author      *discordgo.User
	Member      *discordgo.Member
	Message     *discordgo.Message
	Interaction *discordgo.Interaction
	args        map[string]string
	responded   bool
}

func (h *Handler) messageContext(m *discordgo.Message, args map[string]string) *Context {
	member := m.Member
	if member != nil && member.User == nil {
		member.User = m.Author
	}
	return &Context{
		h:         h,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Author:    m.Author,
		Member:    member,
		Message:   m,
		args:      args,
	}
}

func (h *Handler) interactionContext(i *discordgo.Interaction, args map[string]string) *Context {
	c := &Context{
		h:           h,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Member:      i.Member,
		Interaction: i,
		args:        args,
	}
	if i.Member != nil {
		c.Author = i.Member.User
	} else {
		c.Author = i.User
	}
	return c
}

func (c *Context) UserID() string {
	if c.Author == nil {
		return ""
	}
	return c.Author.ID
}

func (c *Context) Mention() string {
	return mentionUser(c.UserID())
}

func (c *Context) Name() string {
	return displayName(c.Author, c.Member)
}

func (c *Context) T(key string, pairs ...string) string {
	return c.h.tr.T(key, pairs...)
}

func (c *Context) Arg(name string) string {
	return c.args[name]
}

func (c *Context) Has(name string) bool {
	_, ok := c.args[name]
	return ok
}

func (c *Context) Int(name string, def int64) int64 {
	v, ok := c.args[name]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func (c *Context) Reply(content string) *discordgo.Message {
	return c.Send(&discordgo.MessageSend{Content: content}, false)
}

// ReplyPrivate is ephemeral for interactions and a plain reply otherwise.
func (c *Context) ReplyPrivate(content string) {
	c.Send(&discordgo.MessageSend{Content: content}, true)
}

func (c *Context) ReplyEmbed(embed *discordgo.MessageEmbed) *discordgo.Message {
	return c.Send(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}, false)
}

// ReplyTemp replies and removes the reply after d. Interactions get an
// ephemeral reply instead.
func (c *Context) ReplyTemp(content string, d time.Duration) {
	if c.Interaction != nil {
		c.ReplyPrivate(content)
		return
	}
	if msg := c.Reply(content); msg != nil {
		c.h.deleteLater(msg.ChannelID, msg.ID, d)
	}
}

// Send delivers ms. The first reply to an interaction is its response and
// yields no message; later ones are follow-ups.
func (c *Context) Send(ms *discordgo.MessageSend, ephemeral bool) *discordgo.Message {
	if c.Interaction == nil {
		msg, err := c.h.api.ChannelMessageSendComplex(c.ChannelID, ms)
		if err != nil {
			c.h.log.Warn("Failed to reply", "component", "dispatch", "channel", c.ChannelID, "err", err)
			return nil
		}
		return msg
	}

	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if !c.responded {
		c.responded = true
		err := c.h.api.InteractionRespond(c.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         ms.Content,
				Embeds:          ms.Embeds,
				Components:      ms.Components,
				AllowedMentions: ms.AllowedMentions,
				Flags:           flags,
			},
		})
		if err != nil {
			c.h.log.Warn("Failed to respond", "component", "dispatch", "err", err)
		}
		return nil
	}
	msg, err := c.h.api.FollowupMessageCreate(c.Interaction, true, &discordgo.WebhookParams{
		Content:         ms.Content,
		Embeds:          ms.Embeds,
		Components:      ms.Components,
		AllowedMentions: ms.AllowedMentions,
		Flags:           flags,
	})
	if err != nil {
		c.h.log.Warn("Failed to send follow-up", "component", "dispatch", "err", err)
		return nil
	}
	return msg
}

// Post always creates a real channel message, so the caller gets an id it
// can react to or reference later.
func (c *Context) Post(channelID string, ms *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.h.api.ChannelMessageSendComplex(channelID, ms)
}

// OpenModal starts a modal flow. Interactions get the modal directly; text
// commands get a button that opens it, valid for the prompt timeout and only
// for the invoking user.
func (c *Context) OpenModal(kind state.PromptKind, data map[string]string, promptKey, buttonKey string) {
	h := c.h
	flow, ok := h.flows[kind]
	if !ok {
		h.log.Error("No modal flow registered", "component", "dispatch", "kind", kind)
		return
	}

	if c.Interaction != nil {
		p := h.store.RegisterPrompt(kind, c.UserID(), c.ChannelID, h.cfg.Sessions.ModalTimeout, data)
		c.responded = true
		if err := h.api.InteractionRespond(c.Interaction, flow.response(h, "modal:"+p.Token)); err != nil {
			h.log.Warn("Failed to open modal", "component", "dispatch", "kind", kind, "err", err)
		}
		return
	}

	p := h.store.RegisterPrompt(kind, c.UserID(), c.ChannelID, h.cfg.Sessions.PromptTimeout, data)
	msg := c.Send(&discordgo.MessageSend{
		Content: c.T(promptKey),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: c.T(buttonKey), Style: discordgo.PrimaryButton, CustomID: "prompt:" + p.Token},
			}},
		},
	}, false)
	if msg != nil {
		h.store.AttachPromptMessage(p.Token, msg.ID)
	}
}
