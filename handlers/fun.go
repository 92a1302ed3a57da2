package handlers

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var eightBallAnswers = []string{
	"Yes, definitely!",
	"It is certain.",
	"Without a doubt.",
	"Most likely.",
	"Ask again later.",
	"Cannot predict now.",
	"Don't count on it.",
	"My sources say no.",
	"Very doubtful.",
	"Outlook not so good.",
}

var memes = []string{
	"This is fine. 🔥🐶🔥",
	"It is what it is.",
	"Anyways...",
	"So true bestie.",
	"Not me...",
	"💀💀💀",
}

var pollEmojis = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

func (h *Handler) funCommands() []*Command {
	return []*Command{
		{
			Name:        "8ball",
			Description: "Ask the magic 8-ball",
			Category:    "fun",
			Args:        []Arg{{Name: "question", Description: "Your question", Kind: ArgText, Required: true}},
			Run:         h.cmdEightBall,
		},
		{
			Name:        "coinflip",
			Aliases:     []string{"flip"},
			Description: "Flip a coin",
			Category:    "fun",
			Run:         h.cmdCoinflip,
		},
		{
			Name:        "dice",
			Aliases:     []string{"roll"},
			Description: "Roll a die (default d6)",
			Category:    "fun",
			Args:        []Arg{{Name: "sides", Description: "Number of sides", Kind: ArgInt}},
			Run:         h.cmdDice,
		},
		{
			Name:        "rate",
			Description: "Rate something out of 100",
			Category:    "fun",
			Args:        []Arg{{Name: "thing", Description: "What to rate", Kind: ArgText, Required: true}},
			Run:         h.cmdRate,
		},
		{
			Name:        "meme",
			Description: "Get a random meme phrase",
			Category:    "fun",
			Run:         h.cmdMeme,
		},
		{
			Name:        "poll",
			Description: "Create a poll: question | option | option ...",
			Category:    "fun",
			Args:        []Arg{{Name: "poll", Description: "question | option 1 | option 2 ...", Kind: ArgText, Required: true}},
			Run:         h.cmdPoll,
		},
	}
}

func (h *Handler) cmdEightBall(c *Context) {
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title: h.tr.T("eightball_title"),
		Color: colorPurple,
		Fields: []*discordgo.MessageEmbedField{
			{Name: h.tr.T("eightball_question"), Value: truncate(c.Arg("question"), 1024)},
			{Name: h.tr.T("eightball_answer"), Value: eightBallAnswers[h.store.Pick(len(eightBallAnswers))]},
		},
	})
}

func (h *Handler) cmdCoinflip(c *Context) {
	side := h.tr.T("coin_heads")
	if h.store.Pick(2) == 1 {
		side = h.tr.T("coin_tails")
	}
	c.Reply(h.tr.T("coinflip", "side", side))
}

func (h *Handler) cmdDice(c *Context) {
	sides := c.Int("sides", 6)
	if sides < 2 {
		c.Reply(h.tr.T("dice_invalid"))
		return
	}
	roll := h.store.Roll(1, sides)
	c.Reply(h.tr.T("dice", "roll", strconv.FormatInt(roll, 10), "sides", strconv.FormatInt(sides, 10)))
}

func (h *Handler) cmdRate(c *Context) {
	score := h.store.Roll(0, 100)
	c.Reply(h.tr.T("rate", "thing", c.Arg("thing"), "score", strconv.FormatInt(score, 10)))
}

func (h *Handler) cmdMeme(c *Context) {
	c.Reply(memes[h.store.Pick(len(memes))])
}

// splitPoll separates the question from its options. Parts are split on "|"
// when present, otherwise on whitespace with double quotes grouping words.
func splitPoll(raw string) (string, []string) {
	var parts []string
	if strings.Contains(raw, "|") {
		for _, p := range strings.Split(raw, "|") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	} else {
		for _, t := range tokenize(raw) {
			parts = append(parts, t.text)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

func (h *Handler) cmdPoll(c *Context) {
	question, options := splitPoll(c.Arg("poll"))
	if len(options) < 2 {
		c.Reply(h.tr.T("poll_too_few"))
		return
	}
	if len(options) > len(pollEmojis) {
		c.Reply(h.tr.T("poll_too_many"))
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       h.tr.T("poll_title"),
		Description: question,
		Color:       colorBlue,
	}
	for idx, opt := range options {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  pollEmojis[idx] + " " + truncate(opt, 240),
			Value: "\u200b",
		})
	}
	msg, err := c.Post(c.ChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		h.log.Warn("Failed to post poll", "component", "fun", "channel", c.ChannelID, "err", err)
		c.ReplyPrivate(h.tr.T("generic_error"))
		return
	}
	for idx := range options {
		if err := h.api.MessageReactionAdd(c.ChannelID, msg.ID, pollEmojis[idx]); err != nil {
			h.log.Warn("Failed to add poll reaction", "component", "fun", "err", err)
		}
	}
}
