package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const leaderboardSize = 10

func (h *Handler) levelingCommands() []*Command {
	return []*Command{
		{
			Name:        "rank",
			Aliases:     []string{"level"},
			Description: "Show a member's level and xp",
			Category:    "leveling",
			Args:        []Arg{{Name: "user", Description: "Member to look up", Kind: ArgUser}},
			Run:         h.cmdRank,
		},
		{
			Name:        "leaderboard",
			Aliases:     []string{"lb", "top"},
			Description: "Show the top members by level or balance",
			Category:    "leveling",
			Args:        []Arg{{Name: "category", Description: "levels or economy"}},
			Run:         h.cmdLeaderboard,
		},
	}
}

// target resolves the optional user argument, defaulting to the author.
func (h *Handler) target(c *Context) (*discordgo.User, *discordgo.Member) {
	id := c.Arg("user")
	if id == "" || id == c.UserID() {
		return c.Author, c.Member
	}
	if m, err := h.api.GuildMember(c.GuildID, id); err == nil {
		return m.User, m
	}
	if u, err := h.api.User(id); err == nil {
		return u, nil
	}
	return &discordgo.User{ID: id, Username: id}, nil
}

func (h *Handler) cmdRank(c *Context) {
	u, m := h.target(c)
	r := h.store.Rank(u.ID)
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title:     h.tr.T("rank_title", "name", displayName(u, m)),
		Color:     colorPurple,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: h.tr.T("rank_level"), Value: strconv.Itoa(r.Level), Inline: true},
			{Name: h.tr.T("rank_xp"), Value: fmt.Sprintf("%d/%d", r.XP, r.Needed()), Inline: true},
		},
	})
}

func (h *Handler) cmdLeaderboard(c *Context) {
	var (
		title string
		lines []string
	)
	switch strings.ToLower(c.Arg("category")) {
	case "", "levels", "level":
		title = h.tr.T("leaderboard_levels_title")
		for idx, e := range h.store.TopLevels(leaderboardSize) {
			lines = append(lines, fmt.Sprintf("**%d.** %s - %s", idx+1, mentionUser(e.UserID),
				h.tr.T("leaderboard_levels_entry", "level", strconv.Itoa(e.Level), "xp", strconv.Itoa(e.XP))))
		}
	case "economy", "money", "balance":
		title = h.tr.T("leaderboard_economy_title")
		for idx, e := range h.store.TopBalances(leaderboardSize) {
			lines = append(lines, fmt.Sprintf("**%d.** %s - %s", idx+1, mentionUser(e.UserID),
				h.tr.T("leaderboard_economy_entry", "total", strconv.FormatInt(e.Total(), 10))))
		}
	default:
		c.Reply(h.tr.T("leaderboard_invalid"))
		return
	}
	desc := strings.Join(lines, "\n")
	if desc == "" {
		desc = h.tr.T("leaderboard_empty")
	}
	c.ReplyEmbed(&discordgo.MessageEmbed{Title: title, Description: desc, Color: colorGold})
}
