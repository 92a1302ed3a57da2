package handlers

import (
	"slices"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

type Perm int

const (
	PermEveryone Perm = iota
	PermStaff
	PermSessionHost
	PermReviewer
)

type ArgKind int

const (
	ArgString ArgKind = iota
	// ArgText swallows the rest of the message.
	ArgText
	ArgInt
	ArgUser
	ArgRole
	ArgChannel
)

type Arg struct {
	Name        string
	Description string
	Kind        ArgKind
	Required    bool
}

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Category    string
	Perm        Perm
	// DenyKey overrides the permission-denied message.
	DenyKey string
	Args    []Arg
	Run     func(c *Context)
}

// Usage renders the text-command syntax, e.g. "warn <user> [reason]".
func (cmd *Command) Usage(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix + cmd.Name)
	for _, a := range cmd.Args {
		if a.Required {
			b.WriteString(" <" + a.Name + ">")
		} else {
			b.WriteString(" [" + a.Name + "]")
		}
	}
	return b.String()
}

func (h *Handler) registerCommands() {
	h.commands = make(map[string]*Command)
	h.order = nil
	groups := [][]*Command{
		h.ticketCommands(),
		h.moderationCommands(),
		h.sessionCommands(),
		h.applicationCommands(),
		h.giveawayCommands(),
		h.levelingCommands(),
		h.economyCommands(),
		h.funCommands(),
		h.utilityCommands(),
	}
	for _, g := range groups {
		for _, cmd := range g {
			h.order = append(h.order, cmd)
			h.commands[cmd.Name] = cmd
			for _, alias := range cmd.Aliases {
				h.commands[alias] = cmd
			}
		}
	}
}

func (h *Handler) lookup(name string) (*Command, bool) {
	cmd, ok := h.commands[strings.ToLower(name)]
	return cmd, ok
}

// allowed reports whether member may run cmd. Gated commands need the
// configured role itself; Administrator alone is not enough.
func (h *Handler) allowed(cmd *Command, m *discordgo.Member) bool {
	switch cmd.Perm {
	case PermEveryone:
		return true
	case PermStaff:
		return hasRole(m, h.cfg.Roles.Staff)
	case PermSessionHost:
		return hasRole(m, h.cfg.Roles.SessionHost)
	case PermReviewer:
		return hasRole(m, h.cfg.Roles.Reviewer)
	}
	return false
}

// isAdmin trusts interaction permissions when present. Message events carry
// none, so the member's roles are resolved against the guild.
func (h *Handler) isAdmin(guildID string, m *discordgo.Member) bool {
	if m == nil {
		return false
	}
	if m.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	if guildID == "" || len(m.Roles) == 0 {
		return false
	}
	roles, err := h.api.GuildRoles(guildID)
	if err != nil {
		h.log.Warn("Failed to fetch roles", "component", "dispatch", "guild", guildID, "err", err)
		return false
	}
	for _, r := range roles {
		if r.Permissions&discordgo.PermissionAdministrator != 0 && slices.Contains(m.Roles, r.ID) {
			return true
		}
	}
	return false
}

func (h *Handler) denyMessage(cmd *Command) string {
	if cmd.DenyKey != "" {
		return h.tr.T(cmd.DenyKey)
	}
	return h.tr.T("no_permission")
}

// SlashCommands describes every registered command for bulk overwrite.
func (h *Handler) SlashCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(h.order))
	for _, cmd := range h.order {
		ac := &discordgo.ApplicationCommand{
			Name:        cmd.Name,
			Description: truncate(cmd.Description, 100),
		}
		args := make([]Arg, len(cmd.Args))
		copy(args, cmd.Args)
		// Discord rejects optional options listed before required ones.
		sort.SliceStable(args, func(i, j int) bool { return args[i].Required && !args[j].Required })
		for _, a := range args {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        optionType(a.Kind),
				Name:        a.Name,
				Description: truncate(a.Description, 100),
				Required:    a.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}

func optionType(k ArgKind) discordgo.ApplicationCommandOptionType {
	switch k {
	case ArgInt:
		return discordgo.ApplicationCommandOptionInteger
	case ArgUser:
		return discordgo.ApplicationCommandOptionUser
	case ArgRole:
		return discordgo.ApplicationCommandOptionRole
	case ArgChannel:
		return discordgo.ApplicationCommandOptionChannel
	default:
		return discordgo.ApplicationCommandOptionString
	}
}
