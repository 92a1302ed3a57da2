package handlers

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"prismbot/state"
)

func (h *Handler) economyCommands() []*Command {
	amountArg := Arg{Name: "amount", Description: "Amount, or all", Required: true}
	return []*Command{
		{
			Name:        "balance",
			Aliases:     []string{"bal"},
			Description: "Show a member's wallet and bank",
			Category:    "economy",
			Args:        []Arg{{Name: "user", Description: "Member to look up", Kind: ArgUser}},
			Run:         h.cmdBalance,
		},
		{
			Name:        "daily",
			Description: "Claim your daily reward",
			Category:    "economy",
			Run:         h.cmdDaily,
		},
		{
			Name:        "work",
			Description: "Work a shift for coins",
			Category:    "economy",
			Run:         h.cmdWork,
		},
		{
			Name:        "deposit",
			Aliases:     []string{"dep"},
			Description: "Move coins from your wallet to the bank",
			Category:    "economy",
			Args:        []Arg{amountArg},
			Run:         h.cmdDeposit,
		},
		{
			Name:        "withdraw",
			Description: "Move coins from the bank to your wallet",
			Category:    "economy",
			Args:        []Arg{amountArg},
			Run:         h.cmdWithdraw,
		},
		{
			Name:        "give",
			Aliases:     []string{"pay"},
			Description: "Give coins to another member",
			Category:    "economy",
			Args: []Arg{
				{Name: "user", Description: "Recipient", Kind: ArgUser, Required: true},
				{Name: "amount", Description: "Amount", Kind: ArgInt, Required: true},
			},
			Run: h.cmdGive,
		},
	}
}

// parseAmount accepts a positive integer or "all", which maps to -1.
func parseAmount(s string) (int64, bool) {
	if strings.EqualFold(s, "all") {
		return -1, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func money(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (h *Handler) cmdBalance(c *Context) {
	u, m := h.target(c)
	a := h.store.Account(u.ID)
	c.ReplyEmbed(&discordgo.MessageEmbed{
		Title: h.tr.T("balance_title", "name", displayName(u, m)),
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: h.tr.T("balance_wallet"), Value: "$" + money(a.Wallet), Inline: true},
			{Name: h.tr.T("balance_bank"), Value: "$" + money(a.Bank), Inline: true},
			{Name: h.tr.T("balance_total"), Value: "$" + money(a.Total()), Inline: true},
		},
	})
}

func (h *Handler) cmdDaily(c *Context) {
	eco := h.cfg.Economy
	claim, err := h.store.ClaimDaily(c.UserID(), state.Payout{Cooldown: eco.DailyCooldown, Min: eco.DailyMin, Max: eco.DailyMax})
	if errors.Is(err, state.ErrCooldown) {
		hours := int(math.Ceil(claim.Remaining.Hours()))
		c.Reply(h.tr.T("daily_cooldown", "hours", strconv.Itoa(hours)))
		return
	}
	c.Reply(h.tr.T("daily_claimed", "amount", money(claim.Amount)))
}

func (h *Handler) cmdWork(c *Context) {
	eco := h.cfg.Economy
	claim, err := h.store.ClaimWork(c.UserID(), state.Payout{Cooldown: eco.WorkCooldown, Min: eco.WorkMin, Max: eco.WorkMax})
	if errors.Is(err, state.ErrCooldown) {
		minutes := int(math.Ceil(claim.Remaining.Minutes()))
		c.Reply(h.tr.T("work_cooldown", "minutes", strconv.Itoa(minutes)))
		return
	}
	job := "worker"
	if len(eco.Jobs) > 0 {
		job = eco.Jobs[h.store.Pick(len(eco.Jobs))]
	}
	c.Reply(h.tr.T("work_done", "job", job, "amount", money(claim.Amount)))
}

func (h *Handler) cmdDeposit(c *Context) {
	amount, ok := parseAmount(c.Arg("amount"))
	if !ok {
		c.Reply(h.tr.T("invalid_amount"))
		return
	}
	moved, err := h.store.Deposit(c.UserID(), amount)
	switch {
	case errors.Is(err, state.ErrInsufficientFunds):
		c.Reply(h.tr.T("deposit_insufficient"))
	case err != nil:
		c.Reply(h.tr.T("invalid_amount"))
	default:
		c.Reply(h.tr.T("deposited", "amount", money(moved)))
	}
}

func (h *Handler) cmdWithdraw(c *Context) {
	amount, ok := parseAmount(c.Arg("amount"))
	if !ok {
		c.Reply(h.tr.T("invalid_amount"))
		return
	}
	moved, err := h.store.Withdraw(c.UserID(), amount)
	switch {
	case errors.Is(err, state.ErrInsufficientFunds):
		c.Reply(h.tr.T("withdraw_insufficient"))
	case err != nil:
		c.Reply(h.tr.T("invalid_amount"))
	default:
		c.Reply(h.tr.T("withdrew", "amount", money(moved)))
	}
}

func (h *Handler) cmdGive(c *Context) {
	to := c.Arg("user")
	amount := c.Int("amount", 0)
	err := h.store.Transfer(c.UserID(), to, amount)
	switch {
	case errors.Is(err, state.ErrSelfTransfer):
		c.Reply(h.tr.T("give_self"))
	case errors.Is(err, state.ErrInsufficientFunds):
		c.Reply(h.tr.T("give_insufficient"))
	case err != nil:
		c.Reply(h.tr.T("invalid_amount"))
	default:
		c.Reply(h.tr.T("gave", "amount", money(amount), "user", mentionUser(to)))
	}
}
