package handlers

import (
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestTicketButtonCreatesChannel(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("2")

	f.click("2", "ticket:create")
	if r := f.api.lastResponse(t); r.Type != discordgo.InteractionResponseModal || r.CustomID != "ticket:reason" {
		t.Fatalf("expected reason modal, got %+v", r)
	}

	f.submit("2", "ticket:reason", map[string]string{"reason": "  lost my items  "})

	if len(f.api.createdChannels) != 1 {
		t.Fatalf("created %d channels, want 1", len(f.api.createdChannels))
	}
	data := f.api.createdChannels[0]
	if data.Name != "ticket-user2" {
		t.Fatalf("channel name = %q", data.Name)
	}
	var everyoneDenied, ownerAllowed bool
	for _, o := range data.PermissionOverwrites {
		if o.ID == "g1" && o.Deny&discordgo.PermissionViewChannel != 0 {
			everyoneDenied = true
		}
		if o.ID == "2" && o.Allow&discordgo.PermissionSendMessages != 0 {
			ownerAllowed = true
		}
	}
	if !everyoneDenied || !ownerAllowed {
		t.Fatalf("unexpected overwrites: %+v", data.PermissionOverwrites)
	}

	tk, ok := f.h.store.Ticket("ch1")
	if !ok || tk.OwnerID != "2" || tk.Reason != "lost my items" {
		t.Fatalf("ticket = %+v, %v", tk, ok)
	}
	if r := f.api.lastResponse(t); !r.Ephemeral || r.Content != f.h.tr.T("ticket_created", "channel", "<#ch1>") {
		t.Fatalf("confirmation = %+v", r)
	}
	if len(f.api.sentTo("ch1")) != 1 || len(f.api.sentTo("staff-log")) != 1 {
		t.Fatal("expected a greeting and a staff log entry")
	}
}

func TestIdleSweepAndConfirm(t *testing.T) {
	f := newFixture(t)
	f.h.store.OpenTicket("t1", "2", "ticket-sam", "help")

	f.now = f.now.Add(23 * time.Hour)
	f.h.SweepIdleTickets()
	if n := len(f.api.sentTo("t1")); n != 0 {
		t.Fatalf("prompted before the threshold: %d messages", n)
	}

	f.now = f.now.Add(2 * time.Hour)
	f.h.SweepIdleTickets()
	f.h.SweepIdleTickets()

	prompts := f.api.sentTo("t1")
	if len(prompts) != 1 {
		t.Fatalf("expected exactly one idle prompt, got %d", len(prompts))
	}
	prompt := prompts[0]
	hours := strconv.Itoa(24)
	if prompt.Embeds[0].Description != f.h.tr.T("ticket_idle_description", "hours", hours) {
		t.Fatalf("prompt = %q", prompt.Embeds[0].Description)
	}
	if !slices.Contains(f.api.reacted, prompt.MessageID+"/✅") {
		t.Fatal("prompt was not given a confirm reaction")
	}

	// reactions on other messages or with other emoji are ignored
	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("2", "t1", "elsewhere", discordgo.Emoji{Name: "✅"})})
	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("2", "t1", prompt.MessageID, discordgo.Emoji{Name: "❌"})})
	if len(f.api.deletedChannels) != 0 {
		t.Fatal("ticket closed by an unrelated reaction")
	}

	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("2", "t1", prompt.MessageID, discordgo.Emoji{Name: "✅"})})
	if !slices.Equal(f.api.deletedChannels, []string{"t1"}) {
		t.Fatalf("deleted channels = %v", f.api.deletedChannels)
	}
	if _, ok := f.h.store.Ticket("t1"); ok {
		t.Fatal("ticket still tracked after close")
	}
	if got := lastContent(t, f.api.sentTo("t1")); got != f.h.tr.T("ticket_idle_closed") {
		t.Fatalf("close notice = %q", got)
	}

	// a second confirm does nothing
	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("3", "t1", prompt.MessageID, discordgo.Emoji{Name: "✅"})})
	if len(f.api.deletedChannels) != 1 {
		t.Fatal("ticket closed twice")
	}
}

func idlePrompts(f *fixture, channelID string) []sent {
	var out []sent
	for _, m := range f.api.sentTo(channelID) {
		if len(m.Embeds) > 0 && m.Embeds[0].Title == f.h.tr.T("ticket_idle_title") {
			out = append(out, m)
		}
	}
	return out
}

func TestCategoryChannelsAreTracked(t *testing.T) {
	f := newFixture(t)
	f.h.cfg.Tickets.CategoryID = "cat"
	f.api.channels["t9"] = &discordgo.Channel{ID: "t9", GuildID: "g1", Name: "ticket-old", ParentID: "cat"}
	f.api.channels["c2"] = &discordgo.Channel{ID: "c2", GuildID: "g1", Name: "general", ParentID: "other"}

	f.say("2", "t9", "is anyone there")
	f.say("2", "c2", "hello")

	tk, ok := f.h.store.Ticket("t9")
	if !ok || tk.Name != "ticket-old" || !tk.LastActivity.Equal(f.now) {
		t.Fatalf("ticket = %+v, %v", tk, ok)
	}
	if _, ok := f.h.store.Ticket("c2"); ok {
		t.Fatal("channel outside the ticket category was tracked")
	}

	f.now = f.now.Add(25 * time.Hour)
	f.h.SweepIdleTickets()
	if n := len(idlePrompts(f, "t9")); n != 1 {
		t.Fatalf("expected one idle prompt, got %d", n)
	}
}

func TestSweepDropsPromptWhenTicketWakes(t *testing.T) {
	f := newFixture(t)
	f.h.store.OpenTicket("t1", "2", "ticket-sam", "help")
	f.now = f.now.Add(25 * time.Hour)
	f.api.afterEmbed = func(channelID string) {
		f.h.store.Touch(channelID, f.now)
	}

	f.h.SweepIdleTickets()

	prompts := idlePrompts(f, "t1")
	if len(prompts) != 1 {
		t.Fatalf("expected the prompt to be posted once, got %d", len(prompts))
	}
	if tk, _ := f.h.store.Ticket("t1"); tk.Warned() {
		t.Fatalf("active ticket kept an idle prompt: %+v", tk)
	}
	if !slices.Contains(f.api.deletedMessages, prompts[0].MessageID) {
		t.Fatal("stale prompt was not removed")
	}
	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("2", "t1", prompts[0].MessageID, discordgo.Emoji{Name: "✅"})})
	if len(f.api.deletedChannels) != 0 {
		t.Fatal("stale prompt closed the ticket")
	}
}

func TestActivityCancelsIdlePrompt(t *testing.T) {
	f := newFixture(t)
	f.h.store.OpenTicket("t1", "2", "ticket-sam", "help")
	f.now = f.now.Add(48 * time.Hour)
	f.h.SweepIdleTickets()
	prompt := f.api.sentTo("t1")[0]

	f.say("2", "t1", "still need help")

	if f.h.store.IsIdlePrompt("t1", prompt.MessageID) {
		t.Fatal("message did not clear the idle prompt")
	}
	f.h.OnReactionAdd(&discordgo.MessageReactionAdd{MessageReaction: reaction("2", "t1", prompt.MessageID, discordgo.Emoji{Name: "✅"})})
	if len(f.api.deletedChannels) != 0 {
		t.Fatal("stale prompt closed the ticket")
	}
}

func TestTicketClose(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("1", "r-staff")
	f.api.addMember("2")
	f.h.store.OpenTicket("t1", "2", "ticket-sam", "help")

	f.say("2", "t1", "!close")
	if got := lastContent(t, f.api.sentTo("t1")); got != f.h.tr.T("ticket_close_no_permission") {
		t.Fatalf("reply = %q", got)
	}

	f.say("1", "c1", "!close")
	if got := lastContent(t, f.api.sentTo("c1")); got != f.h.tr.T("ticket_only_in_ticket") {
		t.Fatalf("reply = %q", got)
	}

	f.say("1", "t1", "!ticketclose")
	if !slices.Equal(f.api.deletedChannels, []string{"t1"}) {
		t.Fatalf("deleted channels = %v", f.api.deletedChannels)
	}
	if _, ok := f.h.store.Ticket("t1"); ok {
		t.Fatal("ticket still tracked")
	}
	if len(f.api.sentTo("staff-log")) != 1 {
		t.Fatal("close was not logged")
	}
}

func TestTicketAddViewer(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("1", "r-staff")
	f.api.addMember("3")
	f.h.store.OpenTicket("t1", "2", "ticket-sam", "help")

	f.say("1", "t1", "!ticketadd <@3>")

	want := "t1/3/" + strconv.FormatInt(ticketViewerPerms, 10) + "/" + strconv.FormatInt(discordgo.PermissionSendMessages, 10)
	if !slices.Equal(f.api.permissionSets, []string{want}) {
		t.Fatalf("permission sets = %v, want %s", f.api.permissionSets, want)
	}
	tk, _ := f.h.store.Ticket("t1")
	if !slices.Equal(tk.Viewers, []string{"3"}) {
		t.Fatalf("viewers = %v", tk.Viewers)
	}
}
