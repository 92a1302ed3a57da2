package handlers

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestParseTextArgs(t *testing.T) {
	f := newFixture(t)
	warn, _ := f.h.lookup("warn")
	timeout, _ := f.h.lookup("timeout")
	purge, _ := f.h.lookup("purge")

	args, err := parseTextArgs(timeout, "<@!123> 10 being loud")
	if err != nil {
		t.Fatalf("parse timeout: %v", err)
	}
	if args["user"] != "123" || args["minutes"] != "10" || args["reason"] != "being loud" {
		t.Fatalf("unexpected args: %v", args)
	}

	_, err = parseTextArgs(warn, "")
	var ae *argError
	if !errors.As(err, &ae) || !ae.missing || ae.arg != "user" {
		t.Fatalf("expected missing user, got %v", err)
	}

	_, err = parseTextArgs(warn, "bob")
	if !errors.As(err, &ae) || ae.missing {
		t.Fatalf("expected invalid user, got %v", err)
	}

	_, err = parseTextArgs(warn, "<@&55>")
	if !errors.As(err, &ae) {
		t.Fatalf("role mention accepted as user")
	}

	args, err = parseTextArgs(purge, "lots")
	if err != nil {
		t.Fatalf("optional arg should not fail: %v", err)
	}
	if _, ok := args["amount"]; ok {
		t.Fatalf("non-numeric amount should be skipped: %v", args)
	}
}

func TestTokenizeQuotes(t *testing.T) {
	toks := tokenize(`"best pizza" pineapple  "ham"`)
	want := []string{"best pizza", "pineapple", "ham"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, tok := range toks {
		if tok.text != want[i] {
			t.Errorf("token %d = %q, want %q", i, tok.text, want[i])
		}
	}
}

func TestTextCommandPermissionDenied(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("2")
	f.api.addMember("3")

	f.say("2", "c1", "!warn <@3> rude")

	if got, want := lastContent(t, f.api.sentTo("c1")), f.h.tr.T("warn_no_permission"); got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	if len(f.api.roleAdds) != 0 {
		t.Fatalf("denied warn still changed roles: %v", f.api.roleAdds)
	}
}

func TestTextCommandUsageAndInvalid(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("1", "r-staff")

	f.say("1", "c1", "!warn")
	if got, want := lastContent(t, f.api.sentTo("c1")), f.h.tr.T("usage", "usage", "!warn <user> [reason]"); got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	f.say("1", "c1", "!timeout <@2> soon")
	if got, want := lastContent(t, f.api.sentTo("c1")), f.h.tr.T("invalid_argument", "arg", "minutes"); got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	f := newFixture(t)
	f.say("1", "c1", "!doesnotexist now")
	f.say("1", "c1", "hello there")
	if n := len(f.api.sentTo("c1")); n != 0 {
		t.Fatalf("expected no replies, got %d", n)
	}
}

func TestAdministratorStillNeedsStaffRole(t *testing.T) {
	f := newFixture(t)
	f.api.roles = []*discordgo.Role{
		{ID: "r-admin", Permissions: discordgo.PermissionAdministrator},
		{ID: "r-member"},
	}
	f.api.addMember("4", "r-member", "r-admin")
	f.api.addMember("2")

	f.say("4", "c1", "!warn <@2> test")
	f.say("4", "c1", "!timeout <@2> 10")

	if lvl := f.h.store.WarnLevel("2"); lvl != 0 {
		t.Fatalf("warn level = %d, want 0", lvl)
	}
	if len(f.api.roleAdds) != 0 {
		t.Fatalf("roles changed: %v", f.api.roleAdds)
	}
	if _, ok := f.api.timeouts["2"]; ok {
		t.Fatal("timeout applied without the staff role")
	}
	msgs := f.api.sentTo("c1")
	warn, _ := f.h.lookup("warn")
	if len(msgs) != 2 || msgs[0].Content != f.h.denyMessage(warn) {
		t.Fatalf("expected two rejections, got %+v", msgs)
	}
}

func TestSlashCommandResponds(t *testing.T) {
	f := newFixture(t)
	f.interact("1", discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{Name: "coinflip"})

	r := f.api.lastResponse(t)
	heads := f.h.tr.T("coinflip", "side", f.h.tr.T("coin_heads"))
	tails := f.h.tr.T("coinflip", "side", f.h.tr.T("coin_tails"))
	if r.Type != discordgo.InteractionResponseChannelMessageWithSource || (r.Content != heads && r.Content != tails) {
		t.Fatalf("unexpected response %+v", r)
	}
	if len(f.api.responses) != 1 {
		t.Fatalf("expected one response, got %d", len(f.api.responses))
	}
}

func TestSlashCommandDenied(t *testing.T) {
	f := newFixture(t)
	f.interact("2", discordgo.InteractionApplicationCommand, discordgo.ApplicationCommandInteractionData{
		Name: "warn",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "3"},
		},
	})
	r := f.api.lastResponse(t)
	if !r.Ephemeral || r.Content != f.h.tr.T("warn_no_permission") {
		t.Fatalf("unexpected response %+v", r)
	}
}

func TestParseSlashArgs(t *testing.T) {
	args := parseSlashArgs([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
		{Name: "minutes", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(15)},
		{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spam"},
	})
	if args["user"] != "42" || args["minutes"] != "15" || args["reason"] != "spam" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestSlashCommandsRequiredFirst(t *testing.T) {
	f := newFixture(t)
	cmds := f.h.SlashCommands()
	if len(cmds) != len(f.h.order) {
		t.Fatalf("got %d slash commands for %d registered", len(cmds), len(f.h.order))
	}
	seen := map[string]bool{}
	for _, cmd := range cmds {
		if seen[cmd.Name] {
			t.Errorf("duplicate command %s", cmd.Name)
		}
		seen[cmd.Name] = true
		optional := false
		for _, o := range cmd.Options {
			if !o.Required {
				optional = true
			} else if optional {
				t.Errorf("%s: required option %s after an optional one", cmd.Name, o.Name)
			}
		}
	}
}
