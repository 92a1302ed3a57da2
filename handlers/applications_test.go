package handlers

import (
	"slices"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"prismbot/state"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *fixture) dm(userID, content string) {
	f.h.OnMessageCreate(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "dm-" + content,
		ChannelID: "dm-" + userID,
		Content:   content,
		Author:    &discordgo.User{ID: userID},
	}})
}

func TestApplicationQuestionnaireAndReview(t *testing.T) {
	f := newFixture(t)
	f.api.addMember("2")
	f.api.addMember("9", "r-review")
	dms := func(n int) func() bool {
		return func() bool { return len(f.api.sentTo("dm-2")) >= n }
	}

	f.say("2", "c1", "!apply")
	if got := lastContent(t, f.api.sentTo("c1")); got != f.h.tr.T("application_check_dms") {
		t.Fatalf("reply = %q", got)
	}

	// started notice plus the first question
	waitFor(t, "first question", dms(2))
	f.dm("2", "I like the community")
	waitFor(t, "second question", dms(3))
	f.dm("2", "19")
	waitFor(t, "submitted notice", dms(4))

	review := f.api.sentTo("apps")
	if len(review) != 1 {
		t.Fatalf("expected one review post, got %d", len(review))
	}
	if !slices.Equal(review[0].Buttons, []string{"app:accept:2", "app:deny:2"}) {
		t.Fatalf("review buttons = %v", review[0].Buttons)
	}
	fields := review[0].Embeds[0].Fields
	if len(fields) != 2 || fields[0].Value != "I like the community" || fields[1].Value != "19" {
		t.Fatalf("review fields = %+v", fields)
	}
	app, ok := f.h.store.Application("2")
	if !ok || app.Status != state.ApplicationSubmitted || app.ReviewMessageID != review[0].MessageID {
		t.Fatalf("application = %+v", app)
	}

	f.say("2", "c1", "!apply")
	if got := lastContent(t, f.api.sentTo("c1")); got != f.h.tr.T("application_active") {
		t.Fatalf("reapply while pending: %q", got)
	}

	f.click("5", "app:accept:2")
	if r := f.api.lastResponse(t); r.Content != f.h.tr.T("application_reviewer_required") {
		t.Fatalf("non-reviewer got %+v", r)
	}

	f.click("9", "app:accept:2")
	if r := f.api.lastResponse(t); r.Type != discordgo.InteractionResponseModal || r.CustomID != "app:accept:2" {
		t.Fatalf("reviewer got %+v", r)
	}
	f.submit("9", "app:accept:2", map[string]string{"reason": "great fit"})

	if r := f.api.lastResponse(t); r.Content != f.h.tr.T("application_accepted", "user", "<@2>", "reviewer", "<@9>", "reason", "great fit") {
		t.Fatalf("accept reply = %+v", r)
	}
	if len(f.api.edits) != 1 || f.api.edits[0].ID != review[0].MessageID {
		t.Fatalf("review buttons not disabled: %+v", f.api.edits)
	}
	if got := lastContent(t, f.api.sentTo("dm-2")); got != f.h.tr.T("application_accepted_dm", "guild", "Prism", "reason", "great fit") {
		t.Fatalf("applicant dm = %q", got)
	}

	f.submit("9", "app:deny:2", map[string]string{"reason": "changed my mind"})
	if r := f.api.lastResponse(t); r.Content != f.h.tr.T("application_already_reviewed") {
		t.Fatalf("second decision got %+v", r)
	}
}

func TestApplicationTimesOut(t *testing.T) {
	f := newFixture(t)
	f.h.cfg.Applications.AnswerTimeout = 20 * time.Millisecond

	f.say("2", "c1", "!apply")
	waitFor(t, "timeout notice", func() bool {
		msgs := f.api.sentTo("dm-2")
		return len(msgs) > 0 && msgs[len(msgs)-1].Content == f.h.tr.T("application_timed_out")
	})
	waitFor(t, "application abandoned", func() bool {
		_, ok := f.h.store.Application("2")
		return !ok
	})
	if len(f.api.sentTo("apps")) != 0 {
		t.Fatal("abandoned application was posted for review")
	}
}

func TestApplicationNeedsOpenDMs(t *testing.T) {
	f := newFixture(t)
	f.api.failDM = true

	f.say("2", "c1", "!apply")

	if got := lastContent(t, f.api.sentTo("c1")); got != f.h.tr.T("dm_forbidden") {
		t.Fatalf("reply = %q", got)
	}
	if _, ok := f.h.store.Application("2"); ok {
		t.Fatal("application left open")
	}
	if f.h.waiter.Deliver("2", "hello") {
		t.Fatal("inbox left open")
	}
}
