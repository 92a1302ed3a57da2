package handlers

import (
	"testing"
	"time"
)

func TestDailyCooldown(t *testing.T) {
	f := newFixture(t)
	f.h.cfg.Economy.DailyCooldown = 24 * time.Hour
	f.h.cfg.Economy.DailyMin, f.h.cfg.Economy.DailyMax = 500, 500

	reply := func() string { return lastContent(t, f.api.sentTo("c1")) }

	f.say("1", "c1", "!daily")
	if got := reply(); got != f.h.tr.T("daily_claimed", "amount", "500") {
		t.Fatalf("first claim: %q", got)
	}
	f.say("1", "c1", "!daily")
	if got := reply(); got != f.h.tr.T("daily_cooldown", "hours", "24") {
		t.Fatalf("immediate retry: %q", got)
	}

	f.now = f.now.Add(23*time.Hour + 30*time.Minute)
	f.say("1", "c1", "!daily")
	if got := reply(); got != f.h.tr.T("daily_cooldown", "hours", "1") {
		t.Fatalf("late retry: %q", got)
	}

	f.now = f.now.Add(time.Hour)
	f.say("1", "c1", "!daily")
	if got := reply(); got != f.h.tr.T("daily_claimed", "amount", "500") {
		t.Fatalf("second claim: %q", got)
	}
	if a := f.h.store.Account("1"); a.Wallet != 1000 {
		t.Fatalf("wallet = %d, want 1000", a.Wallet)
	}
}

func TestBankAndTransfers(t *testing.T) {
	f := newFixture(t)
	f.h.cfg.Economy.DailyCooldown = 24 * time.Hour
	f.h.cfg.Economy.DailyMin, f.h.cfg.Economy.DailyMax = 500, 500
	reply := func() string { return lastContent(t, f.api.sentTo("c1")) }

	f.say("1", "c1", "!daily")

	f.say("1", "c1", "!dep 200")
	if got := reply(); got != f.h.tr.T("deposited", "amount", "200") {
		t.Fatalf("deposit: %q", got)
	}
	if a := f.h.store.Account("1"); a.Wallet != 300 || a.Bank != 200 {
		t.Fatalf("account = %+v", a)
	}

	f.say("1", "c1", "!withdraw all")
	if got := reply(); got != f.h.tr.T("withdrew", "amount", "200") {
		t.Fatalf("withdraw: %q", got)
	}

	f.say("1", "c1", "!deposit lots")
	if got := reply(); got != f.h.tr.T("invalid_amount") {
		t.Fatalf("bad amount: %q", got)
	}

	f.say("1", "c1", "!give <@2> 1000")
	if got := reply(); got != f.h.tr.T("give_insufficient") {
		t.Fatalf("overdraft: %q", got)
	}
	f.say("1", "c1", "!pay <@1> 5")
	if got := reply(); got != f.h.tr.T("give_self") {
		t.Fatalf("self transfer: %q", got)
	}
	f.say("1", "c1", "!give <@2> 150")
	if got := reply(); got != f.h.tr.T("gave", "amount", "150", "user", "<@2>") {
		t.Fatalf("transfer: %q", got)
	}
	if a, b := f.h.store.Account("1"), f.h.store.Account("2"); a.Wallet != 350 || b.Wallet != 150 {
		t.Fatalf("wallets = %d, %d", a.Wallet, b.Wallet)
	}
}
