package handlers

import (
	"slices"
	"testing"
)

func TestSplitPoll(t *testing.T) {
	tests := []struct {
		raw      string
		question string
		options  []string
	}{
		{"Best fruit? | apple | pear", "Best fruit?", []string{"apple", "pear"}},
		{"Best fruit? | apple || ", "Best fruit?", []string{"apple"}},
		{`"Best fruit?" apple "dragon fruit"`, "Best fruit?", []string{"apple", "dragon fruit"}},
		{"", "", nil},
	}
	for _, tt := range tests {
		q, opts := splitPoll(tt.raw)
		if q != tt.question || !slices.Equal(opts, tt.options) {
			t.Errorf("splitPoll(%q) = %q, %q", tt.raw, q, opts)
		}
	}
}

func TestEmojiKey(t *testing.T) {
	tests := map[string]string{
		"⭐":           "⭐",
		"<:pog:99>":   "pog:99",
		"<a:dance:5>": "dance:5",
		"pog:99":      "pog:99",
	}
	for in, want := range tests {
		if got := emojiKey(in); got != want {
			t.Errorf("emojiKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"#FF0000", 0xFF0000},
		{"00ff00", 0x00FF00},
		{"", colorBlue},
		{"purple", colorBlue},
		{"#1000000", colorBlue},
	}
	for _, tt := range tests {
		if got := parseColor(tt.in, colorBlue); got != tt.want {
			t.Errorf("parseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "hé" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("ok", 10); got != "ok" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestCommandUsage(t *testing.T) {
	cmd := &Command{Name: "give", Args: []Arg{
		{Name: "user", Required: true},
		{Name: "amount", Required: true},
		{Name: "note"},
	}}
	if got := cmd.Usage("!"); got != "!give <user> <amount> [note]" {
		t.Fatalf("usage = %q", got)
	}
}
