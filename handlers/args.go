package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

type argError struct {
	arg     string
	missing bool
}

func (e *argError) Error() string {
	if e.missing {
		return fmt.Sprintf("missing argument %s", e.arg)
	}
	return fmt.Sprintf("invalid argument %s", e.arg)
}

type token struct {
	text  string
	start int
}

// tokenize splits on whitespace; double quotes group words.
func tokenize(s string) []token {
	var (
		out   []token
		cur   strings.Builder
		start = -1
		quote bool
	)
	flush := func() {
		if start >= 0 {
			out = append(out, token{text: cur.String(), start: start})
		}
		cur.Reset()
		start = -1
	}
	for i, r := range s {
		switch {
		case r == '"':
			if start < 0 {
				start = i
			}
			quote = !quote
		case unicode.IsSpace(r) && !quote:
			flush()
		default:
			if start < 0 {
				start = i
			}
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// parseTextArgs maps raw (the message after the command name) onto cmd.Args.
func parseTextArgs(cmd *Command, raw string) (map[string]string, error) {
	toks := tokenize(raw)
	out := make(map[string]string, len(cmd.Args))
	ti := 0
	for _, a := range cmd.Args {
		if ti >= len(toks) {
			if a.Required {
				return nil, &argError{arg: a.Name, missing: true}
			}
			continue
		}
		if a.Kind == ArgText {
			out[a.Name] = strings.TrimSpace(raw[toks[ti].start:])
			ti = len(toks)
			continue
		}
		v, ok := normalizeArg(a.Kind, toks[ti].text)
		if !ok {
			if a.Required {
				return nil, &argError{arg: a.Name}
			}
			// optional argument that does not fit: leave the token for the next one
			continue
		}
		out[a.Name] = v
		ti++
	}
	return out, nil
}

func normalizeArg(kind ArgKind, s string) (string, bool) {
	switch kind {
	case ArgInt:
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return "", false
		}
		return s, true
	case ArgUser:
		return snowflake(s, "<@!", "<@")
	case ArgRole:
		return snowflake(s, "<@&")
	case ArgChannel:
		return snowflake(s, "<#")
	default:
		return s, true
	}
}

// snowflake accepts a raw id or a mention with one of the given prefixes.
func snowflake(s string, prefixes ...string) (string, bool) {
	if strings.HasSuffix(s, ">") {
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimSuffix(strings.TrimPrefix(s, p), ">")
				matched = true
				break
			}
		}
		if !matched {
			return "", false
		}
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return s, true
}

func parseSlashArgs(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(opts))
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionInteger:
			out[o.Name] = strconv.FormatInt(o.IntValue(), 10)
		case discordgo.ApplicationCommandOptionUser,
			discordgo.ApplicationCommandOptionRole,
			discordgo.ApplicationCommandOptionChannel:
			if s, ok := o.Value.(string); ok {
				out[o.Name] = s
			}
		default:
			out[o.Name] = o.StringValue()
		}
	}
	return out
}
