package state

import (
	"maps"
	"time"
)

type PromptKind string

const (
	PromptStartup      PromptKind = "startup"
	PromptEarlyRelease PromptKind = "early"
	PromptRelease      PromptKind = "release"
	PromptGiveaway     PromptKind = "giveaway"
	PromptEmbed        PromptKind = "embed"
)

// Prompt is a pending button-then-modal flow started by a text command.
// Each prompt belongs to the user who ran the command and expires on its own.
type Prompt struct {
	Token     string
	Kind      PromptKind
	OwnerID   string
	ChannelID string
	MessageID string
	Data      map[string]string
	ExpiresAt time.Time
}

func (s *Store) RegisterPrompt(kind PromptKind, ownerID, channelID string, ttl time.Duration, data map[string]string) Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &Prompt{
		Token:     s.token(),
		Kind:      kind,
		OwnerID:   ownerID,
		ChannelID: channelID,
		Data:      maps.Clone(data),
		ExpiresAt: s.now().Add(ttl),
	}
	s.prompts[p.Token] = p
	return p.copy()
}

// AttachPromptMessage remembers the message carrying the prompt button.
func (s *Store) AttachPromptMessage(token, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prompts[token]; ok {
		p.MessageID = messageID
	}
}

// OpenPrompt validates a button press on the prompt. A positive extend moves
// the deadline to now+extend so the modal it opens has time to be filled in.
func (s *Store) OpenPrompt(token, userID string, extend time.Duration) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookupPrompt(token, userID)
	if err != nil {
		return Prompt{}, err
	}
	if extend > 0 {
		p.ExpiresAt = s.now().Add(extend)
	}
	return p.copy(), nil
}

// TakePrompt validates and consumes the prompt. A prompt can be taken once.
func (s *Store) TakePrompt(token, userID string) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookupPrompt(token, userID)
	if err != nil {
		return Prompt{}, err
	}
	delete(s.prompts, token)
	return p.copy(), nil
}

// PrunePrompts drops expired prompts and returns them.
func (s *Store) PrunePrompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []Prompt
	for token, p := range s.prompts {
		if now.After(p.ExpiresAt) {
			out = append(out, p.copy())
			delete(s.prompts, token)
		}
	}
	return out
}

func (s *Store) lookupPrompt(token, userID string) (*Prompt, error) {
	p, ok := s.prompts[token]
	if !ok {
		return nil, ErrPromptNotFound
	}
	if s.now().After(p.ExpiresAt) {
		delete(s.prompts, token)
		return nil, ErrPromptExpired
	}
	if p.OwnerID != userID {
		return nil, ErrPromptOwner
	}
	return p, nil
}

func (p *Prompt) copy() Prompt {
	c := *p
	c.Data = maps.Clone(p.Data)
	return c
}
