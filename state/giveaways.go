package state

import (
	"sort"
	"time"
)

type Giveaway struct {
	MessageID string
	ChannelID string
	HostID    string
	Prize     string
	EndsAt    time.Time
}

func (s *Store) AddGiveaway(g Giveaway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.giveaways[g.MessageID] = &g
}

func (s *Store) Giveaway(messageID string) (Giveaway, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.giveaways[messageID]
	if !ok {
		return Giveaway{}, false
	}
	return *g, true
}

func (s *Store) RemoveGiveaway(messageID string) (Giveaway, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.giveaways[messageID]
	if !ok {
		return Giveaway{}, false
	}
	delete(s.giveaways, messageID)
	return *g, true
}

// Giveaways returns the running giveaways, soonest ending first.
func (s *Store) Giveaways() []Giveaway {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Giveaway, 0, len(s.giveaways))
	for _, g := range s.giveaways {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndsAt.Before(out[j].EndsAt) })
	return out
}

// PickWinner draws uniformly from entrants. Each call is an independent draw.
func (s *Store) PickWinner(entrants []string) (string, error) {
	if len(entrants) == 0 {
		return "", ErrNoEntries
	}
	return entrants[s.Pick(len(entrants))], nil
}
