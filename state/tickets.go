package state

import (
	"slices"
	"sort"
	"time"
)

type Ticket struct {
	ChannelID    string
	OwnerID      string
	Name         string
	Reason       string
	OpenedAt     time.Time
	LastActivity time.Time
	// WarnedAt is zero unless an idle prompt is outstanding.
	WarnedAt        time.Time
	PromptMessageID string
	Viewers         []string
}

func (t Ticket) Warned() bool {
	return !t.WarnedAt.IsZero()
}

// OpenTicket starts tracking channelID. Opening counts as activity.
func (s *Store) OpenTicket(channelID, ownerID, name, reason string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t := &Ticket{
		ChannelID:    channelID,
		OwnerID:      ownerID,
		Name:         name,
		Reason:       reason,
		OpenedAt:     now,
		LastActivity: now,
	}
	s.tickets[channelID] = t
	return t.copy()
}

// TrackTicket adopts a ticket channel the bot did not open, such as one left
// over from a previous run. Adoption counts as activity. It returns false if
// the channel is already tracked.
func (s *Store) TrackTicket(channelID, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[channelID]; ok {
		return false
	}
	now := s.now()
	s.tickets[channelID] = &Ticket{
		ChannelID:    channelID,
		Name:         name,
		OpenedAt:     now,
		LastActivity: now,
	}
	return true
}

func (s *Store) Ticket(channelID string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	if !ok {
		return Ticket{}, false
	}
	return t.copy(), true
}

// Tickets returns every tracked ticket ordered by channel id.
func (s *Store) Tickets() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// Touch records activity at the given time and clears any outstanding idle
// prompt. Activity older than what is already recorded is ignored. It reports
// whether the channel is tracked.
func (s *Store) Touch(channelID string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	if !ok {
		return false
	}
	if at.After(t.LastActivity) {
		t.LastActivity = at
	}
	t.WarnedAt = time.Time{}
	t.PromptMessageID = ""
	return true
}

// IdleTickets returns tickets idle for at least threshold with no
// outstanding prompt, ordered by channel id. Channels whose ids are not in
// restrict are skipped when restrict is non-nil.
func (s *Store) IdleTickets(threshold time.Duration, restrict []string) []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []Ticket
	for id, t := range s.tickets {
		if restrict != nil && !slices.Contains(restrict, id) {
			continue
		}
		if t.Warned() || now.Sub(t.LastActivity) < threshold {
			continue
		}
		out = append(out, t.copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// MarkWarned records the idle prompt for a ticket last seen active at seen.
// It returns false when the ticket is gone, already has a prompt outstanding,
// or has had activity since seen.
func (s *Store) MarkWarned(channelID, promptMessageID string, seen time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	if !ok || t.Warned() || t.LastActivity.After(seen) {
		return false
	}
	t.WarnedAt = s.now()
	t.PromptMessageID = promptMessageID
	return true
}

// IsIdlePrompt reports whether messageID is the outstanding idle prompt of
// channelID.
func (s *Store) IsIdlePrompt(channelID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	return ok && t.Warned() && t.PromptMessageID == messageID
}

// CloseTicket drops both the activity and warning records for channelID.
func (s *Store) CloseTicket(channelID string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	if !ok {
		return Ticket{}, false
	}
	delete(s.tickets, channelID)
	return t.copy(), true
}

func (s *Store) AddViewer(channelID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[channelID]
	if !ok {
		return ErrTicketNotFound
	}
	if !slices.Contains(t.Viewers, userID) {
		t.Viewers = append(t.Viewers, userID)
	}
	return nil
}

func (t *Ticket) copy() Ticket {
	c := *t
	c.Viewers = slices.Clone(t.Viewers)
	return c
}
