package state

func (s *Store) SetAFK(userID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afk[userID] = reason
}

// ClearAFK removes userID's status and reports whether one was set.
func (s *Store) ClearAFK(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.afk[userID]
	delete(s.afk, userID)
	return ok
}

func (s *Store) AFK(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reason, ok := s.afk[userID]
	return reason, ok
}

// NextSuggestion returns the next suggestion number, starting at 1.
func (s *Store) NextSuggestion() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions++
	return s.suggestions
}
