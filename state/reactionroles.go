package state

type RoleKey struct {
	MessageID string
	Emoji     string
}

// BindReactionRole maps (messageID, emoji) to roleID, replacing any previous
// binding for the same pair.
func (s *Store) BindReactionRole(messageID, emoji, roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roleBindings[RoleKey{MessageID: messageID, Emoji: emoji}] = roleID
}

func (s *Store) ReactionRole(messageID, emoji string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role, ok := s.roleBindings[RoleKey{MessageID: messageID, Emoji: emoji}]
	return role, ok
}
