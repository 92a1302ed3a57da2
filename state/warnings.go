package state

const MaxWarnLevel = 3

type WarnResult struct {
	Previous int
	Level    int
	// Final is set only on the warn that first reaches MaxWarnLevel.
	Final bool
}

// Warn advances userID one step up the ladder. observed is the level implied
// by the marker roles the member currently holds; the higher of it and the
// recorded level is taken as the starting point so that manual role edits are
// respected. The ladder never goes past MaxWarnLevel.
func (s *Store) Warn(userID string, observed int) WarnResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := max(s.warnings[userID], min(max(observed, 0), MaxWarnLevel))
	level := min(prev+1, MaxWarnLevel)
	s.warnings[userID] = level
	return WarnResult{
		Previous: prev,
		Level:    level,
		Final:    level == MaxWarnLevel && prev < MaxWarnLevel,
	}
}

func (s *Store) WarnLevel(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.warnings[userID]
}
