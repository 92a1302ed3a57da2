package state

import "sort"

type Rank struct {
	XP    int
	Level int
}

// Needed is the xp required to leave the current level.
func (r Rank) Needed() int {
	return r.Level * 100
}

type RankEntry struct {
	UserID string
	Rank
}

type LevelUp struct {
	Rank
	LeveledUp bool
}

// AwardXP adds gain to userID. Crossing the threshold bumps the level by
// exactly one and drops the surplus xp.
func (s *Store) AwardXP(userID string, gain int) LevelUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rank(userID)
	r.XP += gain
	if r.XP >= r.Needed() {
		r.Level++
		r.XP = 0
		return LevelUp{Rank: *r, LeveledUp: true}
	}
	return LevelUp{Rank: *r}
}

// AwardRandomXP is AwardXP with a gain drawn uniformly from [lo, hi].
func (s *Store) AwardRandomXP(userID string, lo, hi int) LevelUp {
	gain := int(s.Roll(int64(lo), int64(hi)))
	return s.AwardXP(userID, gain)
}

func (s *Store) Rank(userID string) Rank {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.ranks[userID]; ok {
		return *r
	}
	return Rank{Level: 1}
}

// SetRank overwrites a user's rank.
func (s *Store) SetRank(userID string, r Rank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranks[userID] = &r
}

// TopLevels orders by level then xp, highest first.
func (s *Store) TopLevels(n int) []RankEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RankEntry, 0, len(s.ranks))
	for id, r := range s.ranks {
		out = append(out, RankEntry{UserID: id, Rank: *r})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return a.UserID < b.UserID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Store) rank(userID string) *Rank {
	r, ok := s.ranks[userID]
	if !ok {
		r = &Rank{Level: 1}
		s.ranks[userID] = r
	}
	return r
}
