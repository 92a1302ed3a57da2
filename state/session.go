package state

import "slices"

const MaxCohosts = 3

type Session struct {
	HostID           string
	StartupMessageID string
	StartupChannelID string
	ReleaseMessageID string
	ReleaseChannelID string
	Cohosts          []string
}

func (s Session) Active() bool {
	return s.HostID != ""
}

// SessionLink is a released session link guarded by a role list. Tokens are
// embedded in button custom ids.
type SessionLink struct {
	Token        string
	URL          string
	AllowedRoles []string
}

// StartSession records a new startup announcement and resets co-hosts.
func (s *Store) StartSession(hostID, channelID, messageID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{
		HostID:           hostID,
		StartupChannelID: channelID,
		StartupMessageID: messageID,
	}
	return s.sessionCopy()
}

// ReleaseSession points the session at its release announcement and resets
// co-hosts. A release without a prior startup starts a session for hostID.
func (s *Store) ReleaseSession(hostID, channelID, messageID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.HostID == "" {
		s.session.HostID = hostID
	}
	s.session.ReleaseChannelID = channelID
	s.session.ReleaseMessageID = messageID
	s.session.Cohosts = nil
	return s.sessionCopy()
}

func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCopy()
}

// AddCohost adds userID on behalf of a host. The list never grows past
// MaxCohosts.
func (s *Store) AddCohost(userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addCohost(userID); err != nil {
		return s.sessionCopy(), err
	}
	return s.sessionCopy(), nil
}

// JoinAsCohost is the self-service variant and requires a released session.
func (s *Store) JoinAsCohost(userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.ReleaseMessageID == "" {
		return s.sessionCopy(), ErrNoRelease
	}
	if err := s.addCohost(userID); err != nil {
		return s.sessionCopy(), err
	}
	return s.sessionCopy(), nil
}

func (s *Store) addCohost(userID string) error {
	if slices.Contains(s.session.Cohosts, userID) {
		return ErrAlreadyCohost
	}
	if len(s.session.Cohosts) >= MaxCohosts {
		return ErrCohostLimit
	}
	s.session.Cohosts = append(s.session.Cohosts, userID)
	return nil
}

func (s *Store) RemoveCohost(userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.session.Cohosts, userID)
	if i < 0 {
		return s.sessionCopy(), ErrNotCohost
	}
	s.session.Cohosts = slices.Delete(s.session.Cohosts, i, i+1)
	return s.sessionCopy(), nil
}

// EndSession clears the current session and its link buttons and returns
// what it was.
func (s *Store) EndSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	ended := s.sessionCopy()
	s.session = Session{}
	clear(s.links)
	return ended
}

// AddSessionLink stores url under a fresh token.
func (s *Store) AddSessionLink(url string, allowedRoles []string) SessionLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := SessionLink{Token: s.token(), URL: url, AllowedRoles: slices.Clone(allowedRoles)}
	s.links[link.Token] = link
	return link
}

func (s *Store) SessionLink(token string) (SessionLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	return link, ok
}

func (s *Store) sessionCopy() Session {
	c := s.session
	c.Cohosts = slices.Clone(s.session.Cohosts)
	return c
}
