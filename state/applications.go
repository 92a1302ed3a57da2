package state

import (
	"slices"
	"time"
)

type ApplicationStatus int

const (
	ApplicationInProgress ApplicationStatus = iota
	ApplicationSubmitted
	ApplicationAccepted
	ApplicationDenied
)

type Application struct {
	UserID    string
	Answers   []string
	Status    ApplicationStatus
	StartedAt time.Time
	// Review message, set once the answers are posted for staff.
	ReviewChannelID string
	ReviewMessageID string
	ReviewerID      string
	Reason          string
}

// BeginApplication opens a questionnaire for userID. Only one application
// per user may be in progress or awaiting review at a time.
func (s *Store) BeginApplication(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.applications[userID]; ok && a.Status <= ApplicationSubmitted {
		return ErrApplicationActive
	}
	s.applications[userID] = &Application{UserID: userID, StartedAt: s.now()}
	return nil
}

// AbandonApplication discards an in-progress application and its answers.
func (s *Store) AbandonApplication(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.applications[userID]; ok && a.Status == ApplicationInProgress {
		delete(s.applications, userID)
	}
}

func (s *Store) SubmitApplication(userID string, answers []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[userID]
	if !ok || a.Status != ApplicationInProgress {
		return ErrApplicationNotFound
	}
	a.Answers = slices.Clone(answers)
	a.Status = ApplicationSubmitted
	return nil
}

func (s *Store) AttachReview(userID, channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.applications[userID]; ok {
		a.ReviewChannelID = channelID
		a.ReviewMessageID = messageID
	}
}

func (s *Store) Application(userID string) (Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[userID]
	if !ok {
		return Application{}, false
	}
	c := *a
	c.Answers = slices.Clone(a.Answers)
	return c, true
}

// ResolveApplication records a review decision. Only submitted applications
// can be resolved, so a second decision on the same application fails.
func (s *Store) ResolveApplication(userID, reviewerID string, accepted bool, reason string) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[userID]
	if !ok || a.Status != ApplicationSubmitted {
		return Application{}, ErrApplicationNotFound
	}
	a.Status = ApplicationDenied
	if accepted {
		a.Status = ApplicationAccepted
	}
	a.ReviewerID = reviewerID
	a.Reason = reason
	c := *a
	c.Answers = slices.Clone(a.Answers)
	return c, nil
}
