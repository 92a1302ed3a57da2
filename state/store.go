// Package state owns every piece of mutable bot state: tickets, warnings,
// levels, balances, reaction roles, sessions, giveaways, applications and
// pending interactive prompts. All methods are safe for concurrent use.
package state

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

var (
	ErrCooldown          = errors.New("cooldown active")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to self")

	ErrNoSession     = errors.New("no active session")
	ErrNoRelease     = errors.New("no session release")
	ErrNoStartup     = errors.New("no session startup")
	ErrCohostLimit   = errors.New("co-host limit reached")
	ErrAlreadyCohost = errors.New("already a co-host")
	ErrNotCohost     = errors.New("not a co-host")

	ErrTicketNotFound   = errors.New("ticket not found")
	ErrGiveawayNotFound = errors.New("giveaway not found")
	ErrNoEntries        = errors.New("no valid entries")

	ErrApplicationActive   = errors.New("application already active")
	ErrApplicationNotFound = errors.New("application not found")

	ErrPromptNotFound = errors.New("prompt not found")
	ErrPromptExpired  = errors.New("prompt expired")
	ErrPromptOwner    = errors.New("prompt belongs to another user")
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time
	rng *rand.Rand

	tickets      map[string]*Ticket
	warnings     map[string]int
	ranks        map[string]*Rank
	accounts     map[string]*Account
	roleBindings map[RoleKey]string
	session      Session
	links        map[string]SessionLink
	giveaways    map[string]*Giveaway
	applications map[string]*Application
	afk          map[string]string
	prompts      map[string]*Prompt
	suggestions  int
}

type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand seeds the store's random source deterministically.
func WithRand(seed1, seed2 uint64) Option {
	return func(s *Store) { s.rng = rand.New(rand.NewPCG(seed1, seed2)) }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		rng:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		tickets:      make(map[string]*Ticket),
		warnings:     make(map[string]int),
		ranks:        make(map[string]*Rank),
		accounts:     make(map[string]*Account),
		roleBindings: make(map[RoleKey]string),
		links:        make(map[string]SessionLink),
		giveaways:    make(map[string]*Giveaway),
		applications: make(map[string]*Application),
		afk:          make(map[string]string),
		prompts:      make(map[string]*Prompt),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Now() time.Time {
	return s.now()
}

// Roll returns a uniform integer in [lo, hi].
func (s *Store) Roll(lo, hi int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roll(lo, hi)
}

// Pick returns a uniform index in [0, n). n must be positive.
func (s *Store) Pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Store) roll(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Int64N(hi-lo+1)
}

func (s *Store) token() string {
	return strconv.FormatUint(s.rng.Uint64(), 36)
}
