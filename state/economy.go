package state

import (
	"sort"
	"time"
)

type Account struct {
	Wallet    int64
	Bank      int64
	LastDaily time.Time
	LastWork  time.Time
}

func (a Account) Total() int64 {
	return a.Wallet + a.Bank
}

// Payout describes a cooldown-gated reward.
type Payout struct {
	Cooldown time.Duration
	Min, Max int64
}

type BalanceEntry struct {
	UserID string
	Account
}

// Claim is the outcome of a cooldown-gated reward. Remaining is set when the
// claim was rejected with ErrCooldown.
type Claim struct {
	Amount    int64
	Remaining time.Duration
}

func (s *Store) Account(userID string) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[userID]; ok {
		return *a
	}
	return Account{}
}

// Credit adds amount to the wallet, creating the account if needed.
func (s *Store) Credit(userID string, amount int64) Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	a.Wallet += amount
	return *a
}

// CreditRandom credits a uniform amount in [lo, hi] and returns it.
func (s *Store) CreditRandom(userID string, lo, hi int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount := s.roll(lo, hi)
	s.account(userID).Wallet += amount
	return amount
}

func (s *Store) ClaimDaily(userID string, p Payout) (Claim, error) {
	return s.claim(userID, p, func(a *Account) *time.Time { return &a.LastDaily })
}

func (s *Store) ClaimWork(userID string, p Payout) (Claim, error) {
	return s.claim(userID, p, func(a *Account) *time.Time { return &a.LastWork })
}

func (s *Store) claim(userID string, p Payout, last func(*Account) *time.Time) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	now := s.now()
	ts := last(a)
	if !ts.IsZero() {
		if elapsed := now.Sub(*ts); elapsed < p.Cooldown {
			return Claim{Remaining: p.Cooldown - elapsed}, ErrCooldown
		}
	}
	amount := s.roll(p.Min, p.Max)
	a.Wallet += amount
	*ts = now
	return Claim{Amount: amount}, nil
}

// Deposit moves amount from wallet to bank. A negative amount means "all".
func (s *Store) Deposit(userID string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	if amount < 0 {
		amount = a.Wallet
	}
	if err := check(amount, a.Wallet); err != nil {
		return 0, err
	}
	a.Wallet -= amount
	a.Bank += amount
	return amount, nil
}

// Withdraw moves amount from bank to wallet. A negative amount means "all".
func (s *Store) Withdraw(userID string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(userID)
	if amount < 0 {
		amount = a.Bank
	}
	if err := check(amount, a.Bank); err != nil {
		return 0, err
	}
	a.Bank -= amount
	a.Wallet += amount
	return amount, nil
}

// Transfer moves amount between two wallets.
func (s *Store) Transfer(fromID, toID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fromID == toID {
		return ErrSelfTransfer
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	from := s.account(fromID)
	if amount > from.Wallet {
		return ErrInsufficientFunds
	}
	to := s.account(toID)
	from.Wallet -= amount
	to.Wallet += amount
	return nil
}

// TopBalances orders by wallet plus bank, highest first.
func (s *Store) TopBalances(n int) []BalanceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BalanceEntry, 0, len(s.accounts))
	for id, a := range s.accounts {
		out = append(out, BalanceEntry{UserID: id, Account: *a})
	}
	sort.Slice(out, func(i, j int) bool {
		if ti, tj := out[i].Total(), out[j].Total(); ti != tj {
			return ti > tj
		}
		return out[i].UserID < out[j].UserID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func check(amount, available int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > available {
		return ErrInsufficientFunds
	}
	return nil
}

func (s *Store) account(userID string) *Account {
	a, ok := s.accounts[userID]
	if !ok {
		a = &Account{}
		s.accounts[userID] = a
	}
	return a
}
