package handlers

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrWaitTimeout = errors.New("timed out waiting for reply")
	ErrInboxBusy   = errors.New("already waiting on this user")
)

// Waiter hands direct messages to the goroutine currently expecting them.
// Messages from users nobody is waiting on are dropped.
type Waiter struct {
	mu      sync.Mutex
	inboxes map[string]chan string
}

func NewWaiter() *Waiter {
	return &Waiter{inboxes: make(map[string]chan string)}
}

type Inbox struct {
	w   *Waiter
	key string
	ch  chan string
}

// Open claims the inbox for key. Only one claim per key can be live.
func (w *Waiter) Open(key string) (*Inbox, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inboxes[key]; ok {
		return nil, ErrInboxBusy
	}
	ch := make(chan string, 1)
	w.inboxes[key] = ch
	return &Inbox{w: w, key: key, ch: ch}, nil
}

// Deliver reports whether someone was waiting for key. A reply that arrives
// while the previous one is still unread is dropped.
func (w *Waiter) Deliver(key, content string) bool {
	w.mu.Lock()
	ch, ok := w.inboxes[key]
	w.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- content:
	default:
	}
	return true
}

// Next blocks until a reply arrives, timeout passes or ctx ends.
func (in *Inbox) Next(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case msg := <-in.ch:
		return msg, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrWaitTimeout
		}
		return "", ctx.Err()
	}
}

func (in *Inbox) Close() {
	in.w.mu.Lock()
	defer in.w.mu.Unlock()
	if in.w.inboxes[in.key] == in.ch {
		delete(in.w.inboxes, in.key)
	}
}
