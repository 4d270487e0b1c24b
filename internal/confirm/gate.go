// Package confirm implements a single-slot yes/no confirmation: one caller
// waits while the operator answers.
package confirm

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrPending is returned when a confirmation is already awaiting an answer.
	ErrPending = errors.New("another confirmation is pending")
	// ErrNoPending is returned when answering with nothing pending.
	ErrNoPending = errors.New("no confirmation pending")
)

// Prompt is the confirmation currently awaiting an answer.
type Prompt struct {
	ID      uint64    `json:"id"`
	Message string    `json:"message"`
	Asked   time.Time `json:"asked"`
}

type pending struct {
	prompt Prompt
	answer chan bool
}

// Gate holds at most one pending confirmation.
type Gate struct {
	mu       sync.Mutex
	current  *pending
	seq      uint64
	onChange func()
}

// NewGate creates an empty gate. onChange, if set, is called whenever a
// prompt opens or closes.
func NewGate(onChange func()) *Gate {
	return &Gate{onChange: onChange}
}

// Request shows message and blocks until the operator answers or ctx ends.
func (g *Gate) Request(ctx context.Context, message string) (bool, error) {
	g.mu.Lock()
	if g.current != nil {
		g.mu.Unlock()
		return false, ErrPending
	}
	g.seq++
	p := &pending{
		prompt: Prompt{ID: g.seq, Message: message, Asked: time.Now()},
		answer: make(chan bool, 1),
	}
	g.current = p
	g.mu.Unlock()
	g.changed()

	select {
	case ok := <-p.answer:
		return ok, nil
	case <-ctx.Done():
		g.mu.Lock()
		if g.current == p {
			g.current = nil
		}
		g.mu.Unlock()
		g.changed()
		return false, ctx.Err()
	}
}

// Respond resolves the pending confirmation with ok.
func (g *Gate) Respond(ok bool) error {
	g.mu.Lock()
	p := g.current
	if p == nil {
		g.mu.Unlock()
		return ErrNoPending
	}
	g.current = nil
	g.mu.Unlock()

	p.answer <- ok
	g.changed()
	return nil
}

// Pending returns the open prompt, if any.
func (g *Gate) Pending() (Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Prompt{}, false
	}
	return g.current.prompt, true
}

func (g *Gate) changed() {
	if g.onChange != nil {
		g.onChange()
	}
}
