package engine

import "sync"

// SignalKind names what changed.
type SignalKind string

const (
	SignalTables       SignalKind = "tables"
	SignalSelection    SignalKind = "selection"
	SignalOrder        SignalKind = "order"
	SignalNotice       SignalKind = "notice"
	SignalConfirmation SignalKind = "confirmation"
	SignalStream       SignalKind = "stream"
)

// Signal tells the presentation layer that part of the state changed and
// should be re-read.
type Signal struct {
	Kind SignalKind `json:"kind"`
}

// Broadcaster fans signals out to subscribers. Slow subscribers miss
// signals rather than block the engine.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Signal]struct{}
}

// NewBroadcaster returns a broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Signal]struct{})}
}

// Subscribe registers a listener. Call the returned func to unsubscribe.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Signal, func()) {
	ch := make(chan Signal, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit sends one signal per kind to every subscriber.
func (b *Broadcaster) Emit(kinds ...SignalKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, kind := range kinds {
		for ch := range b.subs {
			select {
			case ch <- Signal{Kind: kind}:
			default:
			}
		}
	}
}
