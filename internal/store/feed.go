package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"table-status-backend/internal/model"
)

// Feed turns change signals into a stream of full snapshots.
type Feed struct {
	Collection string
	Read       func(ctx context.Context) ([]model.Table, error)
	// Wake requests an immediate re-read.
	Wake <-chan struct{}
	// Fail ends the feed with the received error.
	Fail <-chan error
	// Poll re-reads periodically; zero disables polling.
	Poll time.Duration
}

// Run emits the current snapshot and then a new one whenever the content
// changes. It closes out on return.
func (f Feed) Run(ctx context.Context, out chan<- Update) {
	defer close(out)
	logger := log.WithField("collection", f.Collection)

	var last [sha256.Size]byte
	first := true
	emit := func() bool {
		tables, err := f.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			logger.WithError(err).Error("snapshot read failed, ending subscription")
			send(ctx, out, Update{Err: err})
			return false
		}
		sum := fingerprint(tables)
		if !first && sum == last {
			return true
		}
		first, last = false, sum
		return send(ctx, out, Update{Tables: tables})
	}

	if !emit() {
		return
	}

	var tick <-chan time.Time
	if f.Poll > 0 {
		ticker := time.NewTicker(f.Poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-f.Fail:
			logger.WithError(err).Error("change stream failed, ending subscription")
			send(ctx, out, Update{Err: err})
			return
		case <-f.Wake:
			if !emit() {
				return
			}
		case <-tick:
			if !emit() {
				return
			}
		}
	}
}

func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func fingerprint(tables []model.Table) [sha256.Size]byte {
	b, err := json.Marshal(tables)
	if err != nil {
		// Unhashable snapshots are always treated as new.
		return [sha256.Size]byte{}
	}
	return sha256.Sum256(b)
}

// hub fans wake-ups out to the subscriptions of each collection.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[chan struct{}]struct{})}
}

func (h *hub) add(collection string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{}, 1)
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[chan struct{}]struct{})
	}
	h.subs[collection][ch] = struct{}{}
	return ch
}

func (h *hub) remove(collection string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], ch)
	if len(h.subs[collection]) == 0 {
		delete(h.subs, collection)
	}
}

func (h *hub) wake(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
