// Package notice keeps the transient success and error messages shown to
// the operator. Notices dismiss themselves after a TTL.
package notice

import (
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 3 * time.Second

// Kind categorizes a notice.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one user-visible message.
type Notice struct {
	ID      uint64    `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	Posted  time.Time `json:"posted"`
}

// Board holds the active notices.
type Board struct {
	items *cache.Cache
	ttl   time.Duration
	seq   atomic.Uint64
}

// NewBoard creates a board whose notices expire after ttl.
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{
		items: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Success posts a success notice.
func (b *Board) Success(msg string) Notice {
	return b.post(KindSuccess, msg)
}

// Error posts an error notice.
func (b *Board) Error(msg string) Notice {
	return b.post(KindError, msg)
}

func (b *Board) post(kind Kind, msg string) Notice {
	n := Notice{
		ID:      b.seq.Add(1),
		Kind:    kind,
		Message: msg,
		Posted:  time.Now(),
	}
	b.items.Set(strconv.FormatUint(n.ID, 10), n, b.ttl)
	return n
}

// Active returns the unexpired notices, oldest first.
func (b *Board) Active() []Notice {
	items := b.items.Items()
	out := make([]Notice, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Notice))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Dismiss removes a notice before it expires.
func (b *Board) Dismiss(id uint64) {
	b.items.Delete(strconv.FormatUint(id, 10))
}
