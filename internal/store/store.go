package store

import (
	"context"
	"errors"

	"table-status-backend/internal/model"
)

var (
	// ErrUnauthenticated is returned for operations attempted before the
	// caller identity is established.
	ErrUnauthenticated = errors.New("identity not established")
	// ErrInvalidDocument is returned for writes without a document id.
	ErrInvalidDocument = errors.New("document id is required")
)

// Store is the shared, multi-writer table collection.
type Store interface {
	// Subscribe delivers the full collection now and after every change.
	// The channel is closed when ctx ends or after an Update carrying Err.
	Subscribe(ctx context.Context, collection string) (<-chan Update, error)
	// MergeWrite upserts the given fields of one document, leaving other
	// fields untouched.
	MergeWrite(ctx context.Context, collection, id string, fields Fields) error
	// ReadAll returns the current collection once.
	ReadAll(ctx context.Context, collection string) ([]model.Table, error)
}

// Notifier propagates "collection changed" signals between processes.
type Notifier interface {
	Notify(ctx context.Context, collection string) error
	Listen(ctx context.Context, fn func(collection string)) error
}

// Update is one element of a subscription: a snapshot or a terminal error.
type Update struct {
	Tables []model.Table
	Err    error
}

// Fields is a partial table document. Nil fields are left untouched.
type Fields struct {
	Status    *model.TableStatus
	Order     *model.Order
	UpdatedBy string
}

// OrderFields builds the fields written when an order is persisted: the
// order and the status derived from it.
func OrderFields(o model.Order, status model.TableStatus) Fields {
	lines := o.Clone()
	return Fields{Status: &status, Order: &lines}
}
