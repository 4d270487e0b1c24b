// Package events carries "collection changed" signals between processes
// sharing a store.
package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Conn is the subset of a NATS connection the notifier uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSNotifier publishes the changed collection path on a subject.
type NATSNotifier struct {
	conn    Conn
	subject string
}

// Dial connects to url.
func Dial(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("table-status-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NewNATSNotifier creates a notifier on subject.
func NewNATSNotifier(conn Conn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// Notify announces that collection changed.
func (n *NATSNotifier) Notify(_ context.Context, collection string) error {
	if err := n.conn.Publish(n.subject, []byte(collection)); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}

// Listen calls fn with the collection of every announcement until ctx ends.
func (n *NATSNotifier) Listen(ctx context.Context, fn func(collection string)) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		fn(string(msg.Data))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	go func() {
		<-ctx.Done()
		if sub == nil {
			return
		}
		if err := sub.Unsubscribe(); err != nil {
			log.WithError(err).Debug("failed to unsubscribe from change notifications")
		}
	}()
	return nil
}
