package store

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"table-status-backend/internal/model"
)

// GormStore keeps table documents in a relational database. Subscriptions
// are woken by local writes, by an optional Notifier and by polling.
type GormStore struct {
	db       *gorm.DB
	hub      *hub
	notifier Notifier
	poll     time.Duration
}

// Option configures a GormStore.
type Option func(*GormStore)

// WithNotifier publishes local writes and nothing else; call Wake from the
// notifier's listener to receive remote ones.
func WithNotifier(n Notifier) Option {
	return func(s *GormStore) { s.notifier = n }
}

// WithPollInterval sets how often subscriptions re-read. Zero disables it.
func WithPollInterval(d time.Duration) Option {
	return func(s *GormStore) { s.poll = d }
}

// NewGormStore creates a store backed by db.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{db: db, hub: newHub()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection for callers sharing it.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Wake makes every subscription of collection re-read immediately.
func (s *GormStore) Wake(collection string) {
	s.hub.wake(collection)
}

// MergeWrite implements Store.
func (s *GormStore) MergeWrite(ctx context.Context, collection, id string, fields Fields) error {
	if id == "" {
		return ErrInvalidDocument
	}

	row := model.Table{
		Collection: collection,
		ID:         id,
		Status:     model.StatusAvailable,
		Order:      model.Order{},
		UpdatedBy:  fields.UpdatedBy,
	}
	columns := []string{"updated_at"}
	if fields.Status != nil {
		row.Status = *fields.Status
		columns = append(columns, "status")
	}
	if fields.Order != nil {
		row.Order = fields.Order.Clone()
		columns = append(columns, "order_lines")
	}
	if fields.UpdatedBy != "" {
		columns = append(columns, "updated_by")
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("merge-write %s/%s: %w", collection, id, err)
	}

	s.hub.wake(collection)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, collection); err != nil {
			log.WithError(err).WithField("collection", collection).Warn("failed to publish change notification")
		}
	}
	return nil
}

// ReadAll implements Store.
func (s *GormStore) ReadAll(ctx context.Context, collection string) ([]model.Table, error) {
	var rows []model.Table
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	for i := range rows {
		if rows[i].Order == nil {
			rows[i].Order = model.Order{}
		}
	}
	return rows, nil
}

// Subscribe implements Store.
func (s *GormStore) Subscribe(ctx context.Context, collection string) (<-chan Update, error) {
	wake := s.hub.add(collection)
	out := make(chan Update, 1)
	feed := Feed{
		Collection: collection,
		Read:       func(ctx context.Context) ([]model.Table, error) { return s.ReadAll(ctx, collection) },
		Wake:       wake,
		Poll:       s.poll,
	}
	go func() {
		defer s.hub.remove(collection, wake)
		feed.Run(ctx, out)
	}()
	return out, nil
}
