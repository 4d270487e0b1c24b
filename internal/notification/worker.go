// Package notification sends web push alerts when a table becomes free.
package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"table-status-backend/internal/model"
	"table-status-backend/internal/parse"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers freed-table alerts in the background.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a pool of size workers.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger := log.WithField("worker", id)
	logger.Debug("push worker started")
	for {
		select {
		case tableID := <-wp.jobs:
			logger.WithField("table_id", tableID).Debug("processing freed table")
			wp.notifyFreed(ctx, tableID)
		case <-ctx.Done():
			logger.Debug("push worker shutting down")
			return
		}
	}
}

// Dispatch queues an alert for tableID. When the queue is full the alert is
// dropped.
func (wp *WorkerPool) Dispatch(tableID string) {
	select {
	case wp.jobs <- tableID:
	default:
		log.WithField("table_id", tableID).Warn("push queue full, dropping alert")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

func (wp *WorkerPool) notifyFreed(ctx context.Context, tableID string) {
	var all []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&all).Error; err != nil {
		log.WithError(err).WithField("table_id", tableID).Error("failed to load push subscriptions")
		return
	}

	var watching []model.PushSubscription
	for _, sub := range all {
		if sub.Watches(tableID) {
			watching = append(watching, sub)
		}
	}
	if len(watching) == 0 {
		return
	}

	log.WithFields(log.Fields{"table_id": tableID, "subscriptions": len(watching)}).Info("sending freed-table alerts")
	message := fmt.Sprintf("Mesa %s está disponível!", parse.Label(tableID))
	for _, sub := range watching {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send push notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.WithField("endpoint", sub.Endpoint).Info("push subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
