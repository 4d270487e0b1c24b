package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"table-status-backend/internal/model"
	"table-status-backend/internal/store/storetest"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, nil, &webpush.Options{})

	wp.Dispatch("mesa-4")

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "mesa-4", job)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, nil, &webpush.Options{})
	for i := 0; i < cap(wp.Jobs())+3; i++ {
		wp.Dispatch("mesa-1")
	}
	assert.Len(t, wp.Jobs(), cap(wp.Jobs()))
}

func TestWorkerPool_SendsToWatchingSubscriptions(t *testing.T) {
	db := storetest.NewSQLiteDB(t)
	require.NoError(t, db.Create(&[]model.PushSubscription{
		{Endpoint: "https://push.example/a", P256DH: "k1", Auth: "a1", TableIDs: []string{"mesa-2", "mesa-3"}},
		{Endpoint: "https://push.example/b", P256DH: "k2", Auth: "a2", TableIDs: []string{"mesa-9"}},
	}).Error)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	var (
		mu        sync.Mutex
		endpoints []string
		payloads  []string
	)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			mu.Lock()
			defer mu.Unlock()
			endpoints = append(endpoints, sub.Endpoint)
			payloads = append(payloads, string(payload))
			return response(http.StatusCreated), nil
		},
	}

	wp.notifyFreed(context.Background(), "mesa-3")

	assert.Equal(t, []string{"https://push.example/a"}, endpoints)
	assert.Equal(t, []string{"Mesa 3 está disponível!"}, payloads)
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	db := storetest.NewSQLiteDB(t)
	require.NoError(t, db.Create(&model.PushSubscription{
		Endpoint: "https://push.example/expired", P256DH: "k", Auth: "a", TableIDs: []string{"mesa-1"},
	}).Error)

	wp := NewWorkerPool(1, db, &webpush.Options{})
	sent := make(chan struct{}, 1)
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			sent <- struct{}{}
			return response(http.StatusGone), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)
	wp.Dispatch("mesa-1")
	<-sent

	require.Eventually(t, func() bool {
		var count int64
		db.Model(&model.PushSubscription{}).Count(&count)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_QueryErrorSendsNothing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).WillReturnError(errors.New("db down"))

	wp := NewWorkerPool(1, gormDB, &webpush.Options{})
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			t.Error("no notification expected")
			return response(http.StatusCreated), nil
		},
	}

	wp.notifyFreed(context.Background(), "mesa-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
