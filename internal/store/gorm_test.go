package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"table-status-backend/internal/model"
	"table-status-backend/internal/store/storetest"
)

const testCollection = "artifacts/test-app/public/data/tables"

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return gdb, mock
}

func statusPtr(s model.TableStatus) *model.TableStatus { return &s }

func TestMergeWrite_InsertsWithDefaults(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-1", Fields{Status: statusPtr(model.StatusOccupied)}))

	tables, err := s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "mesa-1", tables[0].ID)
	assert.Equal(t, model.StatusOccupied, tables[0].Status)
	assert.NotNil(t, tables[0].Order)
	assert.Empty(t, tables[0].Order)
}

func TestMergeWrite_LeavesUnspecifiedFields(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx := context.Background()
	lines := model.Order{{ID: "item1", Name: "Pizza Margherita", Price: 45, Quantity: 2}}

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-3", OrderFields(lines, model.StatusOccupied)))
	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-3", Fields{UpdatedBy: "station-b"}))

	tables, err := s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, model.StatusOccupied, tables[0].Status)
	assert.Equal(t, lines, tables[0].Order)
	assert.Equal(t, "station-b", tables[0].UpdatedBy)

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-3", Fields{Status: statusPtr(model.StatusAvailable)}))
	tables, err = s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, tables[0].Status)
	assert.Equal(t, lines, tables[0].Order, "status-only write must not touch the order")
}

func TestMergeWrite_RequiresID(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	err := s.MergeWrite(context.Background(), testCollection, "", Fields{})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestReadAll_CollectionsAreIsolated(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-1", Fields{}))
	require.NoError(t, s.MergeWrite(ctx, "artifacts/other/public/data/tables", "mesa-1", Fields{}))
	require.NoError(t, s.MergeWrite(ctx, "artifacts/other/public/data/tables", "mesa-2", Fields{}))

	tables, err := s.ReadAll(ctx, testCollection)
	require.NoError(t, err)
	assert.Len(t, tables, 1)
}

func TestReadAll_QueryError(t *testing.T) {
	gdb, mock := newTestDB(t)
	s := NewGormStore(gdb)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "dining_tables" WHERE collection = $1`)).
		WithArgs(testCollection).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ReadAll(context.Background(), testCollection)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeWrite_DatabaseError(t *testing.T) {
	gdb, mock := newTestDB(t)
	s := NewGormStore(gdb)

	mock.ExpectBegin().WillReturnError(errors.New("db down"))

	err := s.MergeWrite(context.Background(), testCollection, "mesa-1", Fields{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge-write")
	assert.Contains(t, err.Error(), "db down")
}

type recordingNotifier struct {
	notified chan string
}

func (n *recordingNotifier) Notify(_ context.Context, collection string) error {
	n.notified <- collection
	return nil
}

func (n *recordingNotifier) Listen(context.Context, func(string)) error { return nil }

func TestMergeWrite_PublishesToNotifier(t *testing.T) {
	n := &recordingNotifier{notified: make(chan string, 1)}
	s := NewGormStore(storetest.NewSQLiteDB(t), WithNotifier(n))

	require.NoError(t, s.MergeWrite(context.Background(), testCollection, "mesa-1", Fields{}))
	assert.Equal(t, testCollection, <-n.notified)
}

func nextUpdate(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Update{}
	}
}

func TestSubscribe_DeliversInitialAndChangedSnapshots(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-1", Fields{}))

	updates, err := s.Subscribe(ctx, testCollection)
	require.NoError(t, err)

	first := nextUpdate(t, updates)
	require.NoError(t, first.Err)
	assert.Len(t, first.Tables, 1)

	require.NoError(t, s.MergeWrite(ctx, testCollection, "mesa-2", Fields{Status: statusPtr(model.StatusOccupied)}))

	second := nextUpdate(t, updates)
	require.NoError(t, second.Err)
	require.Len(t, second.Tables, 2)
	assert.Equal(t, model.StatusOccupied, second.Tables[1].Status)
}

func TestSubscribe_SuppressesUnchangedSnapshots(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := s.Subscribe(ctx, testCollection)
	require.NoError(t, err)
	nextUpdate(t, updates)

	s.Wake(testCollection)
	select {
	case u := <-updates:
		t.Fatalf("unexpected update %+v", u)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribe_PollingPicksUpForeignWrites(t *testing.T) {
	gdb := storetest.NewSQLiteDB(t)
	reader := NewGormStore(gdb, WithPollInterval(20*time.Millisecond))
	writer := NewGormStore(gdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := reader.Subscribe(ctx, testCollection)
	require.NoError(t, err)
	assert.Empty(t, nextUpdate(t, updates).Tables)

	require.NoError(t, writer.MergeWrite(ctx, testCollection, "mesa-1", Fields{}))
	assert.Len(t, nextUpdate(t, updates).Tables, 1)
}

func TestSubscribe_ErrorEndsStream(t *testing.T) {
	gdb := storetest.NewSQLiteDB(t)
	s := NewGormStore(gdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := s.Subscribe(ctx, testCollection)
	require.NoError(t, err)
	nextUpdate(t, updates)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	s.Wake(testCollection)

	failed := nextUpdate(t, updates)
	assert.Error(t, failed.Err)

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "stream must close after an error")
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestSubscribe_ClosesOnCancel(t *testing.T) {
	s := NewGormStore(storetest.NewSQLiteDB(t))
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := s.Subscribe(ctx, testCollection)
	require.NoError(t, err)
	nextUpdate(t, updates)
	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}
