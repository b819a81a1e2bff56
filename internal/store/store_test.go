package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kitchen-orders-backend/internal/db"
	"kitchen-orders-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a private in-memory database with the schema and demo data.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	require.NoError(t, db.SeedDemo(context.Background(), gormDB))
	return gormDB
}

func newOrder(id string, status model.OrderStatus, createdAt time.Time) *model.Order {
	note := "Order placed"
	return &model.Order{
		ID:            id,
		RestaurantID:  db.DemoRestaurantID,
		Type:          model.OrderTypePickup,
		Status:        status,
		CustomerName:  "Ada",
		Subtotal:      899,
		Total:         899,
		PaymentStatus: model.PaymentUnpaid,
		CreatedAt:     createdAt,
		Items: []model.OrderItem{
			{ItemID: db.DemoBurgerID, Name: "Classic Burger", UnitPrice: 899, Quantity: 1, OptionsJSON: "[]"},
		},
		Events: []model.StatusEvent{
			{Status: status, Note: &note, CreatedAt: createdAt},
		},
	}
}

func TestGormStore_UpdateOrderStatus_NotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1 ORDER BY "orders"."id" LIMIT \$[0-9]+`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "restaurant_id", "status"}))
	mock.ExpectRollback()

	order, err := store.UpdateOrderStatus(context.Background(), StatusChange{OrderID: "missing", Status: model.StatusReady, At: time.Now()})

	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateOrderStatus_RollsBackWhenEventInsertFails(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1`).
		WithArgs("o1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "restaurant_id", "status"}).
			AddRow("o1", 7, "r1", "PENDING"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "restaurants" WHERE "restaurants"."id" = $1`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow("r1", "Demo Deli", "demo-deli"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "status_events"`)).
		WithArgs("o1", "READY", Any{}, Any{}).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	note := "up next"
	order, err := store.UpdateOrderStatus(context.Background(), StatusChange{OrderID: "o1", Status: model.StatusReady, Note: &note, At: time.Now()})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOrderNotFound)
	assert.Contains(t, err.Error(), "disk full")
	assert.Nil(t, order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpdateOrderStatus_AppendsEvent(t *testing.T) {
	gormDB := newSQLiteDB(t)
	store := NewGormStore(gormDB)
	ctx := context.Background()

	placedAt := time.Now().Add(-time.Minute).UTC()
	require.NoError(t, store.CreateOrder(ctx, newOrder("o1", model.StatusPending, placedAt)))

	statuses := []model.OrderStatus{model.StatusConfirmed, model.StatusReady, model.StatusCanceled, model.StatusPreparing}
	for i, status := range statuses {
		at := placedAt.Add(time.Duration(i+1) * time.Second)
		order, err := store.UpdateOrderStatus(ctx, StatusChange{OrderID: "o1", Status: status, At: at})
		require.NoError(t, err)
		assert.Equal(t, status, order.Status)
		assert.Equal(t, int64(1), order.Number)
		assert.Equal(t, db.DemoRestaurantSlug, order.Restaurant.Slug)
	}

	var stored model.Order
	require.NoError(t, gormDB.Preload("Events", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		First(&stored, "id = ?", "o1").Error)

	require.Len(t, stored.Events, len(statuses)+1)
	assert.Equal(t, model.StatusPending, stored.Events[0].Status)
	for i, status := range statuses {
		assert.Equal(t, status, stored.Events[i+1].Status)
	}
	assert.Equal(t, stored.Events[len(stored.Events)-1].Status, stored.Status,
		"current status must equal the latest event")
}

func TestGormStore_UpdateOrderStatus_CheckCanVeto(t *testing.T) {
	gormDB := newSQLiteDB(t)
	store := NewGormStore(gormDB)
	ctx := context.Background()
	require.NoError(t, store.CreateOrder(ctx, newOrder("o1", model.StatusCanceled, time.Now().UTC())))

	errLocked := errors.New("locked")
	var seen model.OrderStatus
	_, err := store.UpdateOrderStatus(ctx, StatusChange{
		OrderID: "o1",
		Status:  model.StatusPending,
		At:      time.Now().UTC(),
		Check: func(current model.OrderStatus) error {
			seen = current
			return errLocked
		},
	})

	assert.ErrorIs(t, err, errLocked)
	assert.Equal(t, model.StatusCanceled, seen)

	var events int64
	gormDB.Model(&model.StatusEvent{}).Where("order_id = ?", "o1").Count(&events)
	assert.Equal(t, int64(1), events, "vetoed change must not append an event")
}

func TestGormStore_CreateOrderAssignsNumbers(t *testing.T) {
	gormDB := newSQLiteDB(t)
	store := NewGormStore(gormDB)
	ctx := context.Background()

	now := time.Now().UTC()
	first := newOrder("o1", model.StatusPending, now)
	second := newOrder("o2", model.StatusPending, now.Add(time.Second))
	require.NoError(t, store.CreateOrder(ctx, first))
	require.NoError(t, store.CreateOrder(ctx, second))

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)

	var items int64
	gormDB.Model(&model.OrderItem{}).Where("order_id = ?", "o2").Count(&items)
	assert.Equal(t, int64(1), items)
}

func TestGormStore_ListOrders(t *testing.T) {
	gormDB := newSQLiteDB(t)
	store := NewGormStore(gormDB)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateOrder(ctx, newOrder(fmt.Sprintf("o%d", i+1), model.StatusPending, base.Add(time.Duration(i)*time.Minute))))
	}
	_, err := store.UpdateOrderStatus(ctx, StatusChange{OrderID: "o1", Status: model.StatusReady, At: base.Add(10 * time.Minute)})
	require.NoError(t, err)

	orders, err := store.ListOrders(ctx, db.DemoRestaurantID, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o3", orders[0].ID, "newest first")
	assert.Equal(t, "o2", orders[1].ID)
	assert.Len(t, orders[0].Items, 1)

	all, err := store.ListOrders(ctx, db.DemoRestaurantID, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	oldest := all[2]
	require.Len(t, oldest.Events, 2)
	assert.Equal(t, model.StatusPending, oldest.Events[0].Status)
	assert.Equal(t, model.StatusReady, oldest.Events[1].Status)

	none, err := store.ListOrders(ctx, "unknown-restaurant", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormStore_Menu(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	menu, err := store.GetMenu(ctx, db.DemoRestaurantSlug)
	require.NoError(t, err)
	require.Len(t, menu.Categories, 1)
	require.Len(t, menu.Items, 1)
	require.Len(t, menu.Items[0].OptionGroups, 1)
	assert.Len(t, menu.Items[0].OptionGroups[0].Options, 3)

	_, err = store.GetMenu(ctx, "nowhere")
	assert.ErrorIs(t, err, ErrRestaurantNotFound)

	items, err := store.MenuItems(ctx, db.DemoRestaurantID, []string{db.DemoBurgerID, "not-an-item"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(899), items[db.DemoBurgerID].Price)

	items, err = store.MenuItems(ctx, "other-restaurant", []string{db.DemoBurgerID})
	require.NoError(t, err)
	assert.Empty(t, items, "items of another restaurant must not resolve")
}

func TestGormStore_PushSubscriptions(t *testing.T) {
	store := NewGormStore(newSQLiteDB(t))
	ctx := context.Background()

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", RestaurantID: db.DemoRestaurantID, P256DH: "k1", Auth: "a1"}
	require.NoError(t, store.SavePushSubscription(ctx, sub))

	// Saving the same endpoint again replaces the keys.
	require.NoError(t, store.SavePushSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/1", RestaurantID: db.DemoRestaurantID, P256DH: "k2", Auth: "a2",
	}))

	subs, err := store.PushSubscriptions(ctx, db.DemoRestaurantID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256DH)

	require.NoError(t, store.DeletePushSubscription(ctx, "https://push.example/1"))
	subs, err = store.PushSubscriptions(ctx, db.DemoRestaurantID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
