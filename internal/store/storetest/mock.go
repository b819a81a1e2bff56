// Package storetest provides a testify mock of store.Store.
package storetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

// MockStore is a store.Store driven by testify expectations.
type MockStore struct {
	mock.Mock
}

var _ store.Store = (*MockStore)(nil)

func (m *MockStore) FindRestaurant(ctx context.Context, slug string) (*model.Restaurant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockStore) GetMenu(ctx context.Context, slug string) (*model.Restaurant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Restaurant), args.Error(1)
}

func (m *MockStore) MenuItems(ctx context.Context, restaurantID string, ids []string) (map[string]model.MenuItem, error) {
	args := m.Called(ctx, restaurantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.MenuItem), args.Error(1)
}

// CreateOrder assigns number 1 unless the expectation returns an error.
func (m *MockStore) CreateOrder(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	if err := args.Error(0); err != nil {
		return err
	}
	if order.Number == 0 {
		order.Number = 1
	}
	return nil
}

// UpdateOrderStatus runs change.Check against the current status carried by
// the returned order before reporting success.
func (m *MockStore) UpdateOrderStatus(ctx context.Context, change store.StatusChange) (*model.Order, error) {
	args := m.Called(ctx, change)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current := *args.Get(0).(*model.Order)
	if change.Check != nil {
		if err := change.Check(current.Status); err != nil {
			return nil, err
		}
	}
	current.Status = change.Status
	current.UpdatedAt = change.At
	return &current, nil
}

func (m *MockStore) ListOrders(ctx context.Context, restaurantID string, limit int) ([]model.Order, error) {
	args := m.Called(ctx, restaurantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return m.Called(ctx, endpoint).Error(0)
}

func (m *MockStore) PushSubscriptions(ctx context.Context, restaurantID string) ([]model.PushSubscription, error) {
	args := m.Called(ctx, restaurantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PushSubscription), args.Error(1)
}
