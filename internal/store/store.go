package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kitchen-orders-backend/internal/model"
)

var (
	// ErrOrderNotFound is returned when no order has the requested id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrRestaurantNotFound is returned when no restaurant has the requested slug.
	ErrRestaurantNotFound = errors.New("restaurant not found")
)

// StatusChange describes one status transition of an order.
type StatusChange struct {
	OrderID string
	Status  model.OrderStatus
	Note    *string
	At      time.Time
	// Check, when set, sees the current status inside the transaction and may
	// veto the change by returning an error, which is passed through as is.
	Check func(current model.OrderStatus) error
}

// Store defines the interface for all database operations.
type Store interface {
	FindRestaurant(ctx context.Context, slug string) (*model.Restaurant, error)
	GetMenu(ctx context.Context, slug string) (*model.Restaurant, error)
	MenuItems(ctx context.Context, restaurantID string, ids []string) (map[string]model.MenuItem, error)

	CreateOrder(ctx context.Context, order *model.Order) error
	UpdateOrderStatus(ctx context.Context, change StatusChange) (*model.Order, error)
	ListOrders(ctx context.Context, restaurantID string, limit int) ([]model.Order, error)

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	PushSubscriptions(ctx context.Context, restaurantID string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) FindRestaurant(ctx context.Context, slug string) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to load restaurant %q: %w", slug, err)
	}
	return &restaurant, nil
}

// GetMenu loads a restaurant with its categories, items and item options.
func (s *gormStore) GetMenu(ctx context.Context, slug string) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	err := s.db.WithContext(ctx).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.OptionGroups.Options").
		First(&restaurant, "slug = ?", slug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("failed to load menu for %q: %w", slug, err)
	}
	return &restaurant, nil
}

// MenuItems returns the restaurant's items among ids, keyed by id. Ids that do
// not belong to the restaurant are absent from the result.
func (s *gormStore) MenuItems(ctx context.Context, restaurantID string, ids []string) (map[string]model.MenuItem, error) {
	items := make(map[string]model.MenuItem, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	var rows []model.MenuItem
	err := s.db.WithContext(ctx).
		Preload("OptionGroups.Options").
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	for _, item := range rows {
		items[item.ID] = item
	}
	return items, nil
}

// CreateOrder assigns the next order number and inserts the order with its
// items and initial status events in one transaction.
func (s *gormStore) CreateOrder(ctx context.Context, order *model.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&model.Order{}).Select("COALESCE(MAX(number), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order.Number = last + 1

		if err := tx.Omit("Restaurant").Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
}

// UpdateOrderStatus sets the order's current status and appends the matching
// status event. Both writes commit together or not at all.
func (s *gormStore) UpdateOrderStatus(ctx context.Context, change StatusChange) (*model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Restaurant").First(&order, "id = ?", change.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to load order %s: %w", change.OrderID, err)
		}

		if change.Check != nil {
			if err := change.Check(order.Status); err != nil {
				return err
			}
		}

		if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).
			Updates(map[string]any{"status": change.Status, "updated_at": change.At}).Error; err != nil {
			return fmt.Errorf("failed to update status of order %s: %w", order.ID, err)
		}

		event := model.StatusEvent{OrderID: order.ID, Status: change.Status, Note: change.Note, CreatedAt: change.At}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append status event for order %s: %w", order.ID, err)
		}

		order.Status = change.Status
		order.UpdatedAt = change.At
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns the newest orders of a restaurant with their items and
// status history in chronological order.
func (s *gormStore) ListOrders(ctx context.Context, restaurantID string, limit int) ([]model.Order, error) {
	orders := []model.Order{}
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC, number DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// SavePushSubscription creates or replaces a kitchen device subscription.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"restaurant_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) PushSubscriptions(ctx context.Context, restaurantID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	return subs, nil
}
