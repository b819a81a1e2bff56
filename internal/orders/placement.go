package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/bytedance/sonic"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

const placedNote = "Order placed"

// OptionRef selects one option of a cart line.
type OptionRef struct {
	ID string `json:"id" binding:"required"`
}

// LineInput is one cart line.
type LineInput struct {
	ItemID   string      `json:"itemId" binding:"required"`
	Quantity int         `json:"quantity" binding:"required,min=1"`
	Options  []OptionRef `json:"options" binding:"dive"`
}

// PlaceOrderInput is a customer checkout.
type PlaceOrderInput struct {
	RestaurantSlug string          `json:"restaurantSlug" binding:"required"`
	Type           model.OrderType `json:"type" binding:"required,oneof=PICKUP DELIVERY"`
	CustomerName   string          `json:"customerName" binding:"required"`
	Phone          *string         `json:"phone"`
	Email          *string         `json:"email" binding:"omitempty,email"`
	Notes          *string         `json:"notes"`
	Address        json.RawMessage `json:"address"`
	Items          []LineInput     `json:"items" binding:"required,min=1,dive"`
}

func (in PlaceOrderInput) validate() error {
	switch {
	case in.RestaurantSlug == "":
		return fmt.Errorf("%w: restaurantSlug is required", ErrValidation)
	case in.Type != model.OrderTypePickup && in.Type != model.OrderTypeDelivery:
		return fmt.Errorf("%w: type must be PICKUP or DELIVERY", ErrValidation)
	case in.CustomerName == "":
		return fmt.Errorf("%w: customerName is required", ErrValidation)
	case len(in.Items) == 0:
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for i, line := range in.Items {
		if line.ItemID == "" || line.Quantity < 1 {
			return fmt.Errorf("%w: item %d needs an itemId and a quantity of at least 1", ErrValidation, i)
		}
	}
	return nil
}

// PlacedOrder is the checkout receipt.
type PlacedOrder struct {
	ID       string            `json:"id"`
	Number   int64             `json:"number"`
	Total    int64             `json:"total"`
	Subtotal int64             `json:"subtotal"`
	Tax      int64             `json:"tax"`
	Currency string            `json:"currency"`
	Status   model.OrderStatus `json:"status"`
}

type createdPayload struct {
	ID string `json:"id"`
}

// PlaceOrder prices the cart against the restaurant's menu and stores a new
// PENDING order with its first history event. On success order.created is
// published on the restaurant's channel and kitchen devices are alerted.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlacedOrder, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	restaurant, err := s.store.FindRestaurant(ctx, in.RestaurantSlug)
	if err != nil {
		if errors.Is(err, store.ErrRestaurantNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	ids := make([]string, 0, len(in.Items))
	for _, line := range in.Items {
		ids = append(ids, line.ItemID)
	}
	menu, err := s.store.MenuItems(ctx, restaurant.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	lines, subtotal, err := priceLines(in.Items, menu)
	if err != nil {
		return nil, err
	}
	tax := int64(math.Round(float64(subtotal) * s.taxRate))

	now := s.now().UTC()
	note := placedNote
	order := &model.Order{
		ID:            s.newID(),
		RestaurantID:  restaurant.ID,
		Type:          in.Type,
		Status:        model.StatusPending,
		CustomerName:  in.CustomerName,
		Phone:         in.Phone,
		Email:         in.Email,
		Notes:         in.Notes,
		Subtotal:      subtotal,
		Tax:           tax,
		Total:         subtotal + tax,
		PaymentStatus: model.PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         lines,
		Events:        []model.StatusEvent{{Status: model.StatusPending, Note: &note, CreatedAt: now}},
	}
	if len(in.Address) > 0 && string(in.Address) != "null" {
		address := string(in.Address)
		order.Address = &address
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("order placed",
		slog.String("restaurant", restaurant.Slug),
		slog.String("order", order.ID),
		slog.Int64("number", order.Number),
		slog.Int64("total", order.Total))
	s.broadcast(restaurant.Slug, EventOrderCreated, createdPayload{ID: order.ID})
	if s.notifier != nil {
		s.notifier.NotifyNewOrder(*order)
	}

	return &PlacedOrder{
		ID:       order.ID,
		Number:   order.Number,
		Total:    order.Total,
		Subtotal: order.Subtotal,
		Tax:      order.Tax,
		Currency: restaurant.Currency,
		Status:   order.Status,
	}, nil
}

// priceLines turns cart lines into order items. Each item must be on the
// restaurant's menu and available; each option must belong to that item.
func priceLines(in []LineInput, menu map[string]model.MenuItem) ([]model.OrderItem, int64, error) {
	lines := make([]model.OrderItem, 0, len(in))
	var subtotal int64
	for _, line := range in {
		item, ok := menu[line.ItemID]
		if !ok || !item.IsAvailable {
			return nil, 0, ErrInvalidItem
		}

		deltas := make(map[string]int64)
		for _, group := range item.OptionGroups {
			for _, opt := range group.Options {
				deltas[opt.ID] = opt.PriceDelta
			}
		}

		selected := make([]OptionRef, 0, len(line.Options))
		var delta int64
		for _, ref := range line.Options {
			d, ok := deltas[ref.ID]
			if !ok {
				return nil, 0, ErrInvalidOption
			}
			delta += d
			selected = append(selected, OptionRef{ID: ref.ID})
		}

		options, err := sonic.ConfigStd.Marshal(selected)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
		}

		subtotal += (item.Price + delta) * int64(line.Quantity)
		lines = append(lines, model.OrderItem{
			ItemID:      item.ID,
			Name:        item.Name,
			UnitPrice:   item.Price,
			Quantity:    line.Quantity,
			OptionsJSON: string(options),
		})
	}
	return lines, subtotal, nil
}

// ListOrders returns up to limit of the restaurant's newest orders. A
// non-positive limit means the default; larger limits are capped.
func (s *Service) ListOrders(ctx context.Context, slug string, limit int) ([]model.Order, error) {
	restaurant, err := s.store.FindRestaurant(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrRestaurantNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if limit <= 0 {
		limit = s.listDefault
	}
	if limit > s.listMax {
		limit = s.listMax
	}

	orders, err := s.store.ListOrders(ctx, restaurant.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return orders, nil
}

// Menu returns the restaurant's full menu.
func (s *Service) Menu(ctx context.Context, slug string) (*model.Restaurant, error) {
	menu, err := s.store.GetMenu(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrRestaurantNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return menu, nil
}
