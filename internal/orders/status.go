package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy func(from, to model.OrderStatus) bool

// AnyTransition allows every change, including leaving COMPLETED or CANCELED.
func AnyTransition(from, to model.OrderStatus) bool { return true }

// TerminalLocked keeps COMPLETED and CANCELED orders where they are.
func TerminalLocked(from, to model.OrderStatus) bool {
	return !from.Terminal() || from == to
}

// StatusUpdate is the requested change for one order.
type StatusUpdate struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

// StatusResult is returned to the caller and published as the order.updated payload.
type StatusResult struct {
	ID     string            `json:"id"`
	Number int64             `json:"number"`
	Status model.OrderStatus `json:"status"`
}

// UpdateStatus moves an order to a new status. The status change and its
// history event commit together; order.updated is published on the
// restaurant's channel only after the commit, exactly once.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, in StatusUpdate) (*StatusResult, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	status, err := model.ParseStatus(in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order, err := s.store.UpdateOrderStatus(ctx, store.StatusChange{
		OrderID: orderID,
		Status:  status,
		Note:    in.Note,
		At:      s.now().UTC(),
		Check: func(current model.OrderStatus) error {
			if !s.policy(current, status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, status)
			}
			return nil
		},
	})
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		return nil, ErrOrderNotFound
	case errors.Is(err, ErrInvalidTransition):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	result := &StatusResult{ID: order.ID, Number: order.Number, Status: order.Status}
	s.logger.Info("order status updated",
		slog.String("order", order.ID),
		slog.Int64("number", order.Number),
		slog.String("status", string(order.Status)))
	s.broadcast(order.Restaurant.Slug, EventOrderUpdated, result)
	return result, nil
}
