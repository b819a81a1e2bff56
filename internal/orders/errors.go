package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any database work.
	ErrValidation = errors.New("invalid payload")
	// ErrNotFound marks a missing order or restaurant.
	ErrNotFound = errors.New("not found")
	// ErrPersistence marks a failed database write or read.
	ErrPersistence = errors.New("server error")
	// ErrInvalidTransition is returned when the transition policy vetoes a change.
	ErrInvalidTransition = errors.New("status transition not allowed")

	// ErrOrderNotFound is returned for an unknown order id.
	ErrOrderNotFound = fmt.Errorf("%w: Order not found", ErrNotFound)
	// ErrRestaurantNotFound is returned for an unknown restaurant slug.
	ErrRestaurantNotFound = fmt.Errorf("%w: Restaurant not found", ErrNotFound)

	// ErrInvalidItem is returned for cart lines naming an unknown or unavailable item.
	ErrInvalidItem = fmt.Errorf("%w: Invalid item in cart", ErrValidation)
	// ErrInvalidOption is returned for options that do not belong to the line's item.
	ErrInvalidOption = fmt.Errorf("%w: Invalid option selection", ErrValidation)
)
