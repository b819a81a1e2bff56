package model

import "time"

// Order is a placed order. Status mirrors the latest StatusEvent.
type Order struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Number        int64         `gorm:"uniqueIndex;not null" json:"number"`
	RestaurantID  string        `gorm:"index;size:36;not null" json:"restaurantId"`
	Type          OrderType     `gorm:"size:16;not null" json:"type"`
	Status        OrderStatus   `gorm:"size:32;not null;index" json:"status"`
	CustomerName  string        `gorm:"size:256;not null" json:"customerName"`
	Phone         *string       `gorm:"size:64" json:"phone"`
	Email         *string       `gorm:"size:256" json:"email"`
	Notes         *string       `json:"notes"`
	Address       *string       `json:"address"` // raw JSON supplied at checkout
	Subtotal      int64         `gorm:"not null" json:"subtotal"`
	Tax           int64         `gorm:"not null" json:"tax"`
	Total         int64         `gorm:"not null" json:"total"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null" json:"paymentStatus"`
	CreatedAt     time.Time     `gorm:"not null;index" json:"createdAt"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updatedAt"`

	// Associations
	Restaurant Restaurant    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Items      []OrderItem   `gorm:"foreignKey:OrderID" json:"items"`
	Events     []StatusEvent `gorm:"foreignKey:OrderID" json:"events"`
}

// OrderItem is a priced line of an order, frozen at placement time.
type OrderItem struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     string `gorm:"index;size:36;not null" json:"orderId"`
	ItemID      string `gorm:"size:36;not null" json:"itemId"`
	Name        string `gorm:"size:256;not null" json:"name"`
	UnitPrice   int64  `gorm:"not null" json:"unitPrice"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	OptionsJSON string `gorm:"column:options_json" json:"optionsJson"`
}

// StatusEvent is an append-only record of a status change. Rows are never
// updated or deleted.
type StatusEvent struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string      `gorm:"index;size:36;not null" json:"orderId"`
	Status    OrderStatus `gorm:"size:32;not null" json:"status"`
	Note      *string     `json:"note"`
	CreatedAt time.Time   `gorm:"not null;index" json:"createdAt"`
}
