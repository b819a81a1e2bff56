package model

import "time"

// PushSubscription is a kitchen device registered for web push alerts about a
// restaurant's new orders.
type PushSubscription struct {
	Endpoint     string    `gorm:"primaryKey"`
	RestaurantID string    `gorm:"index;size:36;not null"`
	P256DH       string    `gorm:"column:p256dh;not null"`
	Auth         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
