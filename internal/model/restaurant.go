package model

import "time"

// Restaurant is a storefront. Its slug names the realtime channel its kitchen
// dashboards listen on.
type Restaurant struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Currency  string    `gorm:"size:3;not null;default:USD" json:"currency"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Categories []Category `gorm:"foreignKey:RestaurantID" json:"categories,omitempty"`
	Items      []MenuItem `gorm:"foreignKey:RestaurantID" json:"items,omitempty"`
}
