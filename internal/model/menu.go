package model

// Category groups menu items for display.
type Category struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	RestaurantID string `gorm:"index;size:36;not null" json:"restaurantId"`
	Name         string `gorm:"size:128;not null" json:"name"`
	Position     int    `gorm:"not null;default:0" json:"position"`
}

// MenuItem is a sellable dish. Prices are in minor currency units.
type MenuItem struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	RestaurantID string `gorm:"index;size:36;not null" json:"restaurantId"`
	CategoryID   string `gorm:"index;size:36" json:"categoryId"`
	Name         string `gorm:"size:256;not null" json:"name"`
	Description  string `json:"description"`
	Price        int64  `gorm:"not null" json:"price"`
	IsAvailable  bool   `gorm:"not null" json:"isAvailable"`

	// Associations
	OptionGroups []OptionGroup `gorm:"foreignKey:ItemID" json:"optionGroups"`
}

// OptionGroup is a set of add-ons or choices attached to one item.
type OptionGroup struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	RestaurantID string `gorm:"index;size:36;not null" json:"restaurantId"`
	ItemID       string `gorm:"index;size:36;not null" json:"itemId"`
	Name         string `gorm:"size:128;not null" json:"name"`
	MinSelect    int    `json:"minSelect"`
	MaxSelect    int    `json:"maxSelect"`
	Required     bool   `json:"required"`

	Options []Option `gorm:"foreignKey:GroupID" json:"options"`
}

// Option is a single choice; PriceDelta is added to the item price.
type Option struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	GroupID    string `gorm:"index;size:36;not null" json:"groupId"`
	Name       string `gorm:"size:128;not null" json:"name"`
	PriceDelta int64  `gorm:"not null;default:0" json:"priceDelta"`
}
