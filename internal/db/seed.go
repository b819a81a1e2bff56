package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"kitchen-orders-backend/internal/model"
)

// Demo data ids are fixed so seeding can run repeatedly.
const (
	DemoRestaurantID   = "seed-demo-deli"
	DemoRestaurantSlug = "demo-deli"
	DemoBurgerID       = "seed-classic-burger"
	DemoCheeseID       = "seed-opt-cheese"
	DemoBaconID        = "seed-opt-bacon"
	DemoOnionRingsID   = "seed-opt-onion-rings"
)

// SeedDemo inserts the Demo Deli restaurant with one burger and its add-ons.
// Existing rows are left untouched.
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := []any{
			&model.Restaurant{ID: DemoRestaurantID, Name: "Demo Deli", Slug: DemoRestaurantSlug, Currency: "USD"},
			&model.Category{ID: "seed-burgers", RestaurantID: DemoRestaurantID, Name: "Burgers", Position: 1},
			&model.MenuItem{
				ID:           DemoBurgerID,
				RestaurantID: DemoRestaurantID,
				CategoryID:   "seed-burgers",
				Name:         "Classic Burger",
				Description:  "Beef patty, lettuce, tomato, house sauce",
				Price:        899,
				IsAvailable:  true,
			},
			&model.OptionGroup{
				ID:           "seed-addons",
				RestaurantID: DemoRestaurantID,
				ItemID:       DemoBurgerID,
				Name:         "Add-ons",
				MinSelect:    0,
				MaxSelect:    3,
			},
			&model.Option{ID: DemoCheeseID, GroupID: "seed-addons", Name: "Cheese", PriceDelta: 100},
			&model.Option{ID: DemoBaconID, GroupID: "seed-addons", Name: "Bacon", PriceDelta: 200},
			&model.Option{ID: DemoOnionRingsID, GroupID: "seed-addons", Name: "Onion Rings", PriceDelta: 150},
		}
		for _, row := range rows {
			if err := tx.FirstOrCreate(row).Error; err != nil {
				return fmt.Errorf("seed %T: %w", row, err)
			}
		}
		return nil
	})
}
