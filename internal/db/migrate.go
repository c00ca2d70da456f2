package db

import (
	"errors"
	"fmt"

	"github.com/sidpg123/filemate-be/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations and seeds the default plan catalogue.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Document{},
		&models.FeeCategory{},
		&models.FeeRecord{},
		&models.Plan{},
		&models.Subscription{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultPlans(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

const gib = int64(1024 * 1024 * 1024)

// defaultPlans is the catalogue seeded into an empty plans table.
var defaultPlans = []models.Plan{
	{
		Name:         "free",
		DisplayName:  "Free",
		Description:  "Starter tier with limited storage.",
		Price:        0,
		StorageGrant: 500 * 1024 * 1024,
		ValidityDays: 365,
		Features:     datatypes.JSON([]byte(`["500 MB storage","Unlimited clients"]`)),
		SortOrder:    0,
	},
	{
		Name:         "standard",
		DisplayName:  "Standard",
		Description:  "For growing practices.",
		Price:        999,
		StorageGrant: 10 * gib,
		ValidityDays: 365,
		Features:     datatypes.JSON([]byte(`["10 GB storage","Unlimited clients","Priority support"]`)),
		SortOrder:    1,
	},
	{
		Name:         "pro",
		DisplayName:  "Pro",
		Description:  "For large practices with heavy document volume.",
		Price:        2499,
		StorageGrant: 50 * gib,
		ValidityDays: 365,
		Features:     datatypes.JSON([]byte(`["50 GB storage","Unlimited clients","Priority support","Bulk uploads"]`)),
		SortOrder:    2,
	},
}

// ensureDefaultPlans inserts the default plans when missing, keyed by name.
// Existing rows are never overwritten so operator edits survive restarts.
func ensureDefaultPlans(conn *gorm.DB) error {
	for i := range defaultPlans {
		plan := defaultPlans[i]
		var existing models.Plan
		errFind := conn.Where("name = ?", plan.Name).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: lookup plan %q: %w", plan.Name, errFind)
		}
		plan.IsEnabled = true
		if errCreate := conn.Create(&plan).Error; errCreate != nil {
			return fmt.Errorf("db: seed plan %q: %w", plan.Name, errCreate)
		}
	}
	return nil
}
