package database

import (
	"fmt"
	"time"

	"eventra_backend/internal/config"
	"eventra_backend/internal/logger"
	"eventra_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var gormDB *gorm.DB

// ConnectGorm opens (once) the GORM connection using the configured
// database URL. TranslateError is on so unique violations surface as
// gorm.ErrDuplicatedKey.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	gormDB = db
	return db, nil
}

// SetDB overrides the shared connection. Used by tests to point the
// package at a transaction.
func SetDB(db *gorm.DB) {
	gormDB = db
}

func AutoMigrate() error {
	db, err := ConnectGorm()
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Event{},
		&models.EventMember{},
		&models.Invitation{},
		&models.Document{},
		&models.Subscription{},
		&models.PromotionalCode{},
		&models.PaymentTransaction{},
		&models.FailedPayment{},
		&models.Testimonial{},
		&models.LegalDocument{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed")
	return nil
}

// SeedPromotionalCodes inserts the launch promo codes if they do not
// exist yet. Safe to run on every start.
func SeedPromotionalCodes() error {
	db, err := ConnectGorm()
	if err != nil {
		return err
	}

	codes := []models.PromotionalCode{
		{
			Code:          "WELCOME10",
			DiscountType:  "percentage",
			DiscountValue: 10,
			ExpiresAt:     time.Now().AddDate(1, 0, 0),
			UsageLimit:    10000,
			IsActive:      true,
		},
		{
			Code:          "LAUNCH50",
			DiscountType:  "fixed",
			DiscountValue: 50,
			ExpiresAt:     time.Now().AddDate(0, 3, 0),
			UsageLimit:    500,
			EligibleTiers: datatypes.JSON(`["spotlight"]`),
			IsActive:      true,
		},
	}

	for i := range codes {
		var count int64
		if err := db.Model(&models.PromotionalCode{}).Where("code = ?", codes[i].Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&codes[i]).Error; err != nil {
			return fmt.Errorf("failed to seed promo code %s: %w", codes[i].Code, err)
		}
		logger.Info("Seeded promotional code", "code", codes[i].Code)
	}
	return nil
}
