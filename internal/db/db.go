package db

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/models"
)

// Connect opens the Postgres pool used by every handler.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Println("Database connected")
	return gdb, nil
}

// Models is the canonical schema, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserBadge{},
		&models.Job{},
		&models.Bid{},
		&models.Payment{},
		&models.Invoice{},
		&models.Rating{},
		&models.Message{},
		&models.JobAttachment{},
		&models.Notification{},
		&models.EmailLog{},
		&models.WalletTransaction{},
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}
