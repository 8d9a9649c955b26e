package database

import (
	"fmt"

	"pawsewa/config"
	"pawsewa/logger"
	"pawsewa/models/care"
	"pawsewa/models/chat"
	"pawsewa/models/listing"
	"pawsewa/models/location"
	"pawsewa/models/log"
	"pawsewa/models/notification"
	"pawsewa/models/order"
	"pawsewa/models/payment"
	"pawsewa/models/pet"
	"pawsewa/models/prescription"
	"pawsewa/models/service_request"
	"pawsewa/models/subscription"
	"pawsewa/models/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the Postgres connection and brings the schema up to date.
func InitDB(cfg config.Database) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			logger.Error("Failed to auto-migrate", err)
			return nil, err
		}
		logger.Success("Auto migration completed")
		return db, nil
	}

	if err := RunMigrations(db); err != nil {
		logger.Error("Failed to run SQL migrations", err)
		return nil, err
	}
	logger.Success("All SQL migrations applied")
	return db, nil
}

// Models lists every table, parents before children.
func Models() []interface{} {
	return []interface{}{
		// Stage 1: accounts and pets
		&user.User{},
		&pet.Pet{},
		&pet.MedicalHistoryEntry{},

		// Stage 2: requests and payment targets
		&service_request.ServiceRequest{},
		&service_request.StatusEvent{},
		&care.CareRequest{},
		&care.CareBooking{},
		&order.Order{},

		// Stage 3: money
		&payment.Payment{},
		&subscription.Subscription{},
		&listing.Listing{},

		// Stage 4: messaging
		&notification.Notification{},
		&chat.Chat{},
		&chat.Message{},
		&location.StaffLocation{},
		&prescription.Prescription{},

		// Logging
		&log.Log{},
	}
}

// Migrate builds the schema from the models. Used for local runs and tests.
func Migrate(db *gorm.DB) error {
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	return createIndexes(db)
}

// createIndexes adds the indexes that struct tags cannot express.
func createIndexes(db *gorm.DB) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"idx_service_requests_staff_active", "CREATE INDEX IF NOT EXISTS idx_service_requests_staff_active ON service_requests(assigned_staff_id, scheduled_time)"},
		{"idx_service_requests_created_at", "CREATE INDEX IF NOT EXISTS idx_service_requests_created_at ON service_requests(created_at)"},
		{"idx_payments_gateway_status", "CREATE INDEX IF NOT EXISTS idx_payments_gateway_status ON payments(gateway, status)"},
		{"idx_chat_messages_request_created", "CREATE INDEX IF NOT EXISTS idx_chat_messages_request_created ON chat_messages(service_request_id, created_at)"},
		{"idx_staff_locations_staff_created", "CREATE INDEX IF NOT EXISTS idx_staff_locations_staff_created ON staff_locations(staff_id, created_at)"},
		{"idx_logs_created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
		{"idx_logs_status_code", "CREATE INDEX IF NOT EXISTS idx_logs_status_code ON logs(status_code)"},
	}

	for _, s := range statements {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

// IsPostgres reports whether row locks are available on db.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
