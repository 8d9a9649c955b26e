package main

import (
	"fmt"
	"os"

	"pawsewa/config"
	"pawsewa/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run tools/migrate.go up      - Apply pending migrations")
		fmt.Println("  go run tools/migrate.go down    - Roll back the last migration")
		fmt.Println("  go run tools/migrate.go status  - Show migration status")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	db, err := open(cfg.Database)
	if err != nil {
		fmt.Printf("❌ Failed to connect: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "up":
		fmt.Println("🚀 Applying migrations...")
		if err := database.RunMigrations(db); err != nil {
			fmt.Printf("❌ Migration failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Migration completed successfully!")
	case "down":
		fmt.Println("⏪ Rolling back last migration...")
		if err := database.RollbackMigration(db); err != nil {
			fmt.Printf("❌ Rollback failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Rollback completed")
	case "status":
		if err := database.MigrationStatus(db); err != nil {
			fmt.Printf("❌ %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Available commands: up, down, status")
	}
}

func open(cfg config.Database) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}
