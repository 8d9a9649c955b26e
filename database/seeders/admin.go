package seeders

import (
	"errors"
	"log"

	"pawsewa/models/user"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin account when none with that email exists.
func SeedAdmin(db *gorm.DB, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	log.Printf("🔍 Checking admin account %s...", email)

	var existing user.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("✅ Admin account already present")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("🌱 Seeded admin account %s", email)
	return nil
}
