package location

import (
	"time"

	"pawsewa/models/user"
)

// StaffLocation is a short-lived position sample. Rows older than the configured TTL are purged.
type StaffLocation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StaffID   uint      `gorm:"not null;index" json:"staffId"`
	Role      user.Role `gorm:"type:varchar(30);not null" json:"role"`
	Lat       float64   `gorm:"not null" json:"lat"`
	Lng       float64   `gorm:"not null" json:"lng"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
}
