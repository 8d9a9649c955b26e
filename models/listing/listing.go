package listing

import (
	"time"
)

// Listing is a provider-owned offer whose visibility follows the provider's subscription.
type Listing struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID uint      `gorm:"not null;index" json:"providerId"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	IsActive   bool      `gorm:"default:false" json:"isActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
