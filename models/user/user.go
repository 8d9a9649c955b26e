package user

import (
	"time"
)

type Role string

const (
	RolePetOwner        Role = "pet_owner"
	RoleVeterinarian    Role = "veterinarian"
	RoleAdmin           Role = "admin"
	RoleRider           Role = "rider"
	RoleCareService     Role = "care_service"
	RoleShopOwner       Role = "shop_owner"
	RoleHostelOwner     Role = "hostel_owner"
	RoleServiceProvider Role = "service_provider"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePetOwner, RoleVeterinarian, RoleAdmin, RoleRider, RoleCareService,
		RoleShopOwner, RoleHostelOwner, RoleServiceProvider:
		return true
	default:
		return false
	}
}

// IsStaff is true for every account that works on requests rather than placing them.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RolePetOwner
}

// User is an account of any role.
type User struct {
	ID                      uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                    string     `gorm:"type:varchar(255);not null" json:"name"`
	Email                   string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Phone                   string     `gorm:"type:varchar(20)" json:"phone,omitempty"`
	PasswordHash            string     `gorm:"type:varchar(255);not null" json:"-"`
	Role                    Role       `gorm:"type:varchar(30);not null;index" json:"role"`
	Specialization          string     `gorm:"type:varchar(255)" json:"specialization,omitempty"`
	BusinessLicenseVerified bool       `gorm:"default:false" json:"businessLicenseVerified"`
	LiveLat                 *float64   `json:"-"`
	LiveLng                 *float64   `json:"-"`
	LiveUpdatedAt           *time.Time `json:"-"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
