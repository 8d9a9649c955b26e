package user

import "time"

// RegisterRequest is the public sign-up body. It always creates a pet owner.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Phone    string `json:"phone" validate:"max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateStaffRequest is used by admins to open any non-public account.
type CreateStaffRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Email          string `json:"email" validate:"required,email,max=255"`
	Password       string `json:"password" validate:"required,min=6,max=72"`
	Role           string `json:"role" validate:"required"`
	Phone          string `json:"phone" validate:"max=20"`
	Specialization string `json:"specialization" validate:"max=255"`
}

// Profile is the public view of an account.
type Profile struct {
	ID                      uint      `json:"id"`
	Name                    string    `json:"name"`
	Email                   string    `json:"email"`
	Phone                   string    `json:"phone,omitempty"`
	Role                    string    `json:"role"`
	Specialization          string    `json:"specialization,omitempty"`
	BusinessLicenseVerified bool      `json:"businessLicenseVerified"`
	CreatedAt               time.Time `json:"createdAt"`
}

// Session is returned on login.
type Session struct {
	Profile
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
