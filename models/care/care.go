package care

import (
	"time"

	"pawsewa/models/payment"
)

type RequestStatus string

const (
	RequestPendingPayment RequestStatus = "pending_payment"
	RequestPendingReview  RequestStatus = "pending_review"
	RequestAccepted       RequestStatus = "accepted"
	RequestCompleted      RequestStatus = "completed"
	RequestCancelled      RequestStatus = "cancelled"
)

type CareType string

const (
	CareTypeBoarding CareType = "Boarding"
	CareTypeGrooming CareType = "Grooming"
	CareTypeBoth     CareType = "Both"
)

func (t CareType) IsValid() bool {
	return t == CareTypeBoarding || t == CareTypeGrooming || t == CareTypeBoth
}

// CareRequest is a boarding or grooming request paid up front.
type CareRequest struct {
	ID              uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint               `gorm:"not null;index" json:"userId"`
	PetID           uint               `gorm:"not null;index" json:"petId"`
	CareType        CareType           `gorm:"type:varchar(20);not null" json:"careType"`
	StartDate       time.Time          `gorm:"not null" json:"startDate"`
	EndDate         time.Time          `gorm:"not null" json:"endDate"`
	LocationAddress string             `gorm:"type:varchar(500)" json:"locationAddress"`
	LocationLat     float64            `json:"locationLat"`
	LocationLng     float64            `json:"locationLng"`
	Notes           string             `gorm:"type:text" json:"notes,omitempty"`
	Status          RequestStatus      `gorm:"type:varchar(20);not null;default:pending_payment" json:"status"`
	PaymentStatus   payment.PaidStatus `gorm:"type:varchar(20);not null;default:unpaid" json:"paymentStatus"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// CareBooking is a hostel stay with a fixed price.
type CareBooking struct {
	ID               uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint               `gorm:"not null;index" json:"userId"`
	PetID            uint               `gorm:"not null" json:"petId"`
	HostelID         uint               `gorm:"not null;index" json:"hostelId"`
	CheckIn          time.Time          `gorm:"not null" json:"checkIn"`
	CheckOut         time.Time          `gorm:"not null" json:"checkOut"`
	TotalAmountPaisa int64              `gorm:"not null" json:"totalAmountPaisa"`
	Status           BookingStatus      `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	PaymentStatus    payment.PaidStatus `gorm:"type:varchar(20);not null;default:unpaid" json:"paymentStatus"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}
