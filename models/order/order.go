package order

import (
	"time"

	"pawsewa/models/payment"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Order is a shop order. Only its payment and delivery rider are tracked here.
type Order struct {
	ID               uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint               `gorm:"not null;index" json:"userId"`
	RiderID          *uint              `gorm:"index" json:"riderId,omitempty"`
	TotalAmountPaisa int64              `gorm:"not null" json:"totalAmountPaisa"`
	Status           Status             `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	PaymentStatus    payment.PaidStatus `gorm:"type:varchar(20);not null;default:unpaid" json:"paymentStatus"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}
