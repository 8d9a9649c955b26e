package notification

import (
	"time"
)

type Type string

const (
	TypeServiceRequest Type = "service_request"
	TypePayment        Type = "payment"
	TypeCase           Type = "case"
	TypeSystem         Type = "system"
)

// Notification is the durable, pull-based counterpart of a broadcast.
type Notification struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint      `gorm:"not null;index:idx_notifications_user_read,priority:1" json:"userId"`
	Title            string    `gorm:"type:varchar(255);not null" json:"title"`
	Message          string    `gorm:"type:text;not null" json:"message"`
	Type             Type      `gorm:"type:varchar(30);not null;default:service_request" json:"type"`
	ServiceRequestID *uint     `gorm:"index" json:"serviceRequestId,omitempty"`
	IsRead           bool      `gorm:"default:false;index:idx_notifications_user_read,priority:2" json:"isRead"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
