package service_request

import (
	"time"
)

// StatusEvent records one lifecycle transition of a service request.
type StatusEvent struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceRequestID uint      `gorm:"not null;index" json:"serviceRequestId"`
	FromStatus       Status    `gorm:"type:varchar(20);not null" json:"fromStatus"`
	ToStatus         Status    `gorm:"type:varchar(20);not null" json:"toStatus"`
	ActorID          uint      `gorm:"not null" json:"actorId"`
	StaffID          *uint     `json:"staffId,omitempty"`
	Reason           string    `gorm:"type:varchar(500)" json:"reason,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (StatusEvent) TableName() string {
	return "service_request_status_events"
}
