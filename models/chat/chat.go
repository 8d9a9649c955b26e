package chat

import (
	"time"
)

// Chat is the single conversation attached to a service request.
type Chat struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceRequestID uint      `gorm:"not null;uniqueIndex" json:"serviceRequestId"`
	OwnerID          uint      `gorm:"not null" json:"ownerId"`
	StaffID          uint      `gorm:"not null" json:"staffId"`
	IsReadOnly       bool      `gorm:"default:false" json:"isReadOnly"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Message struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"messageId"`
	ServiceRequestID uint      `gorm:"not null;index" json:"requestId"`
	SenderID         uint      `gorm:"not null" json:"sender"`
	Content          string    `gorm:"type:text;not null" json:"text"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

func (Message) TableName() string {
	return "chat_messages"
}
