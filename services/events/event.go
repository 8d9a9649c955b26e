// Package events carries realtime broadcasts to the websocket hub and the optional message bus.
package events

import (
	"context"
	"fmt"
	"time"

	"pawsewa/logger"
)

// Event names sent to clients.
const (
	StatusChange     = "status_change"
	NewMessage       = "new_message"
	Typing           = "is_typing"
	StaffMoved       = "staff_moved"
	NotificationNew  = "notification"
	PaymentCompleted = "payment_completed"
	ErrorEvent       = "error"
	Ack              = "ack"
)

// Event is one broadcast addressed to a single topic.
type Event struct {
	Name  string      `json:"event"`
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Publisher delivers an event at most once. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

func RequestTopic(id uint) string {
	return fmt.Sprintf("request:%d", id)
}

func UserTopic(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// StatusChangePayload is broadcast on every service request transition.
type StatusChangePayload struct {
	RequestID      uint   `json:"requestId"`
	NewStatus      string `json:"newStatus"`
	PreviousStatus string `json:"previousStatus"`
}

const emitTimeout = 2 * time.Second

// Emit publishes data under name to every topic. Failures are logged and swallowed.
func Emit(ctx context.Context, p Publisher, name string, data interface{}, topics ...string) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()

	now := time.Now()
	for _, topic := range topics {
		e := Event{Name: name, Topic: topic, Data: data, At: now}
		if err := p.Publish(ctx, e); err != nil {
			logger.Warning(fmt.Sprintf("broadcast %s to %s failed: %v", name, topic, err))
		}
	}
}
