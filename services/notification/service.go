package notification

import (
	"context"
	"errors"
	"fmt"

	"pawsewa/apperrors"
	"pawsewa/models/notification"
	"pawsewa/services/events"

	"gorm.io/gorm"
)

const listLimit = 50

// NotificationService writes durable notifications and pushes each one to the recipient's topic.
type NotificationService struct {
	DB        *gorm.DB
	Publisher events.Publisher
}

func NewNotificationService(db *gorm.DB, publisher events.Publisher) *NotificationService {
	return &NotificationService{DB: db, Publisher: publisher}
}

// Notify stores every notification in one insert, then announces them.
func (s *NotificationService) Notify(ctx context.Context, items ...notification.Notification) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.DB.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	for _, n := range items {
		events.Emit(ctx, s.Publisher, events.NotificationNew, n, events.UserTopic(n.UserID))
	}
	return nil
}

// AssignmentNotice describes an assignment for the owner and staff notifications.
type AssignmentNotice struct {
	OwnerID          uint
	StaffID          uint
	ServiceRequestID uint
	PetName          string
	ServiceType      string
	StaffName        string
	ScheduledLabel   string
}

func (s *NotificationService) NotifyAssignment(ctx context.Context, a AssignmentNotice) error {
	reqID := a.ServiceRequestID
	return s.Notify(ctx,
		notification.Notification{
			UserID:           a.OwnerID,
			Title:            "Service request assigned",
			Message:          fmt.Sprintf("Your %s request for %s has been assigned to %s at %s.", a.ServiceType, a.PetName, a.StaffName, a.ScheduledLabel),
			Type:             notification.TypeServiceRequest,
			ServiceRequestID: &reqID,
		},
		notification.Notification{
			UserID:           a.StaffID,
			Title:            "New service assignment",
			Message:          fmt.Sprintf("You have been assigned a new %s request for %s at %s.", a.ServiceType, a.PetName, a.ScheduledLabel),
			Type:             notification.TypeServiceRequest,
			ServiceRequestID: &reqID,
		},
	)
}

// ListForUser returns unread first, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID uint) ([]notification.Notification, error) {
	var items []notification.Notification
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_read ASC").
		Order("created_at DESC").
		Order("id DESC").
		Limit(listLimit).
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load notifications")
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*notification.Notification, error) {
	var n notification.Notification
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Notification not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load notification")
	}
	if !n.IsRead {
		if err := s.DB.WithContext(ctx).Model(&n).Update("is_read", true).Error; err != nil {
			return nil, apperrors.Internal(err, "failed to update notification")
		}
		n.IsRead = true
	}
	return &n, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&notification.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to update notifications")
	}
	return res.RowsAffected, nil
}
