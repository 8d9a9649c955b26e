package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"pawsewa/apperrors"
	"pawsewa/models/chat"
	"pawsewa/models/service_request"
	"pawsewa/services/events"
	"pawsewa/services/policy"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxMessageLength = 2000

// ChatService persists request-scoped chat and relays it to the request topic.
type ChatService struct {
	DB            *gorm.DB
	Publisher     events.Publisher
	ReadOnlyAfter time.Duration
	Now           func() time.Time
}

func NewChatService(db *gorm.DB, publisher events.Publisher, readOnlyAfter time.Duration) *ChatService {
	return &ChatService{DB: db, Publisher: publisher, ReadOnlyAfter: readOnlyAfter, Now: time.Now}
}

// EnsureChat opens the chat for an assigned request, or re-points it at a new assignee.
func EnsureChat(tx *gorm.DB, req *service_request.ServiceRequest) error {
	if req.AssignedStaffID == nil {
		return errors.New("ensure chat: request has no assignee")
	}
	c := chat.Chat{
		ServiceRequestID: req.ID,
		OwnerID:          req.UserID,
		StaffID:          *req.AssignedStaffID,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service_request_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"staff_id": c.StaffID, "is_read_only": false}),
	}).Create(&c).Error
}

// CloseChat makes the request's chat read-only, if one exists.
func CloseChat(tx *gorm.DB, requestID uint) error {
	return tx.Model(&chat.Chat{}).
		Where("service_request_id = ?", requestID).
		Update("is_read_only", true).Error
}

// JoinResult is returned to a client joining a request room.
type JoinResult struct {
	Room     string `json:"room"`
	ReadOnly bool   `json:"readOnly"`
}

// Authorize loads the request and checks that actor is a participant.
func (s *ChatService) Authorize(ctx context.Context, actor policy.Actor, requestID uint) (*service_request.ServiceRequest, error) {
	var req service_request.ServiceRequest
	err := s.DB.WithContext(ctx).
		Select("id", "user_id", "assigned_staff_id", "status", "completed_at").
		First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load request")
	}
	if !actor.CanViewRequest(&req) {
		return nil, apperrors.Forbidden("Not allowed to join this room")
	}
	return &req, nil
}

// IsReadOnly is true once the window after completion has elapsed, or after cancellation.
func (s *ChatService) IsReadOnly(req *service_request.ServiceRequest) bool {
	if req.Status == service_request.StatusCancelled {
		return true
	}
	if req.Status != service_request.StatusCompleted || req.CompletedAt == nil {
		return false
	}
	return s.Now().Sub(*req.CompletedAt) > s.ReadOnlyAfter
}

// Join authorizes a room join and syncs the chat's read-only flag.
func (s *ChatService) Join(ctx context.Context, actor policy.Actor, requestID uint) (*JoinResult, error) {
	req, err := s.Authorize(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	readOnly := s.IsReadOnly(req)
	if readOnly {
		if err := CloseChat(s.DB.WithContext(ctx), req.ID); err != nil {
			return nil, apperrors.Internal(err, "failed to update chat")
		}
	}
	return &JoinResult{Room: events.RequestTopic(req.ID), ReadOnly: readOnly}, nil
}

// Send stores a message and broadcasts new_message to the request room.
func (s *ChatService) Send(ctx context.Context, actor policy.Actor, requestID uint, text string) (*chat.Message, error) {
	text = strings.TrimSpace(text)
	if requestID == 0 || text == "" {
		return nil, apperrors.Validation("Missing requestId or text")
	}
	if len(text) > maxMessageLength {
		return nil, apperrors.Validation("Message is too long")
	}
	req, err := s.Authorize(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if s.IsReadOnly(req) {
		return nil, apperrors.Forbidden("Chat window expired. You can no longer send messages for this request.")
	}

	msg := chat.Message{ServiceRequestID: req.ID, SenderID: actor.ID, Content: text}
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to save message")
	}
	events.Emit(ctx, s.Publisher, events.NewMessage, msg, events.RequestTopic(req.ID))
	return &msg, nil
}

// History returns the conversation oldest first.
func (s *ChatService) History(ctx context.Context, actor policy.Actor, requestID uint) ([]chat.Message, error) {
	if _, err := s.Authorize(ctx, actor, requestID); err != nil {
		return nil, err
	}
	var msgs []chat.Message
	err := s.DB.WithContext(ctx).
		Where("service_request_id = ?", requestID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load messages")
	}
	return msgs, nil
}
