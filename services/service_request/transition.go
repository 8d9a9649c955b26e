package service_request

import (
	"context"
	"strings"
	"time"

	"pawsewa/apperrors"
	"pawsewa/models/pet"
	requestModel "pawsewa/models/service_request"
	chatService "pawsewa/services/chat"
	"pawsewa/services/events"
	"pawsewa/services/policy"
	"pawsewa/tracing"
	"pawsewa/types"
	requestTypes "pawsewa/types/service_request"

	"gorm.io/gorm"
)

// change is the per-transition part of a status update, applied inside the transaction.
type change struct {
	to        requestModel.Status
	forbidden string
	reason    string
	apply     func(tx *gorm.DB, req *requestModel.ServiceRequest, at time.Time) (map[string]interface{}, error)
}

// transition runs the shared guard: load under lock, visibility, state graph, capability.
// The update, the status event and any side rows commit together.
func (s *ServiceRequestService) transition(ctx context.Context, actor policy.Actor, id uint, c change) (result *requestModel.ServiceRequest, err error) {
	ctx, span := tracing.Start(ctx, "service_request."+string(c.to))
	defer func() { tracing.End(span, err) }()

	var (
		previous  requestModel.Status
		prevStaff *uint
		ownerID   uint
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadRequest(tx, id, true)
		if err != nil {
			return err
		}
		if !actor.CanViewRequest(req) {
			return apperrors.Forbidden("%s", c.forbidden)
		}
		if !req.Status.CanTransitionTo(c.to) {
			return apperrors.ErrIllegalState.Msgf("Cannot move a service request from %s to %s", req.Status, c.to)
		}
		if !actor.CanTransition(req, c.to) {
			return apperrors.Forbidden("%s", c.forbidden)
		}

		previous = req.Status
		prevStaff = req.AssignedStaffID
		ownerID = req.UserID

		at := s.Now().UTC()
		updates, err := c.apply(tx, req, at)
		if err != nil {
			return err
		}
		updates["status"] = c.to
		if err := tx.Model(&requestModel.ServiceRequest{}).Where("id = ?", req.ID).Updates(updates).Error; err != nil {
			return apperrors.Internal(err, "failed to update service request")
		}
		return writeStatusEvent(tx, req.ID, previous, c.to, actor.ID, prevStaff, c.reason)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(string(previous), string(c.to))
	topics := []string{events.RequestTopic(id), events.UserTopic(ownerID)}
	if prevStaff != nil {
		topics = append(topics, events.UserTopic(*prevStaff))
	}
	events.Emit(ctx, s.Publisher, events.StatusChange,
		events.StatusChangePayload{RequestID: id, NewStatus: string(c.to), PreviousStatus: string(previous)},
		topics...)

	return s.reload(ctx, id)
}

func writeStatusEvent(tx *gorm.DB, requestID uint, from, to requestModel.Status, actorID uint, staffID *uint, reason string) error {
	ev := requestModel.StatusEvent{
		ServiceRequestID: requestID,
		FromStatus:       from,
		ToStatus:         to,
		ActorID:          actorID,
		StaffID:          staffID,
		Reason:           reason,
	}
	if err := tx.Create(&ev).Error; err != nil {
		return apperrors.Internal(err, "failed to record status change")
	}
	return nil
}

// Start moves an assigned visit to in_progress. Only the assignee may start it.
func (s *ServiceRequestService) Start(ctx context.Context, actor policy.Actor, id uint) (*requestModel.ServiceRequest, error) {
	return s.transition(ctx, actor, id, change{
		to:        requestModel.StatusInProgress,
		forbidden: "You are not assigned to this service request",
		apply: func(_ *gorm.DB, _ *requestModel.ServiceRequest, _ time.Time) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		},
	})
}

// Complete closes a visit. Visit notes are appended to the pet's medical history.
func (s *ServiceRequestService) Complete(ctx context.Context, actor policy.Actor, id uint, in requestTypes.CompleteRequest) (*requestModel.ServiceRequest, error) {
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	notes := strings.TrimSpace(in.Notes)
	return s.transition(ctx, actor, id, change{
		to:        requestModel.StatusCompleted,
		forbidden: "You are not assigned to this service request",
		apply: func(tx *gorm.DB, req *requestModel.ServiceRequest, at time.Time) (map[string]interface{}, error) {
			updates := map[string]interface{}{"completed_at": at}
			if notes == "" {
				return updates, nil
			}
			updates["visit_notes"] = notes
			reqID := req.ID
			entry := pet.MedicalHistoryEntry{
				PetID:            req.PetID,
				ServiceRequestID: &reqID,
				Note:             notes,
				RecordedBy:       actor.ID,
				RecordedAt:       at,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return nil, apperrors.Internal(err, "failed to update medical history")
			}
			return updates, nil
		},
	})
}

// Cancel is allowed to the owner and to admins from any non-terminal state.
// The assignee is released and the chat becomes read-only.
func (s *ServiceRequestService) Cancel(ctx context.Context, actor policy.Actor, id uint, in requestTypes.CancelRequest) (*requestModel.ServiceRequest, error) {
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	return s.transition(ctx, actor, id, change{
		to:        requestModel.StatusCancelled,
		forbidden: "Not authorized to cancel this service request",
		reason:    reason,
		apply: func(tx *gorm.DB, req *requestModel.ServiceRequest, at time.Time) (map[string]interface{}, error) {
			if err := chatService.CloseChat(tx, req.ID); err != nil {
				return nil, apperrors.Internal(err, "failed to close chat")
			}
			return map[string]interface{}{
				"cancelled_at":        at,
				"cancellation_reason": reason,
				"assigned_staff_id":   nil,
			}, nil
		},
	})
}
