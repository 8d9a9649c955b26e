package service_request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawsewa/apperrors"
	"pawsewa/logger"
	"pawsewa/models/payment"
	requestModel "pawsewa/models/service_request"
	"pawsewa/models/user"
	chatService "pawsewa/services/chat"
	"pawsewa/services/events"
	notificationService "pawsewa/services/notification"
	"pawsewa/services/policy"
	"pawsewa/tracing"
	requestTypes "pawsewa/types/service_request"

	"gorm.io/gorm"
)

// ConflictWindow is the minimum distance between two visits held by one staff member.
const ConflictWindow = time.Hour

// Assign binds a veterinarian to a request at a scheduled time.
// Checks run in order: capability, input, request state, staff role, payment gate, schedule conflict.
// Notifications and broadcasts happen only after the transaction commits.
func (s *ServiceRequestService) Assign(ctx context.Context, actor policy.Actor, id uint, in requestTypes.AssignRequest) (result *requestModel.ServiceRequest, err error) {
	ctx, span := tracing.Start(ctx, "service_request.assign")
	defer func() { tracing.End(span, err) }()
	defer func() { s.Metrics.Assignment(assignOutcome(err)) }()

	if !actor.CanAssign() {
		return nil, apperrors.Forbidden("Only admins can assign service requests")
	}
	if in.StaffID == 0 {
		return nil, apperrors.Validation("Please provide staff ID")
	}
	scheduled, err := ParseScheduledTime(in.ScheduledTime)
	if err != nil {
		return nil, err
	}

	var (
		req      *requestModel.ServiceRequest
		staff    user.User
		previous requestModel.Status
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		req, err = loadRequest(tx, id, true)
		if err != nil {
			return err
		}
		if !req.Status.CanBeAssigned() {
			return apperrors.ErrIllegalState.Msgf("Cannot assign a service request that is %s", req.Status)
		}

		err = tx.First(&staff, in.StaffID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && staff.Role != user.RoleVeterinarian) {
			return apperrors.NotFound("Staff member not found")
		}
		if err != nil {
			return apperrors.Internal(err, "failed to load staff member")
		}

		if !req.IsPaymentSatisfied() {
			return apperrors.ErrPaymentRequired.Msgf(
				"Payment required: request uses %s payment and its payment status is %s",
				req.PaymentMethod, req.PaymentStatus)
		}

		if clash, err := findScheduleClash(tx, staff.ID, req.ID, scheduled); err != nil {
			return err
		} else if clash != nil {
			return apperrors.ErrScheduleClash.Msgf(
				"Staff member already has a visit at %s (request #%d)",
				clash.ScheduledTime.In(s.Location).Format("2006-01-02 15:04"), clash.ID)
		}

		previous = req.Status
		reason := ""
		if req.AssignedStaffID != nil && *req.AssignedStaffID != staff.ID {
			reason = fmt.Sprintf("reassigned from staff #%d", *req.AssignedStaffID)
		}

		assignedAt := s.Now().UTC()
		updates := map[string]interface{}{
			"assigned_staff_id": staff.ID,
			"status":            requestModel.StatusAssigned,
			"assigned_at":       assignedAt,
			"scheduled_time":    scheduled,
		}
		if in.AdminNotes != "" {
			updates["admin_notes"] = in.AdminNotes
		}
		if err := tx.Model(&requestModel.ServiceRequest{}).Where("id = ?", req.ID).Updates(updates).Error; err != nil {
			return apperrors.Internal(err, "failed to assign service request")
		}
		req.AssignedStaffID = &staff.ID
		req.Status = requestModel.StatusAssigned
		req.AssignedAt = &assignedAt
		req.ScheduledTime = &scheduled

		if err := req.CheckInvariants(); err != nil {
			return apperrors.Internal(err, "assignment broke request invariants")
		}
		if err := writeStatusEvent(tx, req.ID, previous, requestModel.StatusAssigned, actor.ID, &staff.ID, reason); err != nil {
			return err
		}
		if err := chatService.EnsureChat(tx, req); err != nil {
			return apperrors.Internal(err, "failed to open chat")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(string(previous), string(requestModel.StatusAssigned))
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.announceAssignment(ctx, updated, &staff, previous)
	return updated, nil
}

// findScheduleClash returns an active assignment of staffID less than ConflictWindow away from at.
func findScheduleClash(tx *gorm.DB, staffID, excludeID uint, at time.Time) (*requestModel.ServiceRequest, error) {
	var active []requestModel.ServiceRequest
	err := tx.Select("id", "scheduled_time").
		Where("assigned_staff_id = ? AND id <> ?", staffID, excludeID).
		Where("status IN ?", []requestModel.Status{requestModel.StatusAssigned, requestModel.StatusInProgress}).
		Where("scheduled_time IS NOT NULL").
		Order("scheduled_time ASC").
		Find(&active).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to check staff schedule")
	}
	for i := range active {
		if withinWindow(*active[i].ScheduledTime, at) {
			return &active[i], nil
		}
	}
	return nil, nil
}

func withinWindow(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < ConflictWindow
}

func (s *ServiceRequestService) announceAssignment(ctx context.Context, req *requestModel.ServiceRequest, staff *user.User, previous requestModel.Status) {
	petName := ""
	if req.Pet != nil {
		petName = req.Pet.Name
	}
	if s.Notifier != nil {
		err := s.Notifier.NotifyAssignment(ctx, notificationService.AssignmentNotice{
			OwnerID:          req.UserID,
			StaffID:          staff.ID,
			ServiceRequestID: req.ID,
			PetName:          petName,
			ServiceType:      string(req.ServiceType),
			StaffName:        staff.Name,
			ScheduledLabel:   req.ScheduledTime.In(s.Location).Format("Jan 2, 2006 3:04 PM"),
		})
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to write assignment notifications for request %d", req.ID), err)
		}
	}

	events.Emit(ctx, s.Publisher, events.StatusChange,
		events.StatusChangePayload{RequestID: req.ID, NewStatus: string(req.Status), PreviousStatus: string(previous)},
		events.RequestTopic(req.ID), events.UserTopic(req.UserID), events.UserTopic(staff.ID))
}

func assignOutcome(err error) string {
	switch {
	case err == nil:
		return "assigned"
	case errors.Is(err, apperrors.ErrPaymentRequired):
		return "payment_required"
	case errors.Is(err, apperrors.ErrScheduleClash):
		return "schedule_conflict"
	default:
		return "rejected"
	}
}

// MarkPaid flips the request's payment status. It runs inside the payment completion transaction.
func MarkPaid(tx *gorm.DB, requestID uint, gateway payment.Gateway) error {
	res := tx.Model(&requestModel.ServiceRequest{}).Where("id = ?", requestID).Updates(map[string]interface{}{
		"payment_status":  payment.PaidStatusPaid,
		"payment_gateway": gateway,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("service request %d not found", requestID)
	}
	return nil
}
