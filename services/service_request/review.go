package service_request

import (
	"context"
	"strings"

	"pawsewa/apperrors"
	requestModel "pawsewa/models/service_request"
	"pawsewa/services/policy"
	"pawsewa/types"
	requestTypes "pawsewa/types/service_request"

	"gorm.io/gorm"
)

// Review lets the owner rate a completed visit once.
func (s *ServiceRequestService) Review(ctx context.Context, actor policy.Actor, id uint, in requestTypes.ReviewRequest) (*requestModel.ServiceRequest, error) {
	if err := types.Validate(in); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadRequest(tx, id, true)
		if err != nil {
			return err
		}
		if req.UserID != actor.ID {
			return apperrors.Forbidden("You can only review your own service requests")
		}
		if req.Status != requestModel.StatusCompleted {
			return apperrors.Conflict("Only completed service requests can be reviewed")
		}
		if req.ReviewRating != nil {
			return apperrors.Conflict("This service request has already been reviewed")
		}
		return tx.Model(&requestModel.ServiceRequest{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"review_rating":  in.Rating,
			"review_comment": strings.TrimSpace(in.Comment),
			"reviewed_at":    s.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}
