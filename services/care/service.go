package care

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawsewa/apperrors"
	"pawsewa/config"
	careModel "pawsewa/models/care"
	"pawsewa/models/payment"
	"pawsewa/models/pet"
	"pawsewa/services/policy"
	requestService "pawsewa/services/service_request"
	"pawsewa/types"
	careTypes "pawsewa/types/care"

	"gorm.io/gorm"
)

type CareService struct {
	DB       *gorm.DB
	Geofence config.Geofence
	Location *time.Location
	Now      func() time.Time
}

func NewCareService(db *gorm.DB, geofence config.Geofence, loc *time.Location) *CareService {
	if loc == nil {
		loc = time.UTC
	}
	return &CareService{DB: db, Geofence: geofence, Location: loc, Now: time.Now}
}

// Create stores a boarding or grooming request awaiting payment.
// The same service-area check as home visits applies.
func (s *CareService) Create(ctx context.Context, actor policy.Actor, in careTypes.CreateRequest) (*careModel.CareRequest, error) {
	if in.Location == nil || in.Location.Coordinates == nil ||
		in.Location.Coordinates.Lat == nil || in.Location.Coordinates.Lng == nil {
		return nil, apperrors.Validation("Valid location coordinates are required")
	}
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	start, err := requestService.ParseDay(in.StartDate, s.Location)
	if err != nil {
		return nil, err
	}
	end, err := requestService.ParseDay(in.EndDate, s.Location)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperrors.Validation("End date must not be before start date")
	}
	today := requestService.StartOfDay(s.Now(), s.Location)
	if start.Before(today) {
		return nil, apperrors.Validation("Start date must be in the future")
	}

	lat, lng := *in.Location.Coordinates.Lat, *in.Location.Coordinates.Lng
	if err := requestService.CheckGeofence(s.Geofence, lat, lng); err != nil {
		return nil, err
	}

	var p pet.Pet
	err = s.DB.WithContext(ctx).First(&p, in.PetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Pet not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load pet")
	}
	if p.OwnerID != actor.ID {
		return nil, apperrors.Forbidden("You can only book care for your own pets")
	}

	req := careModel.CareRequest{
		UserID:          actor.ID,
		PetID:           p.ID,
		CareType:        careModel.CareType(in.CareType),
		StartDate:       start.UTC(),
		EndDate:         end.UTC(),
		LocationAddress: strings.TrimSpace(in.Location.Address),
		LocationLat:     lat,
		LocationLng:     lng,
		Notes:           strings.TrimSpace(in.Notes),
		Status:          careModel.RequestPendingPayment,
		PaymentStatus:   payment.PaidStatusUnpaid,
	}
	if err := s.DB.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to create care request")
	}
	return &req, nil
}

func (s *CareService) ListMine(ctx context.Context, actor policy.Actor) ([]careModel.CareRequest, error) {
	var items []careModel.CareRequest
	err := s.DB.WithContext(ctx).Where("user_id = ?", actor.ID).Order("created_at DESC").Order("id DESC").Find(&items).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list care requests")
	}
	return items, nil
}

// MarkPaid moves a paid care request into review. It runs inside the payment completion transaction.
func MarkPaid(tx *gorm.DB, id uint) error {
	res := tx.Model(&careModel.CareRequest{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_status": payment.PaidStatusPaid,
		"status":         careModel.RequestPendingReview,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("care request %d not found", id)
	}
	return nil
}

// MarkBookingPaid confirms a paid hostel booking.
func MarkBookingPaid(tx *gorm.DB, id uint) error {
	res := tx.Model(&careModel.CareBooking{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_status": payment.PaidStatusPaid,
		"status":         careModel.BookingConfirmed,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("care booking %d not found", id)
	}
	return nil
}
