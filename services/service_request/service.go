package service_request

import (
	"context"
	"errors"
	"time"

	"pawsewa/apperrors"
	"pawsewa/config"
	"pawsewa/database"
	"pawsewa/metrics"
	"pawsewa/models/payment"
	"pawsewa/models/pet"
	requestModel "pawsewa/models/service_request"
	"pawsewa/services/events"
	notificationService "pawsewa/services/notification"
	"pawsewa/services/policy"
	requestTypes "pawsewa/types/service_request"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const CreatedMessage = "Status: Pending Review. We will notify you once a professional is assigned."

// ServiceRequestService owns the service request lifecycle.
type ServiceRequestService struct {
	DB        *gorm.DB
	Publisher events.Publisher
	Notifier  *notificationService.NotificationService
	Geofence  config.Geofence
	Location  *time.Location
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func NewServiceRequestService(
	db *gorm.DB,
	publisher events.Publisher,
	notifier *notificationService.NotificationService,
	geofence config.Geofence,
	loc *time.Location,
	m *metrics.Metrics,
) *ServiceRequestService {
	if loc == nil {
		loc = time.UTC
	}
	return &ServiceRequestService{
		DB:        db,
		Publisher: publisher,
		Notifier:  notifier,
		Geofence:  geofence,
		Location:  loc,
		Metrics:   m,
		Now:       time.Now,
	}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Preload("Pet").Preload("AssignedStaff")
}

// lockForUpdate adds FOR UPDATE where the dialect supports it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func loadRequest(tx *gorm.DB, id uint, lock bool) (*requestModel.ServiceRequest, error) {
	q := tx
	if lock {
		q = lockForUpdate(tx)
	}
	var req requestModel.ServiceRequest
	err := q.First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load service request")
	}
	return &req, nil
}

func (s *ServiceRequestService) reload(ctx context.Context, id uint) (*requestModel.ServiceRequest, error) {
	var req requestModel.ServiceRequest
	if err := withDetails(s.DB.WithContext(ctx)).First(&req, id).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to reload service request")
	}
	return &req, nil
}

// dayBounds returns the first and last instant of day's calendar day in the service timezone, in UTC.
func (s *ServiceRequestService) dayBounds(day time.Time) (time.Time, time.Time) {
	local := now.With(day.In(s.Location))
	return local.BeginningOfDay().UTC(), local.EndOfDay().UTC()
}

// Create validates, checks ownership, geofence and the one-pending-per-day rule, then stores the request.
func (s *ServiceRequestService) Create(ctx context.Context, actor policy.Actor, in requestTypes.CreateRequest) (*requestModel.ServiceRequest, error) {
	nr, err := ValidateNewServiceRequest(in, s.Now(), s.Location)
	if err != nil {
		return nil, err
	}

	var p pet.Pet
	err = s.DB.WithContext(ctx).First(&p, nr.PetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Pet not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load pet")
	}
	if p.OwnerID != actor.ID {
		return nil, apperrors.Forbidden("You can only create service requests for your own pets")
	}

	if err := CheckGeofence(s.Geofence, nr.Lat, nr.Lng); err != nil {
		return nil, err
	}

	req := requestModel.ServiceRequest{
		UserID:          actor.ID,
		PetID:           p.ID,
		ServiceType:     nr.ServiceType,
		PreferredDate:   nr.PreferredDate,
		TimeWindow:      nr.TimeWindow,
		LocationAddress: nr.LocationAddress,
		LocationLat:     nr.Lat,
		LocationLng:     nr.Lng,
		Notes:           nr.Notes,
		Status:          requestModel.StatusPending,
		PaymentMethod:   nr.PaymentMethod,
		PaymentStatus:   payment.PaidStatusUnpaid,
	}

	start, end := s.dayBounds(nr.PreferredDate)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&requestModel.ServiceRequest{}).
			Where("pet_id = ? AND status = ?", p.ID, requestModel.StatusPending).
			Where("preferred_date >= ? AND preferred_date <= ?", start, end).
			Count(&existing).Error
		if err != nil {
			return apperrors.Internal(err, "failed to check for duplicate requests")
		}
		if existing > 0 {
			return apperrors.ErrDuplicate.Msgf("A request for this pet is already under review for this date.")
		}
		if err := tx.Create(&req).Error; err != nil {
			return apperrors.Internal(err, "failed to create service request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, req.ID)
}

// List is the admin view, newest first.
func (s *ServiceRequestService) List(ctx context.Context, f requestTypes.ListFilter) ([]requestModel.ServiceRequest, error) {
	q := withDetails(s.DB.WithContext(ctx)).Model(&requestModel.ServiceRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ServiceType != "" {
		q = q.Where("service_type = ?", f.ServiceType)
	}
	if f.Date != "" {
		day, err := ParseDay(f.Date, s.Location)
		if err != nil {
			return nil, err
		}
		start, end := s.dayBounds(day)
		q = q.Where("preferred_date >= ? AND preferred_date <= ?", start, end)
	}

	var items []requestModel.ServiceRequest
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list service requests")
	}
	return items, nil
}

// ListMine returns the caller's own requests, newest first.
func (s *ServiceRequestService) ListMine(ctx context.Context, actor policy.Actor, status string) ([]requestModel.ServiceRequest, error) {
	q := s.DB.WithContext(ctx).Preload("Pet").Preload("AssignedStaff").Where("user_id = ?", actor.ID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var items []requestModel.ServiceRequest
	if err := q.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list service requests")
	}
	return items, nil
}

// ListAssignments returns the caller's open work, soonest first.
func (s *ServiceRequestService) ListAssignments(ctx context.Context, actor policy.Actor) ([]requestModel.ServiceRequest, error) {
	var items []requestModel.ServiceRequest
	err := s.DB.WithContext(ctx).Preload("User").Preload("Pet").
		Where("assigned_staff_id = ?", actor.ID).
		Where("status IN ?", []requestModel.Status{requestModel.StatusAssigned, requestModel.StatusInProgress}).
		Order("preferred_date ASC").Order("scheduled_time ASC").
		Find(&items).Error
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list assignments")
	}
	return items, nil
}

// Get returns one request to its owner, its assignee or an admin.
func (s *ServiceRequestService) Get(ctx context.Context, actor policy.Actor, id uint) (*requestModel.ServiceRequest, error) {
	var req requestModel.ServiceRequest
	err := withDetails(s.DB.WithContext(ctx)).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load service request")
	}
	if !actor.CanViewRequest(&req) {
		return nil, apperrors.Forbidden("Not authorized to view this service request")
	}
	return &req, nil
}
