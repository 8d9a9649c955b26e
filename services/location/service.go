package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawsewa/apperrors"
	"pawsewa/logger"
	locationModel "pawsewa/models/location"
	"pawsewa/models/order"
	"pawsewa/models/service_request"
	"pawsewa/models/user"
	"pawsewa/services/events"
	"pawsewa/services/policy"
	"pawsewa/types"
	locationTypes "pawsewa/types/location"

	"gorm.io/gorm"
)

type LocationService struct {
	DB        *gorm.DB
	Publisher events.Publisher
	TTL       time.Duration
	Now       func() time.Time
}

func NewLocationService(db *gorm.DB, publisher events.Publisher, ttl time.Duration) *LocationService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LocationService{DB: db, Publisher: publisher, TTL: ttl, Now: time.Now}
}

// Update records a staff member's position. Riders also broadcast it to the rooms they serve.
func (s *LocationService) Update(ctx context.Context, actor policy.Actor, in locationTypes.UpdateRequest) (*locationTypes.Position, error) {
	if !actor.CanUpdateLocation() {
		return nil, apperrors.Forbidden("Only staff accounts can update live location")
	}
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	at := s.Now().UTC()
	lat, lng := *in.Lat, *in.Lng
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := locationModel.StaffLocation{StaffID: actor.ID, Role: actor.Role, Lat: lat, Lng: lng, CreatedAt: at}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&user.User{}).Where("id = ?", actor.ID).Updates(map[string]interface{}{
			"live_lat":        lat,
			"live_lng":        lng,
			"live_updated_at": at,
		}).Error
	})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to update location")
	}

	if actor.Role == user.RoleRider {
		s.broadcastMove(ctx, actor, lat, lng, at)
	}

	return &locationTypes.Position{
		StaffID:     actor.ID,
		Name:        actor.Name,
		Role:        string(actor.Role),
		Coordinates: locationTypes.Coordinates{Lat: lat, Lng: lng},
		UpdatedAt:   at,
	}, nil
}

// broadcastMove sends staff_moved to every active request room and order owner the rider serves.
func (s *LocationService) broadcastMove(ctx context.Context, actor policy.Actor, lat, lng float64, at time.Time) {
	var requestIDs []uint
	err := s.DB.WithContext(ctx).Model(&service_request.ServiceRequest{}).
		Where("assigned_staff_id = ? AND status IN ?", actor.ID,
			[]service_request.Status{service_request.StatusAssigned, service_request.StatusInProgress}).
		Pluck("id", &requestIDs).Error
	if err != nil {
		logger.Error("Failed to load rider requests", err)
	}
	for _, id := range requestIDs {
		payload := locationTypes.MovedPayload{StaffID: actor.ID, Role: string(actor.Role), Lat: lat, Lng: lng, RequestID: id, At: at}
		events.Emit(ctx, s.Publisher, events.StaffMoved, payload, events.RequestTopic(id))
	}

	var orders []order.Order
	err = s.DB.WithContext(ctx).Select("id", "user_id").
		Where("rider_id = ? AND status = ?", actor.ID, order.StatusProcessing).
		Find(&orders).Error
	if err != nil {
		logger.Error("Failed to load rider orders", err)
	}
	for _, o := range orders {
		payload := locationTypes.MovedPayload{StaffID: actor.ID, Role: string(actor.Role), Lat: lat, Lng: lng, OrderID: o.ID, At: at}
		events.Emit(ctx, s.Publisher, events.StaffMoved, payload, events.UserTopic(o.UserID))
	}
}

// Live returns the assignee's position for one request, subject to the privacy rule.
func (s *LocationService) Live(ctx context.Context, actor policy.Actor, requestID uint) (*locationTypes.Live, error) {
	var req service_request.ServiceRequest
	err := s.DB.WithContext(ctx).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Service request not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load service request")
	}
	if !actor.CanViewRequest(&req) {
		return nil, apperrors.Forbidden("Not authorized to view this service request")
	}

	out := &locationTypes.Live{RequestID: req.ID}
	if req.AssignedStaffID == nil {
		out.Message = "No staff assigned yet"
		return out, nil
	}

	var staff user.User
	if err := s.DB.WithContext(ctx).Select("id", "name", "role").First(&staff, *req.AssignedStaffID).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to load assigned staff")
	}
	out.Available = true
	if !actor.CanSeeStaffLocation(&req, staff.Role) {
		out.Message = "Live location is not shared for this service"
		return out, nil
	}
	out.Visible = true

	var last locationModel.StaffLocation
	err = s.DB.WithContext(ctx).Where("staff_id = ?", staff.ID).Order("created_at DESC").Order("id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		out.Message = "Location not shared yet"
		return out, nil
	}
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load location")
	}

	out.Staff = &locationTypes.Position{
		StaffID:     staff.ID,
		Name:        staff.Name,
		Role:        string(staff.Role),
		Coordinates: locationTypes.Coordinates{Lat: last.Lat, Lng: last.Lng},
		UpdatedAt:   last.CreatedAt,
	}
	out.IsLive = s.Now().Sub(last.CreatedAt) <= s.TTL
	if !out.IsLive {
		out.Message = "Location is stale"
	}
	return out, nil
}

// ListLive is the admin map: every staff member who reported within the TTL, optionally by role.
func (s *LocationService) ListLive(ctx context.Context, role string) ([]locationTypes.Position, error) {
	since := s.Now().UTC().Add(-s.TTL)
	q := s.DB.WithContext(ctx).Model(&user.User{}).
		Where("live_updated_at IS NOT NULL AND live_updated_at >= ?", since)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []user.User
	if err := q.Order("live_updated_at DESC").Find(&users).Error; err != nil {
		return nil, apperrors.Internal(err, "failed to list live staff")
	}

	out := make([]locationTypes.Position, 0, len(users))
	for _, u := range users {
		if u.LiveLat == nil || u.LiveLng == nil {
			continue
		}
		out = append(out, locationTypes.Position{
			StaffID:     u.ID,
			Name:        u.Name,
			Role:        string(u.Role),
			Coordinates: locationTypes.Coordinates{Lat: *u.LiveLat, Lng: *u.LiveLng},
			UpdatedAt:   *u.LiveUpdatedAt,
		})
	}
	return out, nil
}

// Purge deletes samples older than the TTL.
func (s *LocationService) Purge(ctx context.Context) (int64, error) {
	cutoff := s.Now().UTC().Add(-s.TTL)
	res := s.DB.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&locationModel.StaffLocation{})
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "failed to purge locations")
	}
	return res.RowsAffected, nil
}

// RunJanitor purges stale samples every interval until ctx is cancelled.
func (s *LocationService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				logger.Error("Location purge failed", err)
				continue
			}
			if n > 0 {
				logger.Debug(fmt.Sprintf("Purged %d stale location(s)", n))
			}
		}
	}
}
