package service_request

import (
	"strings"
	"time"

	"pawsewa/apperrors"
	"pawsewa/config"
	requestModel "pawsewa/models/service_request"
	"pawsewa/types"
	requestTypes "pawsewa/types/service_request"

	"github.com/jinzhu/now"
)

// NewRequest is a create input that passed every check that needs no database.
type NewRequest struct {
	PetID           uint
	ServiceType     requestModel.ServiceType
	PreferredDate   time.Time
	TimeWindow      requestModel.TimeWindow
	LocationAddress string
	Lat             float64
	Lng             float64
	Notes           string
	PaymentMethod   requestModel.PaymentMethod
}

// ValidateNewServiceRequest checks required fields, enum values and the date.
// PreferredDate is returned as the start of that day in loc, expressed in UTC.
func ValidateNewServiceRequest(in requestTypes.CreateRequest, current time.Time, loc *time.Location) (*NewRequest, error) {
	if in.PetID == 0 || in.ServiceType == "" || in.PreferredDate == "" || in.TimeWindow == "" {
		return nil, apperrors.Validation("Please provide pet, service type, preferred date, and time window")
	}
	if in.Location == nil || in.Location.Coordinates == nil ||
		in.Location.Coordinates.Lat == nil || in.Location.Coordinates.Lng == nil {
		return nil, apperrors.Validation("Valid location coordinates are required")
	}
	if err := types.Validate(in); err != nil {
		return nil, err
	}

	serviceType := requestModel.ServiceType(in.ServiceType)
	if !serviceType.IsValid() {
		return nil, apperrors.Validation("Invalid service type: %s", in.ServiceType)
	}
	window := requestModel.TimeWindow(in.TimeWindow)
	if !window.IsValid() {
		return nil, apperrors.Validation("Invalid time window: %s", in.TimeWindow)
	}
	method := requestModel.PaymentMethodOnline
	if in.PaymentMethod != "" {
		method = requestModel.PaymentMethod(in.PaymentMethod)
	}

	day, err := ParseDay(in.PreferredDate, loc)
	if err != nil {
		return nil, err
	}
	if day.Before(StartOfDay(current, loc)) {
		return nil, apperrors.Validation("Preferred date must be in the future")
	}

	return &NewRequest{
		PetID:           in.PetID,
		ServiceType:     serviceType,
		PreferredDate:   day.UTC(),
		TimeWindow:      window,
		LocationAddress: strings.TrimSpace(in.Location.Address),
		Lat:             *in.Location.Coordinates.Lat,
		Lng:             *in.Location.Coordinates.Lng,
		Notes:           strings.TrimSpace(in.Notes),
		PaymentMethod:   method,
	}, nil
}

// ParseDay accepts YYYY-MM-DD or RFC3339 and returns the start of that day in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.Validation("Invalid preferred date: %s", value)
	}
	return now.With(t.In(loc)).BeginningOfDay(), nil
}

// StartOfDay is midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	return now.With(t.In(loc)).BeginningOfDay()
}

// CheckGeofence rejects coordinates outside the service area.
func CheckGeofence(g config.Geofence, lat, lng float64) error {
	if !g.Contains(lat, lng) {
		return apperrors.Validation("Service is restricted to Kathmandu Valley")
	}
	return nil
}

// ParseScheduledTime requires an RFC3339 instant.
func ParseScheduledTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.Validation("scheduledTime must be an RFC3339 timestamp")
	}
	return t.UTC(), nil
}
