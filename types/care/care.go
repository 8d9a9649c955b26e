package care

import (
	requestTypes "pawsewa/types/service_request"
)

// CreateRequest is the body of POST /care-requests. Dates are YYYY-MM-DD.
type CreateRequest struct {
	PetID     uint                   `json:"petId" validate:"required"`
	CareType  string                 `json:"careType" validate:"required,oneof=Boarding Grooming Both"`
	StartDate string                 `json:"startDate" validate:"required"`
	EndDate   string                 `json:"endDate" validate:"required"`
	Location  *requestTypes.Location `json:"location" validate:"required"`
	Notes     string                 `json:"notes" validate:"max=1000"`
}
