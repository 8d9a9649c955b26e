package prescription

import (
	"time"

	"gorm.io/datatypes"
)

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// Prescription is the structured result of parsing a vet's prescription photo.
type Prescription struct {
	ID               uint                            `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceRequestID uint                            `gorm:"not null;index" json:"serviceRequestId"`
	PetID            uint                            `gorm:"not null;index" json:"petId"`
	Medications      datatypes.JSONSlice[Medication] `json:"medications"`
	Instructions     string                          `gorm:"type:text" json:"instructions,omitempty"`
	RawText          string                          `gorm:"type:text" json:"rawText,omitempty"`
	CreatedBy        uint                            `gorm:"not null" json:"createdBy"`
	CreatedAt        time.Time                       `gorm:"autoCreateTime" json:"createdAt"`
}
