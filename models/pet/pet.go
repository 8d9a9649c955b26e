package pet

import (
	"time"
)

type Species string

const (
	SpeciesDog   Species = "Dog"
	SpeciesCat   Species = "Cat"
	SpeciesBird  Species = "Bird"
	SpeciesOther Species = "Other"
)

func (s Species) IsValid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesBird, SpeciesOther:
		return true
	default:
		return false
	}
}

type Pet struct {
	ID             uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID        uint                  `gorm:"not null;index" json:"ownerId"`
	Name           string                `gorm:"type:varchar(255);not null" json:"name"`
	Species        Species               `gorm:"type:varchar(20);not null" json:"species"`
	Breed          string                `gorm:"type:varchar(255)" json:"breed,omitempty"`
	Age            *int                  `json:"age,omitempty"`
	Image          string                `gorm:"type:varchar(2048)" json:"image,omitempty"`
	MedicalHistory []MedicalHistoryEntry `gorm:"foreignKey:PetID" json:"medicalHistory,omitempty"`
	CreatedAt      time.Time             `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time             `gorm:"autoUpdateTime" json:"updatedAt"`
}

// MedicalHistoryEntry is append-only: rows are inserted on visit completion and never rewritten.
type MedicalHistoryEntry struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PetID            uint      `gorm:"not null;index" json:"petId"`
	ServiceRequestID *uint     `gorm:"index" json:"serviceRequestId,omitempty"`
	Note             string    `gorm:"type:text;not null" json:"note"`
	RecordedBy       uint      `gorm:"not null" json:"recordedBy"`
	RecordedAt       time.Time `gorm:"not null" json:"recordedAt"`
}

func (MedicalHistoryEntry) TableName() string {
	return "pet_medical_history"
}
