package service_request

import (
	"fmt"
	"time"

	"pawsewa/models/payment"
	"pawsewa/models/pet"
	"pawsewa/models/user"
)

// ServiceRequest is a customer's request for a home visit.
type ServiceRequest struct {
	ID     uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint       `gorm:"not null;index:idx_service_requests_user_status,priority:1" json:"userId"`
	User   *user.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PetID  uint       `gorm:"not null;index:idx_service_requests_pet_day,priority:1" json:"petId"`
	Pet    *pet.Pet   `gorm:"foreignKey:PetID" json:"pet,omitempty"`

	ServiceType     ServiceType `gorm:"type:varchar(30);not null" json:"serviceType"`
	PreferredDate   time.Time   `gorm:"not null;index:idx_service_requests_pet_day,priority:2" json:"preferredDate"`
	TimeWindow      TimeWindow  `gorm:"type:varchar(30);not null" json:"timeWindow"`
	LocationAddress string      `gorm:"type:varchar(500);not null" json:"locationAddress"`
	LocationLat     float64     `gorm:"not null" json:"locationLat"`
	LocationLng     float64     `gorm:"not null" json:"locationLng"`
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`

	Status         Status             `gorm:"type:varchar(20);not null;default:pending;index:idx_service_requests_user_status,priority:2;index:idx_service_requests_pet_day,priority:3" json:"status"`
	PaymentMethod  PaymentMethod      `gorm:"type:varchar(20);not null;default:online" json:"paymentMethod"`
	PaymentStatus  payment.PaidStatus `gorm:"type:varchar(20);not null;default:unpaid" json:"paymentStatus"`
	PaymentGateway *payment.Gateway   `gorm:"type:varchar(20)" json:"paymentGateway,omitempty"`

	AssignedStaffID *uint      `gorm:"index" json:"assignedStaffId,omitempty"`
	AssignedStaff   *user.User `gorm:"foreignKey:AssignedStaffID" json:"assignedStaff,omitempty"`
	ScheduledTime   *time.Time `json:"scheduledTime,omitempty"`
	AssignedAt      *time.Time `json:"assignedAt,omitempty"`

	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `gorm:"type:varchar(500)" json:"cancellationReason,omitempty"`
	AdminNotes         string     `gorm:"type:text" json:"adminNotes,omitempty"`
	VisitNotes         string     `gorm:"type:text" json:"visitNotes,omitempty"`

	ReviewRating   *int       `json:"reviewRating,omitempty"`
	ReviewComment  string     `gorm:"type:text" json:"reviewComment,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	PrescriptionID *uint      `json:"prescriptionId,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

// IsAssignee reports whether userID is the staff member currently assigned.
func (r *ServiceRequest) IsAssignee(userID uint) bool {
	return r.AssignedStaffID != nil && *r.AssignedStaffID == userID
}

// IsPaymentSatisfied is the gate in front of assignment.
func (r *ServiceRequest) IsPaymentSatisfied() bool {
	return r.PaymentMethod == PaymentMethodCashOnDelivery || r.PaymentStatus.IsPaid()
}

// CheckInvariants verifies that an assignee is present exactly in the staffed states.
func (r *ServiceRequest) CheckInvariants() error {
	hasStaff := r.AssignedStaffID != nil
	if hasStaff != r.Status.RequiresStaff() {
		return fmt.Errorf("service request %d: status %s with assignee=%v", r.ID, r.Status, hasStaff)
	}
	if r.Status.RequiresStaff() && r.ScheduledTime == nil {
		return fmt.Errorf("service request %d: status %s without scheduled time", r.ID, r.Status)
	}
	return nil
}
