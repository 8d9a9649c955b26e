package payment

import (
	"errors"
	"math"
	"time"

	"gorm.io/datatypes"
)

// Payment is one attempt to pay for exactly one target.
type Payment struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           uint       `gorm:"not null;index" json:"userId"`
	TargetType       TargetType `gorm:"type:varchar(20);not null" json:"targetType"`
	ServiceRequestID *uint      `gorm:"index" json:"serviceRequestId,omitempty"`
	CareRequestID    *uint      `gorm:"index" json:"careRequestId,omitempty"`
	CareBookingID    *uint      `gorm:"index" json:"careBookingId,omitempty"`
	OrderID          *uint      `gorm:"index" json:"orderId,omitempty"`
	Plan             string     `gorm:"type:varchar(20)" json:"plan,omitempty"`
	BillingCycle     string     `gorm:"type:varchar(20)" json:"billingCycle,omitempty"`

	AmountPaisa          int64          `gorm:"not null" json:"amountPaisa"`
	Currency             string         `gorm:"type:varchar(3);not null;default:NPR" json:"currency"`
	Gateway              Gateway        `gorm:"type:varchar(20);not null" json:"gateway"`
	PurchaseOrderID      string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"purchaseOrderId"`
	GatewayTransactionID *string        `gorm:"type:varchar(128);uniqueIndex" json:"gatewayTransactionId,omitempty"`
	Status               Status         `gorm:"type:varchar(20);not null;default:initiated;index" json:"status"`
	FailureReason        string         `gorm:"type:varchar(255)" json:"failureReason,omitempty"`
	RawGatewayPayload    datatypes.JSON `json:"rawGatewayPayload,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

var ErrTargetMismatch = errors.New("payment must reference exactly one target matching its target type")

// Validate checks that exactly the reference for TargetType is set.
func (p *Payment) Validate() error {
	refs := 0
	for _, id := range []*uint{p.ServiceRequestID, p.CareRequestID, p.CareBookingID, p.OrderID} {
		if id != nil {
			refs++
		}
	}
	var ok bool
	switch p.TargetType {
	case TargetService:
		ok = refs == 1 && p.ServiceRequestID != nil
	case TargetCare:
		ok = refs == 1 && p.CareRequestID != nil
	case TargetCareBooking:
		ok = refs == 1 && p.CareBookingID != nil
	case TargetOrder:
		ok = refs == 1 && p.OrderID != nil
	case TargetSubscription:
		ok = refs == 0 && p.Plan != "" && p.BillingCycle != ""
	}
	if !ok {
		return ErrTargetMismatch
	}
	if p.AmountPaisa <= 0 {
		return errors.New("payment amount must be positive")
	}
	return nil
}

func (p *Payment) IsCompleted() bool {
	return p.Status == StatusCompleted
}

func (p *Payment) TransactionRef() string {
	if p.GatewayTransactionID == nil {
		return ""
	}
	return *p.GatewayTransactionID
}

// ToPaisa converts an NPR amount to paisa.
func ToPaisa(npr float64) int64 {
	return int64(math.Round(npr * 100))
}

// ToNPR converts paisa to NPR.
func ToNPR(paisa int64) float64 {
	return float64(paisa) / 100
}
