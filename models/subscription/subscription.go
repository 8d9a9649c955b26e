package subscription

import (
	"time"
)

type Plan string

const (
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

func (p Plan) IsValid() bool {
	return p == PlanBasic || p == PlanPremium
}

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

func (b BillingCycle) IsValid() bool {
	return b == BillingMonthly || b == BillingYearly
}

// ValidUntil is one calendar month or year after from.
func (b BillingCycle) ValidUntil(from time.Time) time.Time {
	if b == BillingYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusActive         Status = "active"
	StatusExpired        Status = "expired"
	StatusCancelled      Status = "cancelled"
)

// Subscription is created when a subscription payment completes.
type Subscription struct {
	ID                   uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderID           uint         `gorm:"not null;index:idx_subscriptions_provider_status,priority:1" json:"providerId"`
	Plan                 Plan         `gorm:"type:varchar(20);not null;default:basic" json:"plan"`
	BillingCycle         BillingCycle `gorm:"type:varchar(20);not null;default:monthly" json:"billingCycle"`
	Status               Status       `gorm:"type:varchar(20);not null;default:pending_payment;index:idx_subscriptions_provider_status,priority:2" json:"status"`
	ValidFrom            *time.Time   `json:"validFrom,omitempty"`
	ValidUntil           *time.Time   `gorm:"index" json:"validUntil,omitempty"`
	AmountPaidPaisa      int64        `gorm:"default:0" json:"amountPaidPaisa"`
	GatewayTransactionID string       `gorm:"type:varchar(128)" json:"gatewayTransactionId,omitempty"`
	PaymentID            *uint        `gorm:"uniqueIndex" json:"paymentId,omitempty"`
	CreatedAt            time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsActiveAt reports whether the subscription grants listing rights at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == StatusActive && s.ValidUntil != nil && s.ValidUntil.After(t)
}
