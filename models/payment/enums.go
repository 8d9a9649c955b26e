package payment

type TargetType string

const (
	TargetService      TargetType = "service"
	TargetCare         TargetType = "care"
	TargetCareBooking  TargetType = "care_booking"
	TargetOrder        TargetType = "order"
	TargetSubscription TargetType = "subscription"
)

func (t TargetType) IsValid() bool {
	switch t {
	case TargetService, TargetCare, TargetCareBooking, TargetOrder, TargetSubscription:
		return true
	default:
		return false
	}
}

// Status is the lifecycle of one payment attempt.
type Status string

const (
	StatusInitiated Status = "initiated"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) String() string {
	return string(s)
}

// PaidStatus is the payment state carried by the record being paid for.
type PaidStatus string

const (
	PaidStatusUnpaid  PaidStatus = "unpaid"
	PaidStatusPending PaidStatus = "pending"
	PaidStatusPaid    PaidStatus = "paid"
	PaidStatusFailed  PaidStatus = "failed"
)

func (s PaidStatus) IsPaid() bool {
	return s == PaidStatusPaid
}

type Gateway string

const (
	GatewayKhalti Gateway = "khalti"
	GatewayEsewa  Gateway = "esewa"
)

func (g Gateway) IsValid() bool {
	return g == GatewayKhalti || g == GatewayEsewa
}
