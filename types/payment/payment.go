package payment

import (
	"pawsewa/httpServices/esewa"
)

// InitiateRequest is the body of POST /payments/initiate. Amount is in NPR and
// is required for service and care targets, which carry no price of their own.
type InitiateRequest struct {
	Type     string  `json:"type" validate:"required,oneof=service care care_booking order"`
	TargetID uint    `json:"targetId" validate:"required"`
	Gateway  string  `json:"gateway" validate:"omitempty,oneof=khalti esewa"`
	Amount   float64 `json:"amount" validate:"omitempty,gt=0"`
}

// VerifyRequest accepts the Khalti pidx or any stored transaction reference.
type VerifyRequest struct {
	Pidx           string `json:"pidx"`
	TransactionRef string `json:"transactionRef"`
}

func (r VerifyRequest) Ref() string {
	if r.Pidx != "" {
		return r.Pidx
	}
	return r.TransactionRef
}

// Checkout tells the client how to pay: follow PaymentURL for Khalti, or post Form to FormURL for eSewa.
type Checkout struct {
	PaymentID       uint        `json:"paymentId"`
	PurchaseOrderID string      `json:"purchaseOrderId"`
	Gateway         string      `json:"gateway"`
	AmountPaisa     int64       `json:"amountPaisa"`
	Amount          float64     `json:"amount"`
	Pidx            string      `json:"pidx,omitempty"`
	PaymentURL      string      `json:"paymentUrl,omitempty"`
	FormURL         string      `json:"formUrl,omitempty"`
	Form            *esewa.Form `json:"form,omitempty"`
}

// VerifyResult is returned from verify and from gateway callbacks.
type VerifyResult struct {
	PaymentID        uint   `json:"paymentId"`
	TargetType       string `json:"targetType"`
	Status           string `json:"status"`
	GatewayStatus    string `json:"gatewayStatus,omitempty"`
	AlreadyCompleted bool   `json:"alreadyCompleted"`
	Message          string `json:"message"`
}

func (r *VerifyResult) Completed() bool {
	return r.Status == "completed"
}
