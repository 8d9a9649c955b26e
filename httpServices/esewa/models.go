package esewa

// Form is posted by the browser to the eSewa checkout page.
type Form struct {
	Amount                string `json:"amount"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
}

// Callback is the base64 JSON document eSewa appends to the success URL.
type Callback struct {
	TransactionCode  string `json:"transaction_code"`
	Status           string `json:"status"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"transaction_uuid"`
	ProductCode      string `json:"product_code"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// Transaction statuses reported by eSewa.
const (
	StatusComplete   = "COMPLETE"
	StatusPending    = "PENDING"
	StatusFullRefund = "FULL_REFUND"
	StatusNotFound   = "NOT_FOUND"
	StatusCanceled   = "CANCELED"
	StatusAmbiguous  = "AMBIGUOUS"
)

type StatusResponse struct {
	ProductCode     string      `json:"product_code"`
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     interface{} `json:"total_amount"`
	Status          string      `json:"status"`
	RefID           *string     `json:"ref_id"`
}
