package service_request

type Coordinates struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type Location struct {
	Address     string       `json:"address" validate:"required,max=500"`
	Coordinates *Coordinates `json:"coordinates" validate:"required"`
}

// CreateRequest is the body of POST /service-requests.
type CreateRequest struct {
	PetID         uint      `json:"petId" validate:"required"`
	ServiceType   string    `json:"serviceType" validate:"required"`
	PreferredDate string    `json:"preferredDate" validate:"required"`
	TimeWindow    string    `json:"timeWindow" validate:"required"`
	Location      *Location `json:"location" validate:"required"`
	Notes         string    `json:"notes" validate:"max=1000"`
	PaymentMethod string    `json:"paymentMethod" validate:"omitempty,oneof=online cash_on_delivery"`
}

type AssignRequest struct {
	StaffID       uint   `json:"staffId" validate:"required"`
	ScheduledTime string `json:"scheduledTime" validate:"required"`
	AdminNotes    string `json:"adminNotes" validate:"max=1000"`
}

type CompleteRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// ListFilter holds the admin list query. Date is YYYY-MM-DD.
type ListFilter struct {
	Status      string `query:"status"`
	ServiceType string `query:"serviceType"`
	Date        string `query:"date"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"byStatus"`
	ByServiceType map[string]int64 `json:"byServiceType"`
}
