package location

import "time"

// UpdateRequest is the body of POST /location/update.
type UpdateRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Position is one staff member's last reported location.
type Position struct {
	StaffID     uint        `json:"staffId"`
	Name        string      `json:"name,omitempty"`
	Role        string      `json:"role"`
	Coordinates Coordinates `json:"coordinates"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Live is the answer to GET /service-requests/:id/live.
// Visible is false when the caller may not see the assignee's position; no coordinates are sent then.
type Live struct {
	RequestID uint      `json:"requestId"`
	Available bool      `json:"available"`
	Visible   bool      `json:"visible"`
	IsLive    bool      `json:"isLive"`
	Staff     *Position `json:"staff,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// MovedPayload is broadcast as staff_moved.
type MovedPayload struct {
	StaffID   uint      `json:"staffId"`
	Role      string    `json:"role"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	RequestID uint      `json:"requestId,omitempty"`
	OrderID   uint      `json:"orderId,omitempty"`
	At        time.Time `json:"at"`
}
