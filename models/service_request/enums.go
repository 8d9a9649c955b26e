package service_request

type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// transitions is the legal state graph. Terminal states have no entry.
var transitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// CanBeAssigned allows a first assignment and re-assignment before the visit starts.
func (s Status) CanBeAssigned() bool {
	return s == StatusPending || s == StatusAssigned
}

// RequiresStaff lists the states in which an assignee must be present.
func (s Status) RequiresStaff() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusCompleted
}

// IsActiveAssignment marks states that occupy the assignee's schedule.
func (s Status) IsActiveAssignment() bool {
	return s == StatusAssigned || s == StatusInProgress
}

func GetAllStatuses() []Status {
	return []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled}
}

type ServiceType string

const (
	ServiceTypeAppointment   ServiceType = "Appointment"
	ServiceTypeHealthCheckup ServiceType = "Health Checkup"
	ServiceTypeVaccination   ServiceType = "Vaccination"
)

func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeAppointment, ServiceTypeHealthCheckup, ServiceTypeVaccination:
		return true
	default:
		return false
	}
}

func GetAllServiceTypes() []ServiceType {
	return []ServiceType{ServiceTypeAppointment, ServiceTypeHealthCheckup, ServiceTypeVaccination}
}

type TimeWindow string

const (
	TimeWindowMorning   TimeWindow = "Morning (9am-12pm)"
	TimeWindowAfternoon TimeWindow = "Afternoon (12pm-4pm)"
	TimeWindowEvening   TimeWindow = "Evening (4pm-8pm)"
)

func (w TimeWindow) IsValid() bool {
	switch w {
	case TimeWindowMorning, TimeWindowAfternoon, TimeWindowEvening:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodOnline         PaymentMethod = "online"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodOnline || m == PaymentMethodCashOnDelivery
}
