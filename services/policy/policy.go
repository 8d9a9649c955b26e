// Package policy answers every "may this actor do that" question in one place.
package policy

import (
	"pawsewa/constants"
	"pawsewa/models/service_request"
	"pawsewa/models/user"
)

// Actor is the authenticated caller, resolved once per request.
type Actor struct {
	ID   uint
	Role user.Role
	Name string

	caps map[string]bool
}

func NewActor(id uint, role user.Role, name string) Actor {
	caps := make(map[string]bool)
	for _, c := range constants.RoleCapabilities[role] {
		caps[c] = true
	}
	return Actor{ID: id, Role: role, Name: name, caps: caps}
}

// Has reports whether the actor holds capability. CapAny matches every authenticated actor.
func (a Actor) Has(capability string) bool {
	if capability == constants.CapAny {
		return a.ID != 0
	}
	return a.caps[capability]
}

// HasAny reports whether at least one capability is held.
func (a Actor) HasAny(capabilities ...string) bool {
	for _, c := range capabilities {
		if a.Has(c) {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

func (a Actor) CanAssign() bool {
	return a.Has(constants.CapRequestAssign)
}

// CanTransition decides whether the actor may move req to the given status.
// It does not check the state graph.
func (a Actor) CanTransition(req *service_request.ServiceRequest, to service_request.Status) bool {
	switch to {
	case service_request.StatusInProgress, service_request.StatusCompleted:
		return a.Has(constants.CapRequestWork) && req.IsAssignee(a.ID)
	case service_request.StatusCancelled:
		return req.UserID == a.ID || a.Has(constants.CapRequestCancelAny)
	case service_request.StatusAssigned:
		return a.CanAssign()
	default:
		return false
	}
}

func (a Actor) CanViewRequest(req *service_request.ServiceRequest) bool {
	return req.UserID == a.ID || req.IsAssignee(a.ID) || a.Has(constants.CapRequestViewAll)
}

// CanSeeStaffLocation applies the live-location privacy rule for one request.
// Admins and staff see every position. Owners see riders but never veterinarians.
func (a Actor) CanSeeStaffLocation(req *service_request.ServiceRequest, staffRole user.Role) bool {
	if a.Has(constants.CapLocationViewAll) {
		return true
	}
	if req.UserID != a.ID {
		return false
	}
	return staffRole == user.RoleRider
}

func (a Actor) CanUpdateLocation() bool {
	return a.Has(constants.CapLocationUpdate)
}

func (a Actor) CanCapturePrescription() bool {
	return a.Has(constants.CapPrescriptionCapture)
}

func (a Actor) CanViewAnyPet() bool {
	return a.Has(constants.CapPetViewAny)
}

func (a Actor) CanManageStaff() bool {
	return a.Has(constants.CapStaffManage)
}

func (a Actor) CanSubscribe() bool {
	return a.Has(constants.CapSubscriptionManage)
}
