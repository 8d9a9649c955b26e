package constants

import "pawsewa/models/user"

// Capabilities
const (
	// Service requests
	CapRequestCreate    = "service-request.create"
	CapRequestViewAll   = "service-request.view-all"
	CapRequestAssign    = "service-request.assign"
	CapRequestWork      = "service-request.work"
	CapRequestCancelAny = "service-request.cancel-any"
	CapRequestStats     = "service-request.stats"

	// Staff presence
	CapLocationUpdate  = "location.update"
	CapLocationViewAll = "location.view-all"

	// Providers and admin
	CapSubscriptionManage  = "subscription.manage"
	CapStaffManage         = "user.staff-manage"
	CapPetViewAny          = "pet.view-any"
	CapPrescriptionCapture = "prescription.capture"

	// Special capabilities
	CapAny = "any"
)

var staffBase = []string{CapLocationUpdate, CapLocationViewAll}

var providerBase = append([]string{CapSubscriptionManage}, staffBase...)

// RoleCapabilities is the static grant table. Admin holds every capability.
var RoleCapabilities = map[user.Role][]string{
	user.RolePetOwner: {CapRequestCreate},
	user.RoleVeterinarian: append([]string{
		CapRequestWork,
		CapPrescriptionCapture,
	}, staffBase...),
	user.RoleRider:           staffBase,
	user.RoleCareService:     providerBase,
	user.RoleShopOwner:       providerBase,
	user.RoleHostelOwner:     providerBase,
	user.RoleServiceProvider: providerBase,
	user.RoleAdmin: {
		CapRequestCreate,
		CapRequestViewAll,
		CapRequestAssign,
		CapRequestCancelAny,
		CapRequestStats,
		CapLocationViewAll,
		CapStaffManage,
		CapPetViewAny,
	},
}
