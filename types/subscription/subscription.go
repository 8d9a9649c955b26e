package subscription

import (
	"pawsewa/config"
	"pawsewa/models/subscription"
)

type InitiateRequest struct {
	Plan         string `json:"plan" validate:"required"`
	BillingCycle string `json:"billingCycle" validate:"required"`
	Gateway      string `json:"gateway" validate:"omitempty,oneof=khalti esewa"`
}

// Mine is the body of GET /subscriptions/my.
type Mine struct {
	Subscription *subscription.Subscription `json:"subscription"`
	IsActive     bool                       `json:"isActive"`
	PlanConfig   *config.Plan               `json:"planConfig"`
	CanList      bool                       `json:"canList"`
}
