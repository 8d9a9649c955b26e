package service_request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	legal := map[Status][]Status{
		StatusPending:    {StatusAssigned, StatusCancelled},
		StatusAssigned:   {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted, StatusCancelled},
	}

	for _, from := range GetAllStatuses() {
		for _, to := range GetAllStatuses() {
			want := false
			for _, l := range legal[from] {
				if l == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_TerminalStatesAreClosed(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		assert.True(t, s.IsTerminal())
		assert.False(t, s.CanBeAssigned())
		for _, to := range GetAllStatuses() {
			assert.False(t, s.CanTransitionTo(to))
		}
	}
	assert.False(t, StatusInProgress.CanBeAssigned())
}

func TestServiceRequest_CheckInvariants(t *testing.T) {
	staff := uint(7)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, (&ServiceRequest{Status: StatusPending}).CheckInvariants())
	assert.NoError(t, (&ServiceRequest{Status: StatusAssigned, AssignedStaffID: &staff, ScheduledTime: &at}).CheckInvariants())
	assert.NoError(t, (&ServiceRequest{Status: StatusCancelled}).CheckInvariants())

	assert.Error(t, (&ServiceRequest{Status: StatusAssigned}).CheckInvariants())
	assert.Error(t, (&ServiceRequest{Status: StatusCancelled, AssignedStaffID: &staff}).CheckInvariants())
	assert.Error(t, (&ServiceRequest{Status: StatusInProgress, AssignedStaffID: &staff}).CheckInvariants())
}

func TestServiceRequest_IsPaymentSatisfied(t *testing.T) {
	r := &ServiceRequest{PaymentMethod: PaymentMethodOnline, PaymentStatus: "unpaid"}
	assert.False(t, r.IsPaymentSatisfied())

	r.PaymentStatus = "paid"
	assert.True(t, r.IsPaymentSatisfied())

	r = &ServiceRequest{PaymentMethod: PaymentMethodCashOnDelivery, PaymentStatus: "unpaid"}
	assert.True(t, r.IsPaymentSatisfied())
}
