package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("missing field"), http.StatusBadRequest},
		{NotFound("no pet"), http.StatusNotFound},
		{Forbidden("not yours"), http.StatusForbidden},
		{Conflict("duplicate"), http.StatusBadRequest},
		{Conflict("paid").WithStatus(http.StatusConflict), http.StatusConflict},
		{Auth("expired"), http.StatusUnauthorized},
		{Upstream(errors.New("bad json"), "gateway"), http.StatusBadGateway},
		{Upstream(context.DeadlineExceeded, "gateway"), http.StatusServiceUnavailable},
		{Upstream(ErrNotConfigured, "gateway"), http.StatusServiceUnavailable},
		{Internal(errors.New("boom"), "db"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.HTTPStatus(), tc.err.Error())
	}
}

func TestIs_MatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", Conflict("Payment required").WithCode("payment_required"))

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.NotErrorIs(t, err, ErrScheduleClash)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "load payment")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load payment: connection refused", err.Error())
}

func TestMsgfKeepsSentinelIdentity(t *testing.T) {
	err := ErrDuplicate.Msgf("pet %d already booked", 3)

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "pet 3 already booked", err.Error())
	assert.Empty(t, ErrDuplicate.Message)
}

func TestForbiddenKeepsLiteralMessage(t *testing.T) {
	msg := "Only 100% verified vets may start this"
	err := Forbidden("%s", msg)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, msg, err.Error())
}
