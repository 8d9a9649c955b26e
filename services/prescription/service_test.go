package prescription_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"pawsewa/apperrors"
	"pawsewa/database/dbtest"
	"pawsewa/models/pet"
	prescriptionModel "pawsewa/models/prescription"
	"pawsewa/models/service_request"
	"pawsewa/models/user"
	prescriptionService "pawsewa/services/prescription"
	"pawsewa/services/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeParser struct {
	parsed *prescriptionService.Parsed
	err    error
	wait   bool
	calls  int
}

func (f *fakeParser) Parse(ctx context.Context, _ []byte, _ string) (*prescriptionService.Parsed, error) {
	f.calls++
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.parsed, f.err
}

type fixture struct {
	db     *gorm.DB
	parser *fakeParser
	svc    *prescriptionService.PrescriptionService
	owner  policy.Actor
	vet    policy.Actor
	vet2   policy.Actor
	req    service_request.ServiceRequest
}

func newFixture(t *testing.T, status service_request.Status) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	mk := func(email string, role user.Role) policy.Actor {
		u := user.User{Name: email, Email: email, PasswordHash: "x", Role: role}
		require.NoError(t, db.Create(&u).Error)
		return policy.NewActor(u.ID, u.Role, u.Name)
	}
	owner := mk("owner@pawsewa.test", user.RolePetOwner)
	vet := mk("vet@pawsewa.test", user.RoleVeterinarian)
	vet2 := mk("vet2@pawsewa.test", user.RoleVeterinarian)

	p := pet.Pet{OwnerID: owner.ID, Name: "Tommy", Species: pet.SpeciesDog}
	require.NoError(t, db.Create(&p).Error)

	at := time.Date(2025, 5, 20, 4, 15, 0, 0, time.UTC)
	req := service_request.ServiceRequest{
		UserID:          owner.ID,
		PetID:           p.ID,
		ServiceType:     service_request.ServiceTypeHealthCheckup,
		PreferredDate:   at,
		TimeWindow:      service_request.TimeWindowMorning,
		LocationAddress: "Lalitpur",
		LocationLat:     27.67,
		LocationLng:     85.32,
		Status:          status,
		PaymentMethod:   service_request.PaymentMethodCashOnDelivery,
		PaymentStatus:   "unpaid",
		AssignedStaffID: &vet.ID,
		ScheduledTime:   &at,
	}
	require.NoError(t, db.Create(&req).Error)

	parser := &fakeParser{parsed: &prescriptionService.Parsed{
		Medications: []prescriptionModel.Medication{
			{Name: " Amoxicillin ", Dosage: "250mg", Frequency: "twice daily", Duration: "7 days"},
			{Name: "  "},
		},
		Instructions: " Give after food ",
		RawText:      "Amoxicillin 250mg BD x 7d",
	}}
	return &fixture{
		db:     db,
		parser: parser,
		svc:    prescriptionService.NewPrescriptionService(db, parser, time.Second),
		owner:  owner,
		vet:    vet,
		vet2:   vet2,
		req:    req,
	}
}

func photo() prescriptionService.Upload {
	return prescriptionService.Upload{Data: []byte("\x89PNG fake"), MimeType: "image/png", FileName: "rx.png"}
}

func TestCaptureStoresAndLinks(t *testing.T) {
	f := newFixture(t, service_request.StatusInProgress)

	p, err := f.svc.Capture(context.Background(), f.vet, f.req.ID, photo())
	require.NoError(t, err)
	assert.Equal(t, f.req.PetID, p.PetID)
	assert.Equal(t, f.vet.ID, p.CreatedBy)
	assert.Equal(t, "Give after food", p.Instructions)
	require.Len(t, p.Medications, 1)
	assert.Equal(t, "Amoxicillin", p.Medications[0].Name)

	var req service_request.ServiceRequest
	require.NoError(t, f.db.First(&req, f.req.ID).Error)
	require.NotNil(t, req.PrescriptionID)
	assert.Equal(t, p.ID, *req.PrescriptionID)

	var stored prescriptionModel.Prescription
	require.NoError(t, f.db.First(&stored, p.ID).Error)
	require.Len(t, stored.Medications, 1)
	assert.Equal(t, "twice daily", stored.Medications[0].Frequency)

	list, err := f.svc.ListForRequest(context.Background(), f.owner, f.req.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCaptureAllowedAfterCompletion(t *testing.T) {
	f := newFixture(t, service_request.StatusCompleted)

	_, err := f.svc.Capture(context.Background(), f.vet, f.req.ID, photo())
	assert.NoError(t, err)
}

func TestCaptureChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("assigned state", func(t *testing.T) {
		f := newFixture(t, service_request.StatusAssigned)
		_, err := f.svc.Capture(ctx, f.vet, f.req.ID, photo())
		assert.ErrorIs(t, err, apperrors.ErrIllegalState)
		assert.Zero(t, f.parser.calls)
	})

	t.Run("not the assignee", func(t *testing.T) {
		f := newFixture(t, service_request.StatusInProgress)
		_, err := f.svc.Capture(ctx, f.vet2, f.req.ID, photo())
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("owner", func(t *testing.T) {
		f := newFixture(t, service_request.StatusInProgress)
		_, err := f.svc.Capture(ctx, f.owner, f.req.ID, photo())
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("file type", func(t *testing.T) {
		f := newFixture(t, service_request.StatusInProgress)
		up := photo()
		up.MimeType = "application/pdf"
		_, err := f.svc.Capture(ctx, f.vet, f.req.ID, up)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("file size", func(t *testing.T) {
		f := newFixture(t, service_request.StatusInProgress)
		up := photo()
		up.Data = make([]byte, prescriptionService.MaxImageSize+1)
		_, err := f.svc.Capture(ctx, f.vet, f.req.ID, up)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing request", func(t *testing.T) {
		f := newFixture(t, service_request.StatusInProgress)
		_, err := f.svc.Capture(ctx, f.vet, 999, photo())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestCaptureParserFailures(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, service_request.StatusInProgress)
	f.parser.err = errors.New("quota exceeded")
	_, err := f.svc.Capture(ctx, f.vet, f.req.ID, photo())
	require.ErrorIs(t, err, apperrors.ErrUpstream)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus())

	f = newFixture(t, service_request.StatusInProgress)
	f.parser.wait = true
	f.svc.Timeout = 10 * time.Millisecond
	_, err = f.svc.Capture(ctx, f.vet, f.req.ID, photo())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus())

	var n int64
	require.NoError(t, f.db.Model(&prescriptionModel.Prescription{}).Count(&n).Error)
	assert.Zero(t, n)
}
