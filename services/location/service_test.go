package location_test

import (
	"context"
	"testing"
	"time"

	"pawsewa/apperrors"
	"pawsewa/database/dbtest"
	locationModel "pawsewa/models/location"
	"pawsewa/models/order"
	"pawsewa/models/service_request"
	"pawsewa/models/user"
	"pawsewa/services/events"
	"pawsewa/services/events/eventstest"
	locationService "pawsewa/services/location"
	"pawsewa/services/policy"
	locationTypes "pawsewa/types/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	rec   *eventstest.Recorder
	svc   *locationService.LocationService
	owner policy.Actor
	other policy.Actor
	admin policy.Actor
	vet   policy.Actor
	rider policy.Actor
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	mk := func(email string, role user.Role) policy.Actor {
		u := user.User{Name: email, Email: email, PasswordHash: "x", Role: role}
		require.NoError(t, db.Create(&u).Error)
		return policy.NewActor(u.ID, u.Role, u.Name)
	}
	rec := &eventstest.Recorder{}
	f := &fixture{
		db:    db,
		rec:   rec,
		svc:   locationService.NewLocationService(db, rec, time.Minute),
		owner: mk("owner@pawsewa.test", user.RolePetOwner),
		other: mk("other@pawsewa.test", user.RolePetOwner),
		admin: mk("admin@pawsewa.test", user.RoleAdmin),
		vet:   mk("vet@pawsewa.test", user.RoleVeterinarian),
		rider: mk("rider@pawsewa.test", user.RoleRider),
		now:   time.Date(2025, 5, 20, 6, 0, 0, 0, time.UTC),
	}
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) request(t *testing.T, staff *policy.Actor, status service_request.Status) service_request.ServiceRequest {
	t.Helper()
	req := service_request.ServiceRequest{
		UserID:          f.owner.ID,
		PetID:           1,
		ServiceType:     service_request.ServiceTypeAppointment,
		PreferredDate:   f.now,
		TimeWindow:      service_request.TimeWindowMorning,
		LocationAddress: "Baneshwor",
		LocationLat:     27.69,
		LocationLng:     85.34,
		Status:          status,
		PaymentMethod:   service_request.PaymentMethodCashOnDelivery,
		PaymentStatus:   "unpaid",
	}
	if staff != nil {
		req.AssignedStaffID = &staff.ID
	}
	require.NoError(t, f.db.Create(&req).Error)
	return req
}

func at(lat, lng float64) locationTypes.UpdateRequest {
	return locationTypes.UpdateRequest{Lat: &lat, Lng: &lng}
}

func TestUpdateRejectsPetOwners(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), f.owner, at(27.7, 85.3))
	require.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, "Only staff accounts can update live location", err.Error())

	var n int64
	require.NoError(t, f.db.Model(&locationModel.StaffLocation{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestUpdateValidatesCoordinates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.vet, locationTypes.UpdateRequest{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Update(ctx, f.vet, at(127.7, 85.3))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateStoresSampleAndLivePosition(t *testing.T) {
	f := newFixture(t)

	pos, err := f.svc.Update(context.Background(), f.vet, at(27.71, 85.32))
	require.NoError(t, err)
	assert.Equal(t, f.vet.ID, pos.StaffID)
	assert.Equal(t, "veterinarian", pos.Role)
	assert.Equal(t, 27.71, pos.Coordinates.Lat)

	var u user.User
	require.NoError(t, f.db.First(&u, f.vet.ID).Error)
	require.NotNil(t, u.LiveLat)
	assert.Equal(t, 85.32, *u.LiveLng)
	assert.True(t, f.now.Equal(*u.LiveUpdatedAt))

	// veterinarians never broadcast
	assert.Empty(t, f.rec.Topics(events.StaffMoved))
}

func TestRiderMoveBroadcastsToActiveRooms(t *testing.T) {
	f := newFixture(t)
	active := f.request(t, &f.rider, service_request.StatusInProgress)
	f.request(t, &f.rider, service_request.StatusCompleted)
	o := order.Order{UserID: f.other.ID, RiderID: &f.rider.ID, TotalAmountPaisa: 50000, Status: order.StatusProcessing, PaymentStatus: "paid"}
	require.NoError(t, f.db.Create(&o).Error)
	delivered := order.Order{UserID: f.owner.ID, RiderID: &f.rider.ID, TotalAmountPaisa: 50000, Status: order.StatusDelivered, PaymentStatus: "paid"}
	require.NoError(t, f.db.Create(&delivered).Error)

	_, err := f.svc.Update(context.Background(), f.rider, at(27.7, 85.3))
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{events.RequestTopic(active.ID), events.UserTopic(f.other.ID)},
		f.rec.Topics(events.StaffMoved))
}

func TestLiveHidesVeterinarianFromOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, &f.vet, service_request.StatusAssigned)
	_, err := f.svc.Update(ctx, f.vet, at(27.7, 85.3))
	require.NoError(t, err)

	live, err := f.svc.Live(ctx, f.owner, req.ID)
	require.NoError(t, err)
	assert.True(t, live.Available)
	assert.False(t, live.Visible)
	assert.Nil(t, live.Staff)

	live, err = f.svc.Live(ctx, f.admin, req.ID)
	require.NoError(t, err)
	assert.True(t, live.Visible)
	assert.True(t, live.IsLive)
	require.NotNil(t, live.Staff)
	assert.Equal(t, 27.7, live.Staff.Coordinates.Lat)

	live, err = f.svc.Live(ctx, f.vet, req.ID)
	require.NoError(t, err)
	assert.True(t, live.Visible)
}

func TestLiveShowsRiderToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.request(t, &f.rider, service_request.StatusInProgress)
	_, err := f.svc.Update(ctx, f.rider, at(27.68, 85.31))
	require.NoError(t, err)

	live, err := f.svc.Live(ctx, f.owner, req.ID)
	require.NoError(t, err)
	assert.True(t, live.Visible)
	assert.True(t, live.IsLive)
	require.NotNil(t, live.Staff)
	assert.Equal(t, 85.31, live.Staff.Coordinates.Lng)

	f.now = f.now.Add(2 * time.Minute)
	live, err = f.svc.Live(ctx, f.owner, req.ID)
	require.NoError(t, err)
	assert.True(t, live.Visible)
	assert.False(t, live.IsLive)

	_, err = f.svc.Live(ctx, f.other, req.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestLiveWithoutAssignee(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, nil, service_request.StatusPending)

	live, err := f.svc.Live(context.Background(), f.owner, req.ID)
	require.NoError(t, err)
	assert.False(t, live.Available)
	assert.False(t, live.Visible)

	_, err = f.svc.Live(context.Background(), f.owner, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListLiveAndPurge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.vet, at(27.7, 85.3))
	require.NoError(t, err)
	f.now = f.now.Add(90 * time.Second)
	_, err = f.svc.Update(ctx, f.rider, at(27.6, 85.4))
	require.NoError(t, err)

	all, err := f.svc.ListLive(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, f.rider.ID, all[0].StaffID)

	vets, err := f.svc.ListLive(ctx, string(user.RoleVeterinarian))
	require.NoError(t, err)
	assert.Empty(t, vets)

	n, err := f.svc.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []locationModel.StaffLocation
	require.NoError(t, f.db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, f.rider.ID, left[0].StaffID)
}
