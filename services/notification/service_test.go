package notification_test

import (
	"context"
	"testing"

	"pawsewa/apperrors"
	"pawsewa/database/dbtest"
	"pawsewa/models/notification"
	"pawsewa/models/user"
	"pawsewa/services/events"
	"pawsewa/services/events/eventstest"
	notificationService "pawsewa/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAssignmentWritesTwoRowsAndPushes(t *testing.T) {
	db := dbtest.Open(t)
	owner := user.User{Name: "Owner", Email: "o@x.test", PasswordHash: "x", Role: user.RolePetOwner}
	vet := user.User{Name: "Vet", Email: "v@x.test", PasswordHash: "x", Role: user.RoleVeterinarian}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&vet).Error)

	rec := &eventstest.Recorder{}
	svc := notificationService.NewNotificationService(db, rec)

	err := svc.NotifyAssignment(context.Background(), notificationService.AssignmentNotice{
		OwnerID: owner.ID, StaffID: vet.ID, ServiceRequestID: 9,
		PetName: "Tommy", ServiceType: "Vaccination", StaffName: "Vet", ScheduledLabel: "2025-06-01 10:00",
	})
	require.NoError(t, err)

	var rows []notification.Notification
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, owner.ID, rows[0].UserID)
	assert.Contains(t, rows[0].Message, "assigned to Vet")
	assert.Equal(t, vet.ID, rows[1].UserID)
	assert.Equal(t, uint(9), *rows[1].ServiceRequestID)

	assert.ElementsMatch(t,
		[]string{events.UserTopic(owner.ID), events.UserTopic(vet.ID)},
		rec.Topics(events.NotificationNew))
}

func TestListAndMarkRead(t *testing.T) {
	db := dbtest.Open(t)
	svc := notificationService.NewNotificationService(db, nil)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx,
		notification.Notification{UserID: 1, Title: "a", Message: "a", Type: notification.TypeSystem},
		notification.Notification{UserID: 1, Title: "b", Message: "b", Type: notification.TypeSystem},
		notification.Notification{UserID: 2, Title: "c", Message: "c", Type: notification.TypeSystem},
	))

	items, err := svc.ListForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)

	read, err := svc.MarkRead(ctx, 1, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, items[0].ID, read.ID)

	items, err = svc.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.False(t, items[0].IsRead)
	assert.True(t, items[1].IsRead)

	_, err = svc.MarkRead(ctx, 2, items[0].ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
