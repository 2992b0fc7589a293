package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/models"
)

type permissionFixture struct {
	permissions *fakePermissionRepo
	students    *fakeStudentRepo
	apartments  *fakeApartmentRepo
	notes       *fakeNotificationRepo
	announcer   *fakeAnnouncer
	service     PermissionService
}

func newPermissionFixture(t *testing.T) *permissionFixture {
	t.Helper()

	fixture := &permissionFixture{
		permissions: newFakePermissionRepo(),
		students: newFakeStudentRepo(
			models.Student{ID: 7, FullName: "Aliyev Vali", GroupCode: "101"},
			models.Student{ID: 8, FullName: "Karimova Dilnoza", GroupCode: "101"},
			models.Student{ID: 9, FullName: "Tashkentov Olim", GroupCode: "202"},
			models.Student{ID: 10, FullName: "Yusupova Nargiza", GroupCode: "303"},
		),
		apartments: newFakeApartmentRepo(),
		notes:      &fakeNotificationRepo{},
		announcer:  &fakeAnnouncer{},
	}

	tutors := newFakeTutorRepo(models.Tutor{
		ID: 3,
		Groups: []models.GroupRef{
			{Code: "101", Name: "MT-21"},
			{Code: "202", Name: "FZ-22"},
		},
	})

	fixture.service = NewPermissionService(
		fixture.permissions,
		fixture.students,
		fixture.apartments,
		fixture.notes,
		tutors,
		fixture.announcer,
		testLogger(),
	)

	return fixture
}

func TestStartRoundCoversAllTutorGroups(t *testing.T) {
	fixture := newPermissionFixture(t)

	resp, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, uint(3), resp.TutorID)
	require.Equal(t, string(models.PermissionProcess), resp.Status)

	require.Len(t, fixture.permissions.started, 1)
	require.ElementsMatch(t, []uint{7, 8, 9}, fixture.permissions.started[0].StudentIDs)
	require.Equal(t, 3, fixture.announcer.count())
}

func TestStartRoundFinishesPreviousRound(t *testing.T) {
	fixture := newPermissionFixture(t)

	first, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)
	second, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	var open int
	for _, permission := range fixture.permissions.permissions {
		if permission.TutorID == 3 && permission.IsOpen() {
			open++
			require.Equal(t, second.ID, permission.ID)
		}
	}
	require.Equal(t, 1, open)
}

func TestMyRoundsCountsSubmissions(t *testing.T) {
	fixture := newPermissionFixture(t)

	_, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)

	permissionID := fixture.permissions.started[0].Permission.ID
	fixture.apartments.apartments[1] = models.Apartment{ID: 1, StudentID: 7, PermissionID: permissionID, Current: true}
	fixture.apartments.apartments[2] = models.Apartment{ID: 2, StudentID: 8, PermissionID: permissionID, Current: true}

	rounds, err := fixture.service.MyRounds(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	require.Equal(t, int64(2), rounds[0].Submitted)
}

func TestRoundGroupsSummarisesVerdicts(t *testing.T) {
	fixture := newPermissionFixture(t)

	_, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)

	permissionID := fixture.permissions.started[0].Permission.ID
	fixture.apartments.apartments[1] = models.Apartment{
		ID: 1, StudentID: 7, PermissionID: permissionID, GroupCode: "101",
		Status: models.ComplianceGreen, Current: true,
	}
	fixture.apartments.apartments[2] = models.Apartment{
		ID: 2, StudentID: 8, PermissionID: permissionID, GroupCode: "101",
		Status: models.ComplianceBeingChecked, Current: true,
	}

	summaries, err := fixture.service.RoundGroups(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	first := summaries[0]
	require.Equal(t, "101", first.GroupCode)
	require.Equal(t, int64(2), first.Students)
	require.Equal(t, int64(2), first.Submitted)
	require.Equal(t, int64(1), first.Green)
	require.Equal(t, int64(1), first.BeingChecked)

	second := summaries[1]
	require.Equal(t, "202", second.GroupCode)
	require.Equal(t, int64(1), second.Students)
	require.Equal(t, int64(0), second.Submitted)
}

func TestRequestResubmissionReplacesFeedAndRetiresSubmission(t *testing.T) {
	fixture := newPermissionFixture(t)

	_, err := fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)
	permissionID := fixture.permissions.started[0].Permission.ID

	fixture.apartments.apartments[1] = models.Apartment{
		ID: 1, StudentID: 7, PermissionID: permissionID, GroupCode: "101",
		Type: models.ApartmentRelative, Status: models.ComplianceGreen, Current: true,
	}
	require.NoError(t, fixture.notes.Create(context.Background(), &models.Notification{
		StudentID: 7,
		Color:     models.NotificationGreen,
	}))

	require.NoError(t, fixture.service.RequestResubmission(context.Background(), 3, 7))

	retired := fixture.apartments.apartments[1]
	require.False(t, retired.Current)
	require.True(t, retired.NeedNew)

	// Red, yellow and blue entries are cleared before the new red request;
	// an accepted green stays next to it.
	colors := fixture.notes.colorsFor(7)
	require.ElementsMatch(t, []models.NotificationColor{models.NotificationGreen, models.NotificationRed}, colors)

	notes, err := fixture.notes.ListByStudent(context.Background(), 7, models.NotificationReport, 50, 0)
	require.NoError(t, err)
	for _, note := range notes {
		if note.Color != models.NotificationRed {
			continue
		}
		require.NotNil(t, note.PermissionID)
		require.Equal(t, permissionID, *note.PermissionID)
		require.NotNil(t, note.ApartmentID)
		require.Equal(t, uint(1), *note.ApartmentID)
		require.True(t, note.NeedData)
	}
}

func TestRequestResubmissionWithoutRound(t *testing.T) {
	fixture := newPermissionFixture(t)

	err := fixture.service.RequestResubmission(context.Background(), 3, 7)
	require.ErrorIs(t, err, ErrRoundNotFound)
}

func TestRequestResubmissionForeignGroup(t *testing.T) {
	fixture := newPermissionFixture(t)

	err := fixture.service.RequestResubmission(context.Background(), 3, 10)
	require.ErrorIs(t, err, ErrGroupNotAssigned)
}

func TestActiveRoundForStudent(t *testing.T) {
	fixture := newPermissionFixture(t)

	_, err := fixture.service.ActiveRoundForStudent(context.Background(), 7)
	require.ErrorIs(t, err, ErrRoundNotFound)

	_, err = fixture.service.StartRound(context.Background(), 3)
	require.NoError(t, err)

	resp, err := fixture.service.ActiveRoundForStudent(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, uint(3), resp.TutorID)
	require.Equal(t, string(models.PermissionProcess), resp.Status)

	// The tutor does not oversee this student's group, so no round applies.
	_, err = fixture.service.ActiveRoundForStudent(context.Background(), 10)
	require.ErrorIs(t, err, ErrRoundNotFound)
}
