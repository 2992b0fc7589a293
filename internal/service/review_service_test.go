package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
)

type reviewFixture struct {
	apartments *fakeApartmentRepo
	notes      *fakeNotificationRepo
	announcer  *fakeAnnouncer
	service    ReviewService
}

func newReviewFixture(t *testing.T) *reviewFixture {
	t.Helper()

	fixture := &reviewFixture{
		apartments: newFakeApartmentRepo(models.Apartment{
			ID:           21,
			StudentID:    7,
			PermissionID: 11,
			GroupCode:    "101",
			Type:         models.ApartmentTenant,
			Status:       models.ComplianceBeingChecked,
			Current:      true,
			Boiler:       models.FacilityProof{URL: "b", Status: models.ComplianceBeingChecked},
			GasStove:     models.FacilityProof{URL: "g", Status: models.ComplianceBeingChecked},
			Chimney:      models.FacilityProof{URL: "c", Status: models.ComplianceBeingChecked},
		}),
		notes:     &fakeNotificationRepo{},
		announcer: &fakeAnnouncer{},
	}

	tutors := newFakeTutorRepo(models.Tutor{
		ID:     3,
		Groups: []models.GroupRef{{Code: "101", Name: "MT-21"}},
	})

	fixture.service = NewReviewService(
		fixture.apartments,
		fixture.notes,
		tutors,
		fixture.announcer,
		testValidator(),
		testLogger(),
	)

	return fixture
}

func TestCheckDerivesWorstStatus(t *testing.T) {
	cases := []struct {
		name    string
		payload dto.CheckRequest
		want    models.ComplianceStatus
		color   models.NotificationColor
	}{
		{
			name:    "all green",
			payload: dto.CheckRequest{Boiler: "green", GasStove: "green", Chimney: "green"},
			want:    models.ComplianceGreen,
			color:   models.NotificationGreen,
		},
		{
			name:    "one yellow",
			payload: dto.CheckRequest{Boiler: "green", GasStove: "yellow", Chimney: "green"},
			want:    models.ComplianceYellow,
			color:   models.NotificationYellow,
		},
		{
			name:    "red outranks yellow",
			payload: dto.CheckRequest{Boiler: "yellow", GasStove: "red", Chimney: "green"},
			want:    models.ComplianceRed,
			color:   models.NotificationRed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newReviewFixture(t)

			resp, err := fixture.service.Check(context.Background(), 3, 21, tc.payload)
			require.NoError(t, err)
			require.Equal(t, string(tc.want), resp.Status)

			require.Len(t, fixture.apartments.checked, 1)
			verdict := fixture.apartments.checked[0]
			require.Equal(t, tc.color, verdict.Color)
			require.NotNil(t, verdict.ApartmentID)
			require.Equal(t, uint(21), *verdict.ApartmentID)
			require.NotNil(t, verdict.PermissionID)
			require.Equal(t, uint(11), *verdict.PermissionID)
			require.Equal(t, tc.color != models.NotificationGreen, verdict.NeedData)
			require.Equal(t, 1, fixture.announcer.count())
		})
	}
}

func TestCheckYellowFlagsSubmissionNeedNew(t *testing.T) {
	fixture := newReviewFixture(t)

	_, err := fixture.service.Check(context.Background(), 3, 21, dto.CheckRequest{
		Boiler: "green", GasStove: "yellow", Chimney: "green",
	})
	require.NoError(t, err)

	checked := fixture.apartments.apartments[21]
	require.True(t, checked.NeedNew)
	require.True(t, checked.Current)
}

func TestCheckBlockedByOutstandingYellow(t *testing.T) {
	fixture := newReviewFixture(t)
	apartmentID := uint(21)
	require.NoError(t, fixture.notes.Create(context.Background(), &models.Notification{
		StudentID:   7,
		ApartmentID: &apartmentID,
		Color:       models.NotificationYellow,
	}))

	_, err := fixture.service.Check(context.Background(), 3, 21, dto.CheckRequest{
		Boiler: "green", GasStove: "green", Chimney: "green",
	})
	require.ErrorIs(t, err, ErrResubmitOutstanding)
	require.Empty(t, fixture.apartments.checked)
}

func TestCheckNotBlockedByYellowOnOlderSubmission(t *testing.T) {
	fixture := newReviewFixture(t)
	olderID := uint(20)
	require.NoError(t, fixture.notes.Create(context.Background(), &models.Notification{
		StudentID:   7,
		ApartmentID: &olderID,
		Color:       models.NotificationYellow,
	}))

	_, err := fixture.service.Check(context.Background(), 3, 21, dto.CheckRequest{
		Boiler: "green", GasStove: "green", Chimney: "green",
	})
	require.NoError(t, err)
	require.Len(t, fixture.apartments.checked, 1)
}

func TestCheckRequiresGroupTutor(t *testing.T) {
	fixture := newReviewFixture(t)

	_, err := fixture.service.Check(context.Background(), 99, 21, dto.CheckRequest{
		Boiler: "green", GasStove: "green", Chimney: "green",
	})
	require.Error(t, err)
	require.Empty(t, fixture.apartments.checked)
}

func TestCheckRejectsUnknownVerdict(t *testing.T) {
	fixture := newReviewFixture(t)

	_, err := fixture.service.Check(context.Background(), 3, 21, dto.CheckRequest{
		Boiler: "blue", GasStove: "green", Chimney: "green",
	})
	require.Error(t, err)
	require.Empty(t, fixture.apartments.checked)
}
