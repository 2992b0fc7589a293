package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/models"
)

// proofImage builds an in-memory multipart file carrying a PNG header so
// the mimetype sniff accepts it.
func proofImage(t *testing.T, field string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, field+".png")
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

// contractPDF builds an in-memory multipart file carrying a PDF header.
func contractPDF(t *testing.T, field string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, field+".pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4\n%stub\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

type fakeUploader struct {
	uploads int
}

func (f *fakeUploader) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	f.uploads++
	return "https://cdn.example/" + name, nil
}

type fakePush struct {
	sent []string
}

func (f *fakePush) Send(ctx context.Context, token, title, body string) error {
	f.sent = append(f.sent, token)
	return nil
}

type apartmentFixture struct {
	apartments  *fakeApartmentRepo
	permissions *fakePermissionRepo
	students    *fakeStudentRepo
	notes       *fakeNotificationRepo
	tutors      *fakeTutorRepo
	push        *fakePush
	announcer   *fakeAnnouncer
	service     ApartmentService
}

func newApartmentFixture(t *testing.T) *apartmentFixture {
	t.Helper()

	fixture := &apartmentFixture{
		apartments: newFakeApartmentRepo(),
		permissions: newFakePermissionRepo(models.Permission{
			ID:      11,
			TutorID: 3,
			Status:  models.PermissionProcess,
		}),
		students: newFakeStudentRepo(models.Student{
			ID:        7,
			FullName:  "Aliyev Vali",
			GroupCode: "101",
		}),
		notes: &fakeNotificationRepo{},
		tutors: newFakeTutorRepo(models.Tutor{
			ID:       3,
			FCMToken: "fcm-token",
			Groups:   []models.GroupRef{{Code: "101", Name: "MT-21"}},
		}),
		push:      &fakePush{},
		announcer: &fakeAnnouncer{},
	}

	fixture.service = NewApartmentService(
		fixture.apartments,
		fixture.permissions,
		fixture.students,
		fixture.notes,
		fixture.tutors,
		&fakeUploader{},
		fixture.push,
		fixture.announcer,
		testValidator(),
		testLogger(),
	)

	return fixture
}

func TestSubmitTenantWithoutPhotos(t *testing.T) {
	fixture := newApartmentFixture(t)

	_, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:      "tenant",
		Latitude:  42.46,
		Longitude: 59.61,
	}, SubmitFiles{})
	require.ErrorIs(t, err, ErrMissingProof)
}

func TestSubmitTenantQueuedForReview(t *testing.T) {
	fixture := newApartmentFixture(t)
	require.NoError(t, fixture.notes.Create(context.Background(), &models.Notification{
		StudentID: 7,
		TutorID:   3,
		Color:     models.NotificationRed,
		Title:     "Qayta topshiring",
	}))

	resp, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:        "tenant",
		BoilerTitle: "Ariston",
		Latitude:    42.46,
		Longitude:   59.61,
		Address:     "Nukus sh., Doslik 14",
	}, SubmitFiles{
		Boiler:   proofImage(t, "boiler"),
		GasStove: proofImage(t, "gas_stove"),
		Chimney:  proofImage(t, "chimney"),
	})
	require.NoError(t, err)
	require.Equal(t, string(models.ComplianceBeingChecked), resp.Status)

	colors := fixture.notes.colorsFor(7)
	require.Equal(t, []models.NotificationColor{models.NotificationBlue}, colors)
	require.Equal(t, 1, fixture.announcer.count())
}

func TestSubmitRelativeHouseAutoGreen(t *testing.T) {
	fixture := newApartmentFixture(t)

	resp, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:       "relativeHouse",
		OwnerName:  "Aliyev Karim",
		OwnerPhone: "+998901234567",
	}, SubmitFiles{})
	require.NoError(t, err)
	require.Equal(t, string(models.ComplianceGreen), resp.Status)

	colors := fixture.notes.colorsFor(7)
	require.Equal(t, []models.NotificationColor{models.NotificationGreen}, colors)
	require.Equal(t, 1, fixture.announcer.count())
	require.Empty(t, fixture.push.sent)
}

func TestSubmitRelativeHouseWithoutOwnerInfo(t *testing.T) {
	fixture := newApartmentFixture(t)

	_, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type: "relativeHouse",
	}, SubmitFiles{})
	require.ErrorIs(t, err, ErrMissingProof)
}

func TestSubmitBedroomNotifiesTutor(t *testing.T) {
	fixture := newApartmentFixture(t)

	resp, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:          "bedroom",
		BedroomNumber: "4",
		RoomNumber:    "212",
	}, SubmitFiles{})
	require.NoError(t, err)
	require.Equal(t, string(models.ComplianceGreen), resp.Status)

	tutorNotes, err := fixture.notes.ListByTutor(context.Background(), 3, 50, 0)
	require.NoError(t, err)
	require.Len(t, tutorNotes, 1)
	require.Equal(t, uint(7), tutorNotes[0].StudentID)
	require.Equal(t, []string{"fcm-token"}, fixture.push.sent)

	mirrors, err := fixture.notes.ListByStudent(context.Background(), 7, models.NotificationPush, 50, 0)
	require.NoError(t, err)
	require.Len(t, mirrors, 1)
	require.Equal(t, "Tabriklaymiz", mirrors[0].Title)
}

func TestSubmitTwicePerRound(t *testing.T) {
	fixture := newApartmentFixture(t)

	payload := dto.ApartmentCreateRequest{
		Type:       "relativeHouse",
		OwnerName:  "Aliyev Karim",
		OwnerPhone: "+998901234567",
	}

	_, err := fixture.service.Submit(context.Background(), 7, payload, SubmitFiles{})
	require.NoError(t, err)

	_, err = fixture.service.Submit(context.Background(), 7, payload, SubmitFiles{})
	require.ErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmitAgainAfterResubmitRequest(t *testing.T) {
	fixture := newApartmentFixture(t)
	rounds := NewPermissionService(
		fixture.permissions,
		fixture.students,
		fixture.apartments,
		fixture.notes,
		fixture.tutors,
		fixture.announcer,
		testLogger(),
	)

	payload := dto.ApartmentCreateRequest{
		Type:       "relativeHouse",
		OwnerName:  "Aliyev Karim",
		OwnerPhone: "+998901234567",
	}

	first, err := fixture.service.Submit(context.Background(), 7, payload, SubmitFiles{})
	require.NoError(t, err)

	_, err = fixture.service.Submit(context.Background(), 7, payload, SubmitFiles{})
	require.ErrorIs(t, err, ErrDuplicateSubmission)

	require.NoError(t, rounds.RequestResubmission(context.Background(), 3, 7))

	second, err := fixture.service.Submit(context.Background(), 7, payload, SubmitFiles{})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	retired := fixture.apartments.apartments[first.ID]
	require.False(t, retired.Current)
	require.True(t, retired.NeedNew)

	current, err := fixture.apartments.GetByPermissionAndStudent(context.Background(), 11, 7)
	require.NoError(t, err)
	require.Equal(t, second.ID, current.ID)
}

func TestSubmitTenantWithPDFContract(t *testing.T) {
	fixture := newApartmentFixture(t)

	resp, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:      "tenant",
		Latitude:  42.46,
		Longitude: 59.61,
	}, SubmitFiles{
		Boiler:   proofImage(t, "boiler"),
		GasStove: proofImage(t, "gas_stove"),
		Chimney:  proofImage(t, "chimney"),
		Contract: contractPDF(t, "contract"),
	})
	require.NoError(t, err)
	require.True(t, resp.Contract)
	require.NotEmpty(t, resp.ContractImage)
}

func TestSubmitTenantRejectsPDFProof(t *testing.T) {
	fixture := newApartmentFixture(t)

	_, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:      "tenant",
		Latitude:  42.46,
		Longitude: 59.61,
	}, SubmitFiles{
		Boiler:   contractPDF(t, "boiler"),
		GasStove: proofImage(t, "gas_stove"),
		Chimney:  proofImage(t, "chimney"),
	})
	require.ErrorIs(t, err, ErrMissingProof)
}

func TestSubmitWithoutOpenRound(t *testing.T) {
	fixture := newApartmentFixture(t)
	fixture.permissions.permissions[11] = models.Permission{
		ID:      11,
		TutorID: 3,
		Status:  models.PermissionFinished,
	}

	_, err := fixture.service.Submit(context.Background(), 7, dto.ApartmentCreateRequest{
		Type:       "relativeHouse",
		OwnerName:  "Aliyev Karim",
		OwnerPhone: "+998901234567",
	}, SubmitFiles{})
	require.ErrorIs(t, err, ErrRoundNotFound)
}

func TestUpdateLockedAfterCheck(t *testing.T) {
	fixture := newApartmentFixture(t)
	fixture.apartments.apartments[21] = models.Apartment{
		ID:        21,
		StudentID: 7,
		Type:      models.ApartmentTenant,
		Status:    models.ComplianceYellow,
	}

	address := "Yangi manzil"
	_, err := fixture.service.Update(context.Background(), 7, 21, dto.ApartmentUpdateRequest{Address: &address})
	require.ErrorIs(t, err, ErrSubmissionLocked)
}

func TestUpdateOwnedByOtherStudent(t *testing.T) {
	fixture := newApartmentFixture(t)
	fixture.apartments.apartments[21] = models.Apartment{
		ID:        21,
		StudentID: 99,
		Type:      models.ApartmentTenant,
		Status:    models.ComplianceBeingChecked,
	}

	address := "Yangi manzil"
	_, err := fixture.service.Update(context.Background(), 7, 21, dto.ApartmentUpdateRequest{Address: &address})
	require.ErrorIs(t, err, ErrApartmentNotFound)
}

func TestClearRequiresGroupTutor(t *testing.T) {
	fixture := newApartmentFixture(t)
	fixture.apartments.apartments[21] = models.Apartment{
		ID:        21,
		StudentID: 7,
		GroupCode: "999",
	}

	err := fixture.service.Clear(context.Background(), 3, 21)
	require.ErrorIs(t, err, ErrGroupNotAssigned)

	fixture.apartments.apartments[22] = models.Apartment{
		ID:        22,
		StudentID: 7,
		GroupCode: "101",
	}
	require.NoError(t, fixture.service.Clear(context.Background(), 3, 22))

	_, err = fixture.apartments.GetByID(context.Background(), 22)
	require.Error(t, err)
}
