package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/handler"
	"github.com/karsu-its/ijara-api/internal/service"
)

type mockApartmentService struct {
	lastStudentID uint
	lastPayload   dto.ApartmentCreateRequest
	lastFiles     service.SubmitFiles
	clearedID     uint
	response      dto.ApartmentResponse
	err           error
}

func (m *mockApartmentService) Submit(_ context.Context, studentID uint, payload dto.ApartmentCreateRequest, files service.SubmitFiles) (dto.ApartmentResponse, error) {
	m.lastStudentID = studentID
	m.lastPayload = payload
	m.lastFiles = files
	if m.err != nil {
		return dto.ApartmentResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockApartmentService) Update(_ context.Context, studentID, _ uint, _ dto.ApartmentUpdateRequest) (dto.ApartmentResponse, error) {
	m.lastStudentID = studentID
	if m.err != nil {
		return dto.ApartmentResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockApartmentService) MyApartments(_ context.Context, studentID uint) ([]dto.ApartmentResponse, error) {
	m.lastStudentID = studentID
	if m.err != nil {
		return nil, m.err
	}
	return []dto.ApartmentResponse{m.response}, nil
}

func (m *mockApartmentService) ByStatusAndGroup(_ context.Context, _, _ string) ([]dto.ApartmentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []dto.ApartmentResponse{m.response}, nil
}

func (m *mockApartmentService) ByTypeAndGroup(_ context.Context, _, _ string) ([]dto.ApartmentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []dto.ApartmentResponse{m.response}, nil
}

func (m *mockApartmentService) Clear(_ context.Context, _, apartmentID uint) error {
	if m.err != nil {
		return m.err
	}
	m.clearedID = apartmentID
	return nil
}

func newApartmentApp(svc service.ApartmentService, role string) *fiber.App {
	app := fiber.New()
	h := handler.NewApartmentHandler(svc, testHandlerValidator(), zerolog.New(io.Discard))
	group := app.Group("/api/v1/apartments", withUser(7, role))
	h.RegisterStudent(group)
	h.RegisterTutor(group)
	return app
}

func submissionForm(t *testing.T, fields map[string]string, files []string) (*bytes.Buffer, string) {
	t.Helper()

	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, name := range files {
		part, err := writer.CreateFormFile(name, name+".jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return buffer, writer.FormDataContentType()
}

func TestApartmentHandler_SubmitTenant(t *testing.T) {
	svc := &mockApartmentService{response: dto.ApartmentResponse{ID: 21, Type: "tenant"}}
	app := newApartmentApp(svc, "student")

	body, contentType := submissionForm(t, map[string]string{
		"type":         "tenant",
		"boiler_title": "Ariston kotyol",
		"latitude":     "42.4619",
		"longitude":    "59.6166",
		"address":      "Berdaq 41",
		"sub_district": "21 - kichik tuman",
		"owner_name":   "Aman Amanov",
		"owner_phone":  "+998913334455",
	}, []string{"boiler", "gas_stove", "chimney", "contract"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, uint(7), svc.lastStudentID)
	require.Equal(t, "tenant", svc.lastPayload.Type)
	require.Equal(t, "Ariston kotyol", svc.lastPayload.BoilerTitle)
	require.InDelta(t, 42.4619, svc.lastPayload.Latitude, 0.0001)
	require.NotNil(t, svc.lastFiles.Boiler)
	require.NotNil(t, svc.lastFiles.GasStove)
	require.NotNil(t, svc.lastFiles.Chimney)
	require.NotNil(t, svc.lastFiles.Contract)
	require.Nil(t, svc.lastFiles.Addition)
}

func TestApartmentHandler_SubmitDuplicateConflict(t *testing.T) {
	svc := &mockApartmentService{err: service.ErrDuplicateSubmission}
	app := newApartmentApp(svc, "student")

	body, contentType := submissionForm(t, map[string]string{"type": "bedroom"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestApartmentHandler_SubmitWithoutOpenRound(t *testing.T) {
	svc := &mockApartmentService{err: service.ErrRoundNotFound}
	app := newApartmentApp(svc, "student")

	body, contentType := submissionForm(t, map[string]string{"type": "bedroom"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartments/", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestApartmentHandler_ClearRequiresTutorRole(t *testing.T) {
	svc := &mockApartmentService{}
	app := newApartmentApp(svc, "faculty_admin")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/apartments/21", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.clearedID)
}

func TestApartmentHandler_Clear(t *testing.T) {
	svc := &mockApartmentService{}
	app := newApartmentApp(svc, "tutor")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/apartments/21", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(21), svc.clearedID)
}

func TestApartmentHandler_ByStatusRequiresFilters(t *testing.T) {
	svc := &mockApartmentService{}
	app := newApartmentApp(svc, "tutor")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/apartments/?status=green", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
