package handler

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/middleware"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// ApartmentHandler manages housing submission endpoints.
type ApartmentHandler struct {
	service   service.ApartmentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewApartmentHandler creates an apartment handler instance.
func NewApartmentHandler(service service.ApartmentService, validator *validator.Validate, logger zerolog.Logger) *ApartmentHandler {
	return &ApartmentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "apartment_handler").Logger(),
	}
}

// RegisterStudent binds the routes available to authenticated students.
func (h *ApartmentHandler) RegisterStudent(router fiber.Router) {
	router.Post("/", h.submit)
	router.Get("/my", h.myApartments)
	router.Patch("/:id", h.update)
}

// RegisterTutor binds the routes available to tutors and faculty admins.
func (h *ApartmentHandler) RegisterTutor(router fiber.Router) {
	router.Get("/", h.byStatus)
	router.Get("/types", h.byType)
	router.Delete("/:id", h.clear)
}

func (h *ApartmentHandler) submit(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	payload := dto.ApartmentCreateRequest{
		Type:        strings.TrimSpace(c.FormValue("type")),
		BoilerTitle: strings.TrimSpace(c.FormValue("boiler_title")),
		Address:     strings.TrimSpace(c.FormValue("address")),
		SubDistrict: strings.TrimSpace(c.FormValue("sub_district")),
		OwnerName:   strings.TrimSpace(c.FormValue("owner_name")),
		OwnerPhone:  strings.TrimSpace(c.FormValue("owner_phone")),
	}

	if raw := c.FormValue("latitude"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid latitude")
		}
		payload.Latitude = parsed
	}
	if raw := c.FormValue("longitude"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid longitude")
		}
		payload.Longitude = parsed
	}

	files := service.SubmitFiles{
		Boiler:   formFileOrNil(c, "boiler"),
		GasStove: formFileOrNil(c, "gas_stove"),
		Chimney:  formFileOrNil(c, "chimney"),
		Addition: formFileOrNil(c, "addition"),
		Contract: formFileOrNil(c, "contract"),
	}

	apartment, err := h.service.Submit(requestContext(c), studentID, payload, files)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "housing submitted", apartment)
}

func (h *ApartmentHandler) myApartments(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	apartments, err := h.service.MyApartments(requestContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "my submissions", apartments)
}

func (h *ApartmentHandler) update(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	apartmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApartmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	apartment, err := h.service.Update(requestContext(c), studentID, apartmentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "housing updated", apartment)
}

func (h *ApartmentHandler) byStatus(c *fiber.Ctx) error {
	status := strings.TrimSpace(c.Query("status"))
	groupCode := strings.TrimSpace(c.Query("group"))
	if status == "" || groupCode == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "status and group are required")
	}

	apartments, err := h.service.ByStatusAndGroup(requestContext(c), status, groupCode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions by status", apartments)
}

func (h *ApartmentHandler) byType(c *fiber.Ctx) error {
	housingType := strings.TrimSpace(c.Query("type"))
	groupCode := strings.TrimSpace(c.Query("group"))
	if housingType == "" || groupCode == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "type and group are required")
	}

	apartments, err := h.service.ByTypeAndGroup(requestContext(c), housingType, groupCode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions by type", apartments)
}

func (h *ApartmentHandler) clear(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}
	if role := userRoleFromContext(c); role != middleware.RoleTutor {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	apartmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Clear(requestContext(c), tutorID, apartmentID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission cleared", fiber.Map{"id": apartmentID})
}

func (h *ApartmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrApartmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "apartment not found")
	case errors.Is(err, service.ErrRoundNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no open review round for your group")
	case errors.Is(err, service.ErrDuplicateSubmission):
		return utils.SendError(c, fiber.StatusConflict, "housing already submitted for this round")
	case errors.Is(err, service.ErrSubmissionLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission already checked")
	case errors.Is(err, service.ErrMissingProof):
		return utils.SendError(c, fiber.StatusBadRequest, "required housing proof missing")
	case errors.Is(err, service.ErrGroupNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, "group is not assigned to you")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("apartment request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func formFileOrNil(c *fiber.Ctx, name string) *multipart.FileHeader {
	file, err := c.FormFile(name)
	if err != nil {
		return nil
	}
	return file
}
