package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// StudentHandler serves roster profiles.
type StudentHandler struct {
	service   service.StudentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentHandler creates a student handler instance.
func NewStudentHandler(service service.StudentService, validator *validator.Validate, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "student_handler").Logger(),
	}
}

// RegisterStudent binds the self-service profile routes.
func (h *StudentHandler) RegisterStudent(router fiber.Router) {
	router.Get("/me", h.profile)
	router.Patch("/me", h.updateProfile)
}

// RegisterStaff binds roster lookups for tutors and faculty admins.
func (h *StudentHandler) RegisterStaff(router fiber.Router) {
	router.Get("/search", h.search)
	router.Get("/group/:code", h.listByGroup)
}

func (h *StudentHandler) profile(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	student, err := h.service.Profile(requestContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "student profile", student)
}

func (h *StudentHandler) updateProfile(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.StudentProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := h.service.UpdateProfile(requestContext(c), studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "profile updated", student)
}

func (h *StudentHandler) search(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "name is required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	students, err := h.service.Search(requestContext(c), name, limit)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "students", students)
}

func (h *StudentHandler) listByGroup(c *fiber.Ctx) error {
	groupCode := c.Params("code")
	if groupCode == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "group code required")
	}

	students, err := h.service.ListByGroup(requestContext(c), groupCode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "group students", students)
}

func (h *StudentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("student request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
