package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// AuthHandler exposes login endpoints for every principal kind.
type AuthHandler struct {
	service   service.AuthService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler creates an auth handler instance.
func NewAuthHandler(service service.AuthService, validator *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the public login routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/student/login", h.studentLogin)
	router.Post("/tutor/login", h.tutorLogin)
	router.Post("/faculty/login", h.facultyAdminLogin)
	router.Post("/admin/login", h.adminLogin)
}

// RegisterProtected binds routes that require an authenticated tutor.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Patch("/tutor/password", h.changeTutorPassword)
}

func (h *AuthHandler) studentLogin(c *fiber.Ctx) error {
	var payload dto.StudentLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.StudentLogin(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) tutorLogin(c *fiber.Ctx) error {
	return h.staffLogin(c, h.service.TutorLogin)
}

func (h *AuthHandler) facultyAdminLogin(c *fiber.Ctx) error {
	return h.staffLogin(c, h.service.FacultyAdminLogin)
}

func (h *AuthHandler) adminLogin(c *fiber.Ctx) error {
	return h.staffLogin(c, h.service.AdminLogin)
}

func (h *AuthHandler) staffLogin(c *fiber.Ctx, login func(ctx context.Context, payload dto.StaffLoginRequest) (dto.LoginResponse, error)) error {
	var payload dto.StaffLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := login(requestContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) changeTutorPassword(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.ChangeTutorPassword(requestContext(c), tutorID, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "password updated", fiber.Map{"id": tutorID})
}

func (h *AuthHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBadCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid login or password")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "student information system unavailable")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("auth request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
