package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// PermissionHandler manages review round endpoints.
type PermissionHandler struct {
	service   service.PermissionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPermissionHandler creates a permission handler instance.
func NewPermissionHandler(service service.PermissionService, validator *validator.Validate, logger zerolog.Logger) *PermissionHandler {
	return &PermissionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "permission_handler").Logger(),
	}
}

// RegisterTutor binds the routes available to tutors.
func (h *PermissionHandler) RegisterTutor(router fiber.Router) {
	router.Post("/", h.startRound)
	router.Get("/", h.myRounds)
	router.Get("/groups", h.roundGroups)
	router.Get("/groups/:code", h.roundGroupDetail)
	router.Post("/resubmit/:studentID", h.requestResubmission)
}

// RegisterStudent binds the routes available to students.
func (h *PermissionHandler) RegisterStudent(router fiber.Router) {
	router.Get("/active", h.activeRound)
}

func (h *PermissionHandler) startRound(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	round, err := h.service.StartRound(requestContext(c), tutorID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "review round started", round)
}

func (h *PermissionHandler) myRounds(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	rounds, err := h.service.MyRounds(requestContext(c), tutorID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "review rounds", rounds)
}

func (h *PermissionHandler) roundGroups(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	groups, err := h.service.RoundGroups(requestContext(c), tutorID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "round groups", groups)
}

func (h *PermissionHandler) roundGroupDetail(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	groupCode := c.Params("code")
	if groupCode == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "group code required")
	}

	detail, err := h.service.RoundGroupDetail(requestContext(c), tutorID, groupCode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "round group detail", detail)
}

func (h *PermissionHandler) requestResubmission(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RequestResubmission(requestContext(c), tutorID, studentID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "resubmission requested", fiber.Map{"student_id": studentID})
}

func (h *PermissionHandler) activeRound(c *fiber.Ctx) error {
	studentID := userIDFromContext(c)
	if studentID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	round, err := h.service.ActiveRoundForStudent(requestContext(c), studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "active round", round)
}

func (h *PermissionHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRoundNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "review round not found")
	case errors.Is(err, service.ErrGroupNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, "group is not assigned to you")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("permission request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
