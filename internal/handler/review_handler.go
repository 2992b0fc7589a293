package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/dto"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// ReviewHandler records tutor verdicts on housing submissions.
type ReviewHandler struct {
	service   service.ReviewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewHandler creates a review handler instance.
func NewReviewHandler(service service.ReviewService, validator *validator.Validate, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register binds the review routes. The group must already be protected
// by tutor role middleware.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Post("/:id/check", h.check)
}

func (h *ReviewHandler) check(c *fiber.Ctx) error {
	tutorID := userIDFromContext(c)
	if tutorID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	apartmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CheckRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	apartment, err := h.service.Check(requestContext(c), tutorID, apartmentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission checked", apartment)
}

func (h *ReviewHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrApartmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "apartment not found")
	case errors.Is(err, service.ErrResubmitOutstanding):
		return utils.SendError(c, fiber.StatusConflict, "student has an outstanding fix request")
	case errors.Is(err, service.ErrGroupNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, "group is not assigned to you")
	case errors.Is(err, service.ErrSubmissionLocked):
		return utils.SendError(c, fiber.StatusConflict, "submission already checked")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("review request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
