package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/middleware"
	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// SyncHandler triggers and reports roster synchronization.
type SyncHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewSyncHandler creates a sync handler instance.
func NewSyncHandler(service service.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register binds the sync routes. The group must already be protected by
// admin role middleware.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("/run", h.run)
	router.Get("/status", h.status)
	router.Get("/faculties", h.faculties)
}

func (h *SyncHandler) run(c *fiber.Ctx) error {
	// The pull outlives the request, so it runs on a detached context
	// that only keeps the correlation id.
	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	logger := requestLogger(h.logger, c)

	go func() {
		if err := h.service.Run(ctx); err != nil {
			if errors.Is(err, service.ErrSyncAlreadyRunning) {
				logger.Info().Msg("roster sync already running")
				return
			}
			logger.Error().Err(err).Msg("roster sync failed")
		}
	}()

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "roster sync started", fiber.Map{"status": "accepted"})
}

func (h *SyncHandler) status(c *fiber.Ctx) error {
	status, err := h.service.Status(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("sync status request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "sync status", status)
}

func (h *SyncHandler) faculties(c *fiber.Ctx) error {
	faculties, err := h.service.Faculties(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("faculty list request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "faculties", faculties)
}
