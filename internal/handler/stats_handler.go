package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/karsu-its/ijara-api/internal/service"
	"github.com/karsu-its/ijara-api/internal/utils"
)

// StatsHandler exposes compliance statistics to staff dashboards.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler creates a stats handler instance.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register binds the statistics routes.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/faculties", h.facultyFill)
	router.Get("/groups", h.groupFill)
	router.Get("/status", h.statusBreakdown)
	router.Get("/boilers", h.boilerBuckets)
	router.Get("/subdistricts", h.subDistrictBuckets)
	router.Get("/gender", h.genderCounts)
	router.Get("/map", h.mapPoints)
	router.Get("/dashboard", h.dashboard)
}

func (h *StatsHandler) facultyFill(c *fiber.Ctx) error {
	rows, err := h.service.FacultyFill(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "faculty fill rates", rows)
}

func (h *StatsHandler) groupFill(c *fiber.Ctx) error {
	faculty := strings.TrimSpace(c.Query("faculty"))
	if faculty == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "faculty is required")
	}

	rows, err := h.service.GroupFill(requestContext(c), faculty)
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "group fill rates", rows)
}

func (h *StatsHandler) statusBreakdown(c *fiber.Ctx) error {
	groupCodes := splitAndTrim(c.Query("groups"))

	breakdown, err := h.service.StatusBreakdown(requestContext(c), groupCodes)
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "status breakdown", breakdown)
}

func (h *StatsHandler) boilerBuckets(c *fiber.Ctx) error {
	rows, err := h.service.BoilerBuckets(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "heating breakdown", rows)
}

func (h *StatsHandler) subDistrictBuckets(c *fiber.Ctx) error {
	rows, err := h.service.SubDistrictBuckets(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "sub-district breakdown", rows)
}

func (h *StatsHandler) genderCounts(c *fiber.Ctx) error {
	counts, err := h.service.GenderCounts(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "gender breakdown", counts)
}

func (h *StatsHandler) mapPoints(c *fiber.Ctx) error {
	points, err := h.service.MapPoints(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "housing map", points)
}

func (h *StatsHandler) dashboard(c *fiber.Ctx) error {
	summary, err := h.service.Dashboard(requestContext(c))
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "dashboard summary", summary)
}

func (h *StatsHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("stats request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
