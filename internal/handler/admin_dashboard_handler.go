package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/repository"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
)

// AdminDashboardHandler exposes the activity summary endpoint.
type AdminDashboardHandler struct {
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewAdminDashboardHandler constructs the handler.
func NewAdminDashboardHandler(dashboard service.DashboardService, logger zerolog.Logger) *AdminDashboardHandler {
	return &AdminDashboardHandler{
		dashboard: dashboard,
		logger:    logger.With().Str("component", "admin_dashboard_handler").Logger(),
	}
}

// Register attaches the summary route to the router group.
func (h *AdminDashboardHandler) Register(router fiber.Router) {
	router.Get("/summary", h.summary)
}

func (h *AdminDashboardHandler) summary(c *fiber.Ctx) error {
	filter, err := queryFilterFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// An unbounded request defaults to the trailing seven days rather than
	// failing; explicit partial bounds still fail in the service.
	if filter.From == nil && filter.To == nil {
		now := time.Now().UTC()
		start := now.AddDate(0, 0, -6)
		filter.From = &repository.LocalDate{Year: start.Year(), Month: int(start.Month()), Day: start.Day()}
		filter.To = &repository.LocalDate{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
	}

	summary, err := h.dashboard.Summary(c.UserContext(), filter)
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to build activity summary")
		}
		return sendServiceError(c, err, "failed to build activity summary")
	}

	return utils.SendSuccess(c, "activity summary", summary)
}
