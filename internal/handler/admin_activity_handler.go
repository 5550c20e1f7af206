package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
)

// AdminActivityHandler exposes the activity explorer and sink control
// endpoints.
type AdminActivityHandler struct {
	query  service.ActivityQueryService
	log    service.LogService
	logger zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(query service.ActivityQueryService, log service.LogService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		query:  query,
		log:    log,
		logger: logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity explorer routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/status", h.status)
	router.Post("/enable", h.enable)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	filter, err := queryFilterFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	page, err := h.query.Page(c.UserContext(), filter, c.Query("cursor"), pageSize)
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to page activity log")
		}
		return sendServiceError(c, err, "failed to list activity")
	}

	items := make([]dto.LogEntryResponse, 0, len(page.Entries))
	for _, entry := range page.Entries {
		items = append(items, dto.NewLogEntryResponse(entry))
	}

	return utils.SendSuccess(c, "activity page", dto.ActivityPageResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

func (h *AdminActivityHandler) status(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "sink status", h.log.Status())
}

func (h *AdminActivityHandler) enable(c *fiber.Ctx) error {
	if err := h.log.Enable(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("sink re-enable probe failed")
		return utils.SendErrorWithDetail(c, fiber.StatusServiceUnavailable, "log store still unavailable", err.Error())
	}

	return utils.SendSuccess(c, "activity logging enabled", h.log.Status())
}
