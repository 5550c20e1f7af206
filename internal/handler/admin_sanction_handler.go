package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
)

// AdminSanctionHandler exposes user sanction endpoints.
type AdminSanctionHandler struct {
	sanctions service.SanctionService
	logger    zerolog.Logger
}

// NewAdminSanctionHandler constructs the handler.
func NewAdminSanctionHandler(sanctions service.SanctionService, logger zerolog.Logger) *AdminSanctionHandler {
	return &AdminSanctionHandler{
		sanctions: sanctions,
		logger:    logger.With().Str("component", "admin_sanction_handler").Logger(),
	}
}

// Register attaches sanction routes to the router group.
func (h *AdminSanctionHandler) Register(router fiber.Router) {
	router.Get("/:uid/sanction", h.get)
	router.Put("/:uid/sanction", h.apply)
	router.Delete("/:uid/sanction", h.lift)
}

func (h *AdminSanctionHandler) get(c *fiber.Ctx) error {
	uid := strings.TrimSpace(c.Params("uid"))
	if uid == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "uid is required")
	}

	state, err := h.sanctions.Get(c.UserContext(), uid)
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to read sanction state")
		}
		return sendServiceError(c, err, "failed to read sanction state")
	}

	return utils.SendSuccess(c, "sanction state", state)
}

func (h *AdminSanctionHandler) apply(c *fiber.Ctx) error {
	uid := strings.TrimSpace(c.Params("uid"))
	if uid == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "uid is required")
	}

	var payload dto.SanctionApplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	state, err := h.sanctions.Apply(c.UserContext(), uid, payload, actorFromContext(c))
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to apply sanction")
		}
		return sendServiceError(c, err, "failed to apply sanction")
	}

	return utils.SendSuccess(c, "sanction applied", state)
}

func (h *AdminSanctionHandler) lift(c *fiber.Ctx) error {
	uid := strings.TrimSpace(c.Params("uid"))
	if uid == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "uid is required")
	}

	state, err := h.sanctions.Lift(c.UserContext(), uid, actorFromContext(c))
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to lift sanction")
		}
		return sendServiceError(c, err, "failed to lift sanction")
	}

	return utils.SendSuccess(c, "sanction lifted", state)
}
