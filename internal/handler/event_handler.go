package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
)

// EventHandler accepts activity events from authenticated producers.
type EventHandler struct {
	service service.LogService
	logger  zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(svc service.LogService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		logger:  logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the ingest route to the router group.
func (h *EventHandler) Register(router fiber.Router) {
	router.Post("", h.record)
}

func (h *EventHandler) record(c *fiber.Ctx) error {
	var payload dto.LogEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	raw := service.RawEvent{
		Type:     payload.Type,
		Action:   payload.Action,
		Result:   payload.Result,
		ActorID:  uidFromContext(c),
		ClientIP: clientIPFromHeaders(c),
		Params:   payload.Params,
		Metadata: payload.Metadata,
	}
	if payload.Error != "" {
		raw.Err = errors.New(payload.Error)
	}

	response, err := h.service.Record(c.UserContext(), raw)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to record event")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to record event")
	}

	// The write status is reported, never escalated: a disabled or failed
	// sink must not break the producer's primary flow.
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "event processed", response)
}
