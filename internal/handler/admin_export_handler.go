package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
)

// AdminExportHandler exposes the activity export endpoint.
type AdminExportHandler struct {
	export service.ExportService
	logger zerolog.Logger
}

// NewAdminExportHandler constructs the handler.
func NewAdminExportHandler(export service.ExportService, logger zerolog.Logger) *AdminExportHandler {
	return &AdminExportHandler{
		export: export,
		logger: logger.With().Str("component", "admin_export_handler").Logger(),
	}
}

// Register attaches the export route to the router group.
func (h *AdminExportHandler) Register(router fiber.Router) {
	router.Post("/export", h.run)
}

func (h *AdminExportHandler) run(c *fiber.Ctx) error {
	var payload dto.ExportRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	filter, err := queryFilterFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.export.Export(c.UserContext(), filter, payload.Target, actorFromContext(c))
	if err != nil {
		if !isValidationError(err) {
			requestLogger(h.logger, c).Error().Err(err).Str("target", payload.Target).Msg("export failed")
		}
		return sendServiceError(c, err, "export failed")
	}

	if result.Response.Target == service.ExportTargetCSV {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.Response.Filename))
		c.Set("X-Export-Rows", strconv.Itoa(result.Response.RowCount))
		c.Set("X-Export-Truncated", strconv.FormatBool(result.Response.Truncated))
		return c.Send(result.Data)
	}

	return utils.SendSuccess(c, "export complete", result.Response)
}
