package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lumostories/telemetry-api/internal/middleware"
	"github.com/lumostories/telemetry-api/internal/repository"
	"github.com/lumostories/telemetry-api/internal/service"
	"github.com/lumostories/telemetry-api/internal/utils"
	"github.com/lumostories/telemetry-api/pkg/sheets"
)

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func uidFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if uid, ok := v.(string); ok {
			return strings.TrimSpace(uid)
		}
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   uidFromContext(c),
		Role: userRoleFromContext(c),
	}
}

// clientIPFromHeaders reads the caller address from forwarding headers set
// by upstream infrastructure. Request bodies never carry it.
func clientIPFromHeaders(c *fiber.Ctx) string {
	if forwarded := strings.TrimSpace(c.Get("X-Forwarded-For")); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	return c.IP()
}

// parseLocalDate parses a yyyy-mm-dd query value into a calendar date.
func parseLocalDate(value string) (*repository.LocalDate, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, err
	}

	return &repository.LocalDate{
		Year:  parsed.Year(),
		Month: int(parsed.Month()),
		Day:   parsed.Day(),
	}, nil
}

// queryFilterFromRequest assembles the shared filter from the query string.
// The explorer, summary, and export endpoints all parse identically.
func queryFilterFromRequest(c *fiber.Ctx) (service.QueryFilter, error) {
	filter := service.QueryFilter{
		Types:   splitAndTrim(c.Query("type")),
		Actions: splitAndTrim(c.Query("action")),
		Results: splitAndTrim(c.Query("result")),
		Search:  c.Query("search"),
	}

	from, err := parseLocalDate(c.Query("from"))
	if err != nil {
		return service.QueryFilter{}, errors.New("invalid from date, expected yyyy-mm-dd")
	}
	to, err := parseLocalDate(c.Query("to"))
	if err != nil {
		return service.QueryFilter{}, errors.New("invalid to date, expected yyyy-mm-dd")
	}

	filter.From = from
	filter.To = to
	return filter, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return true
	}
	return service.IsValidationError(err)
}

// sendServiceError maps domain errors onto HTTP statuses. Handlers log
// unexpected failures before calling it; expected rejections pass through
// without log noise.
func sendServiceError(c *fiber.Ctx, err error, fallback string) error {
	if isValidationError(err) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var indexErr *repository.IndexRequiredError
	if errors.As(err, &indexErr) {
		return utils.SendErrorWithDetail(c, fiber.StatusBadRequest, "unsupported filter combination", indexErr.Error())
	}

	var rangeErr *service.RangeTooWideError
	if errors.As(err, &rangeErr) {
		return utils.SendError(c, fiber.StatusUnprocessableEntity, rangeErr.Error())
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, sheets.ErrPermissionDenied):
		return utils.SendError(c, fiber.StatusForbidden, "spreadsheet access denied")
	case errors.Is(err, sheets.ErrQuotaExceeded):
		return utils.SendError(c, fiber.StatusTooManyRequests, "spreadsheet quota exceeded, retry later")
	case errors.Is(err, service.ErrStoreUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "log store unavailable")
	}

	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
