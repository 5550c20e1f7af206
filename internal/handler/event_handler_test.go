package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lumostories/telemetry-api/internal/dto"
	"github.com/lumostories/telemetry-api/internal/handler"
	"github.com/lumostories/telemetry-api/internal/service"
)

type mockLogService struct {
	lastRaw  service.RawEvent
	response dto.LogEventResponse
	err      error
	status   service.SinkStatus
	enabled  bool
}

func (m *mockLogService) Record(_ context.Context, raw service.RawEvent) (dto.LogEventResponse, error) {
	m.lastRaw = raw
	if m.err != nil {
		return dto.LogEventResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockLogService) Status() service.SinkStatus { return m.status }

func (m *mockLogService) Enable(_ context.Context) error {
	m.enabled = true
	return nil
}

func eventApp(svc service.LogService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/events", func(c *fiber.Ctx) error {
		c.Locals("user_id", "uid-42")
		return c.Next()
	})
	handler.NewEventHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestEventHandlerRecordsEvent(t *testing.T) {
	svc := &mockLogService{response: dto.LogEventResponse{WriteStatus: "written"}}
	app := eventApp(svc)

	payload := dto.LogEventRequest{
		Type:   "story",
		Action: "story start",
		Result: "success",
		Params: []string{"story-1"},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var response struct {
		Success bool                 `json:"success"`
		Data    dto.LogEventResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "written", response.Data.WriteStatus)

	require.Equal(t, "uid-42", svc.lastRaw.ActorID)
	// Only the first forwarding hop identifies the caller.
	require.Equal(t, "203.0.113.9", svc.lastRaw.ClientIP)
	require.Equal(t, "story start", svc.lastRaw.Action)
}

func TestEventHandlerErrorFieldBecomesFailure(t *testing.T) {
	svc := &mockLogService{response: dto.LogEventResponse{WriteStatus: "written"}}
	app := eventApp(svc)

	body, err := json.Marshal(dto.LogEventRequest{Type: "story", Action: "story step", Error: "model timeout"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	require.NotNil(t, svc.lastRaw.Err)
	require.Equal(t, "model timeout", svc.lastRaw.Err.Error())
}

func TestEventHandlerRejectsBadBody(t *testing.T) {
	svc := &mockLogService{}
	app := eventApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader([]byte("{not-json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
