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
	"github.com/lumostories/telemetry-api/internal/repository"
	"github.com/lumostories/telemetry-api/internal/service"
)

type mockSanctionService struct {
	lastUID     string
	lastPayload dto.SanctionApplyRequest
	lastActor   service.Actor
	response    dto.SanctionResponse
	err         error
}

func (m *mockSanctionService) Apply(_ context.Context, uid string, payload dto.SanctionApplyRequest, actor service.Actor) (dto.SanctionResponse, error) {
	m.lastUID = uid
	m.lastPayload = payload
	m.lastActor = actor
	if m.err != nil {
		return dto.SanctionResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSanctionService) Lift(_ context.Context, uid string, actor service.Actor) (dto.SanctionResponse, error) {
	m.lastUID = uid
	m.lastActor = actor
	if m.err != nil {
		return dto.SanctionResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSanctionService) Get(_ context.Context, uid string) (dto.SanctionResponse, error) {
	m.lastUID = uid
	if m.err != nil {
		return dto.SanctionResponse{}, m.err
	}
	return m.response, nil
}

func sanctionApp(svc service.SanctionService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/admin/users", func(c *fiber.Ctx) error {
		c.Locals("user_id", "admin-1")
		c.Locals("user_role", "admin")
		return c.Next()
	})
	handler.NewAdminSanctionHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestSanctionHandlerApply(t *testing.T) {
	svc := &mockSanctionService{response: dto.SanctionResponse{UID: "uid-9", Kind: "ban", Reason: "safety"}}
	app := sanctionApp(svc)

	body, err := json.Marshal(dto.SanctionApplyRequest{Kind: "ban", Reason: "safety", Duration: "7d"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/uid-9/sanction", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, "uid-9", svc.lastUID)
	require.Equal(t, "ban", svc.lastPayload.Kind)
	require.Equal(t, "admin-1", svc.lastActor.ID)

	var response struct {
		Data dto.SanctionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "ban", response.Data.Kind)
}

func TestSanctionHandlerApplyUnknownUser(t *testing.T) {
	svc := &mockSanctionService{err: repository.ErrUserNotFound}
	app := sanctionApp(svc)

	body, err := json.Marshal(dto.SanctionApplyRequest{Kind: "mute", Reason: "spam", Duration: "24h"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/missing/sanction", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSanctionHandlerGetAndLift(t *testing.T) {
	svc := &mockSanctionService{response: dto.SanctionResponse{UID: "uid-9", Kind: "mute"}}
	app := sanctionApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/admin/users/uid-9/sanction", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "uid-9", svc.lastUID)

	svc.response = dto.SanctionResponse{UID: "uid-9", Kind: "none"}
	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/admin/users/uid-9/sanction", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.SanctionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "none", response.Data.Kind)
	require.Equal(t, "admin-1", svc.lastActor.ID)
}
