package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/service"
)

type TokenService interface {
	Register(ctx context.Context, input service.RegisterTokenInput) (*domain.PushToken, error)
	RecordUse(ctx context.Context, token string) error
	Deactivate(ctx context.Context, token string, reason string) error
}

type TokenHandler struct {
	service TokenService
}

func NewTokenHandler(service TokenService) (*TokenHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("token service is required")
	}
	return &TokenHandler{service: service}, nil
}

func RegisterTokenRoutes(router fiber.Router, service TokenService) error {
	h, err := NewTokenHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/tokens", h.RegisterToken)
	v1.Post("/tokens/use", h.RecordTokenUse)
	v1.Delete("/tokens", h.DeactivateToken)

	return nil
}

type registerTokenRequest struct {
	UserID     string `json:"userId"`
	UserType   string `json:"userType"`
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	DeviceID   string `json:"deviceId,omitempty"`
	DeviceName string `json:"deviceName,omitempty"`
}

type tokenUseRequest struct {
	Token string `json:"token"`
}

type deactivateTokenRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason,omitempty"`
}

type tokenResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UserType        string     `json:"userType"`
	Platform        string     `json:"platform"`
	Format          string     `json:"format"`
	IsLegacy        bool       `json:"isLegacy"`
	IsActive        bool       `json:"isActive"`
	IsHealthy       bool       `json:"isHealthy"`
	ValidationScore int        `json:"validationScore"`
	LastHealthCheck *time.Time `json:"lastHealthCheck,omitempty"`
	CreatedAt       time.Time  `json:"createdAt,omitempty"`
}

func (h *TokenHandler) RegisterToken(c *fiber.Ctx) error {
	var req registerTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userType, err := domain.ParseUserTypeFromString(req.UserType)
	if err != nil {
		return toHTTPError(err)
	}
	platform, err := domain.ParsePlatformFromString(req.Platform)
	if err != nil {
		return toHTTPError(err)
	}

	token, err := h.service.Register(c.Context(), service.RegisterTokenInput{
		UserID:     req.UserID,
		UserType:   userType,
		Token:      req.Token,
		Platform:   platform,
		DeviceID:   req.DeviceID,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTokenResponse(token))
}

func (h *TokenHandler) RecordTokenUse(c *fiber.Ctx) error {
	var req tokenUseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.RecordUse(c.Context(), req.Token); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
	})
}

func (h *TokenHandler) DeactivateToken(c *fiber.Ctx) error {
	var req deactivateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Deactivate(c.Context(), req.Token, req.Reason); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "deactivated",
	})
}

func toTokenResponse(t *domain.PushToken) tokenResponse {
	if t == nil {
		return tokenResponse{}
	}

	return tokenResponse{
		ID:              t.ID,
		UserID:          t.UserID,
		UserType:        t.UserType.String(),
		Platform:        t.Platform.String(),
		Format:          t.Format.String(),
		IsLegacy:        t.IsLegacy,
		IsActive:        t.IsActive,
		IsHealthy:       t.IsHealthy,
		ValidationScore: t.ValidationScore,
		LastHealthCheck: t.LastHealthCheck,
		CreatedAt:       t.CreatedAt,
	}
}
