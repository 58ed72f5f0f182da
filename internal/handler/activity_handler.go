package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-engine/internal/domain"
)

type ActivityService interface {
	Ingest(ctx context.Context, activity *domain.Activity, correlationID string) (string, error)
}

type ActivityHandler struct {
	service ActivityService
}

func NewActivityHandler(service ActivityService) (*ActivityHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("activity service is required")
	}
	return &ActivityHandler{service: service}, nil
}

func RegisterActivityRoutes(router fiber.Router, service ActivityService) error {
	h, err := NewActivityHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/activities", h.CreateActivity)

	return nil
}

type createActivityRequest struct {
	Kind            string              `json:"kind"`
	ClientID        string              `json:"clientId"`
	ProjectID       string              `json:"projectId,omitempty"`
	SourceClientID  string              `json:"sourceClientId,omitempty"`
	SourceProjectID string              `json:"sourceProjectId,omitempty"`
	User            domain.ActivityUser `json:"user"`
	Materials       []string            `json:"materials,omitempty"`
	Description     string              `json:"description,omitempty"`
	Message         string              `json:"message,omitempty"`
}

func (h *ActivityHandler) CreateActivity(c *fiber.Ctx) error {
	var req createActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseActivityKindFromString(req.Kind)
	if err != nil {
		return toHTTPError(err)
	}

	activity := domain.Activity{
		Kind:            kind,
		ClientID:        req.ClientID,
		ProjectID:       req.ProjectID,
		SourceClientID:  req.SourceClientID,
		SourceProjectID: req.SourceProjectID,
		User:            req.User,
		Materials:       req.Materials,
		Description:     req.Description,
		Message:         req.Message,
	}

	activityID, err := h.service.Ingest(c.Context(), &activity, requestCorrelationID(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"activityId": activityID,
		"status":     "accepted",
	})
}
