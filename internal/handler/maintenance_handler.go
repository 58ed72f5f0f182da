package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-engine/internal/domain"
)

type MaintenanceService interface {
	RunJob(ctx context.Context, opts domain.MaintenanceOptions) (*domain.MaintenanceJob, error)
	Status() domain.MaintenanceStatus
}

type MaintenanceHandler struct {
	service MaintenanceService
}

func NewMaintenanceHandler(service MaintenanceService) (*MaintenanceHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("maintenance service is required")
	}
	return &MaintenanceHandler{service: service}, nil
}

func RegisterMaintenanceRoutes(router fiber.Router, service MaintenanceService) error {
	h, err := NewMaintenanceHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/maintenance/run", h.RunMaintenance)
	v1.Get("/maintenance/status", h.MaintenanceStatus)

	return nil
}

func (h *MaintenanceHandler) RunMaintenance(c *fiber.Ctx) error {
	var opts domain.MaintenanceOptions
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	job, err := h.service.RunJob(c.Context(), opts)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *MaintenanceHandler) MaintenanceStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.service.Status())
}
