package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-engine/internal/domain"
)

type ResolverService interface {
	Resolve(ctx context.Context, clientID, projectID string, recipientType domain.UserType, skipCache bool) (*domain.ResolutionResult, error)
	ClearRecipientCache(ctx context.Context, clientID string) error
}

type RecipientHandler struct {
	resolver ResolverService
}

func NewRecipientHandler(resolver ResolverService) (*RecipientHandler, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver service is required")
	}
	return &RecipientHandler{resolver: resolver}, nil
}

func RegisterRecipientRoutes(router fiber.Router, resolver ResolverService) error {
	h, err := NewRecipientHandler(resolver)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/recipients/resolve", h.ResolveRecipients)
	v1.Delete("/recipients/cache", h.ClearCache)

	return nil
}

func (h *RecipientHandler) ResolveRecipients(c *fiber.Ctx) error {
	recipientType, err := domain.ParseUserTypeFromString(c.Query("recipientType"))
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.resolver.Resolve(
		c.Context(),
		c.Query("clientId"),
		c.Query("projectId"),
		recipientType,
		c.QueryBool("skipCache", false),
	)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *RecipientHandler) ClearCache(c *fiber.Ctx) error {
	clientID := strings.TrimSpace(c.Query("clientId"))

	if err := h.resolver.ClearRecipientCache(c.Context(), clientID); err != nil {
		return toHTTPError(err)
	}

	scope := "all"
	if clientID != "" {
		scope = clientID
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "cleared",
		"scope":  scope,
	})
}
