package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
)

type profileService interface {
	Get(ctx context.Context, id string) (*models.ResolvedProfile, error)
	UpdateProfile(ctx context.Context, viewer services.Viewer, patch services.ProfilePatch) (*models.ResolvedProfile, error)
}

type ProfileHandler struct {
	service profileService
}

func NewProfileHandler(service profileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type updateProfileRequest struct {
	FirstName *string          `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string          `json:"last_name" validate:"omitempty,max=100"`
	Profile   *models.Document `json:"profile"`
}

func (h *ProfileHandler) GetOwnProfile(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.service.Get(c.Context(), viewer.ID)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}
	if req.FirstName == nil && req.LastName == nil && req.Profile.Len() == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No fields to update"})
	}

	profile, err := h.service.UpdateProfile(c.Context(), viewer, services.ProfilePatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Profile:   req.Profile,
	})
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid profile id"})
	}

	profile, err := h.service.Get(c.Context(), id)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func mapProfileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process profile request"})
	}
}
