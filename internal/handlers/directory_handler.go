package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
)

type directoryService interface {
	ListCoaches(ctx context.Context, filter services.DirectoryFilter) ([]models.ResolvedProfile, int, error)
	ListTeams(ctx context.Context, filter services.DirectoryFilter) ([]models.ResolvedProfile, int, error)
	ListLeagues(ctx context.Context, filter services.DirectoryFilter) ([]models.ResolvedProfile, int, error)
}

type directoryListFunc func(ctx context.Context, filter services.DirectoryFilter) ([]models.ResolvedProfile, int, error)

type DirectoryHandler struct {
	service directoryService
}

func NewDirectoryHandler(service directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

func (h *DirectoryHandler) ListCoaches(c *fiber.Ctx) error {
	return h.list(c, "coaches", h.service.ListCoaches)
}

func (h *DirectoryHandler) ListTeams(c *fiber.Ctx) error {
	return h.list(c, "teams", h.service.ListTeams)
}

func (h *DirectoryHandler) ListLeagues(c *fiber.Ctx) error {
	return h.list(c, "leagues", h.service.ListLeagues)
}

func (h *DirectoryHandler) list(c *fiber.Ctx, key string, fetch directoryListFunc) error {
	page, limit := parsePagination(c)

	entries, total, err := fetch(c.Context(), services.DirectoryFilter{
		Sports:    parseListQuery(c, "sports"),
		Skills:    parseListQuery(c, "skills"),
		AgeGroups: parseListQuery(c, "age_groups"),
		TeamTypes: parseListQuery(c, "team_types"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch " + key})
	}

	return c.JSON(fiber.Map{
		key:          entries,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}
