package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

// parsePagination reads page and limit, falling back to defaults for missing
// or non-positive values and capping limit at maxPageLimit.
func parsePagination(c *fiber.Ctx) (page, limit int) {
	page = parsePositiveInt(c.Query("page"), 1)
	limit = min(parsePositiveInt(c.Query("limit"), defaultPageLimit), maxPageLimit)
	return page, limit
}

func buildPaginationMeta(page, limit, total int) models.PaginationMeta {
	meta := models.PaginationMeta{Page: page, Limit: limit, Total: total}
	if total > 0 && limit > 0 {
		meta.TotalPages = (total + limit - 1) / limit
	}
	return meta
}
