package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tutordesk/backend/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50
)

type pageRequest struct {
	page  int
	limit int
}

// readPage reads ?page= and ?limit=, falling back to the first page of
// defaultPageLimit rows. limit is capped at maxPageLimit.
func readPage(c *fiber.Ctx) pageRequest {
	req := pageRequest{
		page:  parsePositiveInt(c.Query("page"), 1),
		limit: parsePositiveInt(c.Query("limit"), defaultPageLimit),
	}
	if req.limit > maxPageLimit {
		req.limit = maxPageLimit
	}
	return req
}

func (p pageRequest) offset() int {
	return (p.page - 1) * p.limit
}

func (p pageRequest) meta(total int) models.PaginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.limit - 1) / p.limit
	}
	return models.PaginationMeta{
		Page:       p.page,
		Limit:      p.limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
