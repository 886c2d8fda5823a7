package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Catalog listing page sizes. A limit above MaxLimit is clamped to it so a
// single request cannot pull the whole cocktail or ingredient table.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination holds the page window of a catalog listing.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads the page and limit query params. Missing or invalid
// values fall back to page 1 and DefaultLimit.
func ParsePagination(c *fiber.Ctx) Pagination {
	return NewPagination(c.Query("page"), c.Query("limit"))
}

// NewPagination builds a Pagination from raw page and limit values.
func NewPagination(rawPage, rawLimit string) Pagination {
	page := parseInt(rawPage, 1)
	if page <= 0 {
		page = 1
	}
	limit := parseInt(rawLimit, DefaultLimit)
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
