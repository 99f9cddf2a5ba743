package handlers

import (
	"errors"
	"strconv"
)

const maxPageLimit = 100

var errInvalidPagination = errors.New("page and limit must be positive integers")

// parsePaginationParams returns zero page and limit when neither is given, which
// lists the whole catalog.
func parsePaginationParams(pageStr, limitStr string) (int64, int64, error) {
	if pageStr == "" && limitStr == "" {
		return 0, 0, nil
	}

	page := int64(1)
	limit := int64(20)

	if pageStr != "" {
		p, err := strconv.ParseInt(pageStr, 10, 64)
		if err != nil || p < 1 {
			return 0, 0, errInvalidPagination
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || l < 1 {
			return 0, 0, errInvalidPagination
		}
		limit = min(l, maxPageLimit)
	}

	return page, limit, nil
}
