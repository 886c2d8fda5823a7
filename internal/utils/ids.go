package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/example/barmen/internal/apperrors"
)

// ParseIDList converts a decoded JSON value into catalog ids. Only an array of
// positive integral numbers is accepted; a missing value is an empty list.
func ParseIDList(field string, raw any) ([]int64, error) {
	if raw == nil {
		return []int64{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, apperrors.NewValidationError(field, "must be an array of ids")
	}
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		n, ok := item.(float64)
		if !ok || n != math.Trunc(n) || n <= 0 || n > 1<<53 {
			return nil, apperrors.NewValidationError(field, "element %d must be a positive integer", i)
		}
		ids = append(ids, int64(n))
	}
	return ids, nil
}

// ParseIDQuery parses a comma separated id list such as "1,2,3". A blank
// value is an empty list, but an empty element ("1,,2" or ",") is rejected.
func ParseIDQuery(field, raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []int64{}, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, apperrors.NewValidationError(field, "element %d is empty", i)
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperrors.NewValidationError(field, "%q is not a positive integer", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseID parses a positive integer path parameter.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(field, "invalid id")
	}
	return id, nil
}
