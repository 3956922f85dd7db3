package server

import (
	"strconv"
	"strings"
	"time"
)

func parsePageSize(raw string) (int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || parsed < 0 {
		return 0, newValidationError("page_size", "invalid_page_size", "invalid page size")
	}
	if parsed > 250 {
		parsed = 250
	}
	return int32(parsed), nil
}

func parseTimeParam(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, "invalid time value")
	}
	return &parsed, nil
}
