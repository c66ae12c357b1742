package http

import (
	"net/http"
	"strconv"
	"time"

	"lofshare/pkg/config"
	apperrors "lofshare/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractMonth parses an optional ?month=YYYY-MM parameter, defaulting to the
// current calendar month in UTC.
func ExtractMonth(r *http.Request) (time.Time, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid month parameter, must be YYYY-MM: " + s)
	}
	return parsed, nil
}
