package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnhub/admin-plane/pkg/errs"
)

// parseTime accepts a date or an RFC 3339 timestamp.
func parseTime(name, value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errs.Validation(name, "format",
			name+" must be a date (2006-01-02) or an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

// timeRange reads startDate/endDate, defaulting to the last defaultDays
// days ending now.
func timeRange(c *gin.Context, defaultDays int) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -defaultDays)
	to := now

	if v := c.Query("startDate"); v != "" {
		t, err := parseTime("startDate", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if v := c.Query("endDate"); v != "" {
		t, err := parseTime("endDate", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// A bare date as the end of a range means the end of that day.
		if len(v) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1)
		}
		to = t
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errs.Validation("endDate", "range", "endDate must be after startDate")
	}
	return from, to, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.Validation(name, "format", name+" must be an integer")
	}
	return n, nil
}

func limitQuery(c *gin.Context, fallback int32) (int32, error) {
	n, err := intQuery(c, "limit", int(fallback))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errs.Validation("limit", "min", "limit must not be negative")
	}
	return int32(n), nil
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return errs.Validation("body", "json", "request body is not valid JSON")
	}
	return nil
}
