package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

const (
	activeParam       = "active"
	deadlineFromParam = "deadline_from"
	deadlineToParam   = "deadline_to"
	userIDParam       = "user_id"

	invalidBoolText = "must be true or false"
	invalidTimeText = "must be an RFC 3339 date-time or a YYYY-MM-DD date"
)

var queryTimeLayouts = []string{time.RFC3339, "2006-01-02"}

// bindActive reads the `active` query param. It is nil when absent.
func bindActive(ctx echo.Context) (*bool, error) {
	val := ctx.QueryParam(activeParam)
	if val == "" {
		return nil, nil
	}
	active, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(activeParam, invalidBoolText)
	}
	return &active, nil
}

func bindTime(ctx echo.Context, param string) (*time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return nil, nil
	}
	for _, layout := range queryTimeLayouts {
		if t, err := time.Parse(layout, val); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, core.NewFieldError(param, invalidTimeText)
}

// bindScheduleFilter reads `active`, `deadline_from` (inclusive) & `deadline_to` (exclusive).
func bindScheduleFilter(ctx echo.Context) (filter schedule.QueryFilter, err error) {
	if filter.Active, err = bindActive(ctx); err != nil {
		return filter, err
	}
	if filter.DeadlineFrom, err = bindTime(ctx, deadlineFromParam); err != nil {
		return filter, err
	}
	if filter.DeadlineTo, err = bindTime(ctx, deadlineToParam); err != nil {
		return filter, err
	}
	return filter, nil
}
