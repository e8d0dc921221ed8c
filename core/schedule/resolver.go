package schedule

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/settings"
)

// Resolver computes the upgrade deadline of enrollments.
type Resolver struct {
	courseRepo  course.Repository
	settingsSvc settings.Service
}

func NewResolver(courseRepo course.Repository, settingsSvc settings.Service) *Resolver {
	return &Resolver{courseRepo: courseRepo, settingsSvc: settingsSvc}
}

// UpgradeDeadline returns the date by which the learner of enr must upgrade to a verified mode, nil when unbounded.
//
// The course end is the deadline, unless the verified mode of the course expires.
// Verified modes already expired when the learner enrolled are ignored.
// When the upgrade deadline configuration is enabled (and the course did not opt out), the deadline is
// brought back to `deadline days` after the learner could first access the course, if that is earlier.
func (r *Resolver) UpgradeDeadline(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (*time.Time, error) {
	ovw, err := r.courseRepo.GetOverview(ctx, enr.CourseID, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "getting course overview")
	}

	deadline := core.UTCPtr(ovw.End)
	mode, err := r.courseRepo.GetActiveVerifiedMode(ctx, enr.CourseID, enr.Created.UTC(), exec...)
	switch errors.Cause(err) {
	case nil:
		if mode.ExpirationDatetime != nil {
			deadline = core.UTCPtr(mode.ExpirationDatetime)
		}
	case course.ErrModeNotFound:
	default:
		return nil, errors.Wrap(err, "getting verified mode")
	}

	globalCfg, err := r.settingsSvc.CurrentUpgradeDeadline(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting upgrade deadline config")
	}
	if !globalCfg.Enabled {
		return deadline, nil
	}
	deadlineDays := globalCfg.DeadlineDays

	courseCfg, err := r.settingsSvc.CurrentCourseUpgradeDeadline(ctx, enr.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting course upgrade deadline config")
	}
	if courseCfg.Enabled {
		if courseCfg.OptOut {
			return deadline, nil
		}
		deadlineDays = courseCfg.DeadlineDays
	}

	availability := enr.Created.UTC()
	if start := ovw.Start.UTC(); !ovw.Start.IsZero() && start.After(availability) {
		availability = start
	}
	userDeadline := availability.AddDate(0, 0, deadlineDays)

	if deadline == nil || userDeadline.Before(*deadline) {
		return &userDeadline, nil
	}
	return deadline, nil
}
