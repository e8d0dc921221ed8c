package schedule

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/enrollment"
)

// Recorder creates the Schedule of every new enrollment.
type Recorder struct {
	repo     Repository
	resolver *Resolver
}

func NewRecorder(repo Repository, resolver *Resolver) *Recorder {
	return &Recorder{repo: repo, resolver: resolver}
}

var _ enrollment.SaveHook = (*Recorder)(nil).Record

// Record is an enrollment.SaveHook. Updates are ignored.
// The schedule is written with exec, so it lives and dies with the enrollment insert.
// A second schedule for the same enrollment fails with ErrScheduleExists.
func (rec *Recorder) Record(ctx context.Context, exec core.DBExecutor, enr enrollment.Enrollment, created bool) error {
	if !created {
		return nil
	}

	deadline, err := rec.resolver.UpgradeDeadline(ctx, enr, exec)
	if err != nil {
		return errors.Wrap(err, "resolving upgrade deadline")
	}

	now := NowFunc().UTC()
	sch := Schedule{
		EnrollmentID:    enr.ID,
		Active:          true,
		Start:           now,
		UpgradeDeadline: deadline,
		Modified:        now,
	}
	if _, err = rec.repo.CreateSchedule(ctx, sch, exec); err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return nil
}
