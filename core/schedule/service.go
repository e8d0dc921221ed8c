package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/enrollment"
)

var (
	ErrNotFound       = errors.New("schedule not found")
	ErrScheduleExists = errors.New("a schedule already exists for this enrollment")
)

var NowFunc = time.Now // mockable

type (
	// Repository implementations set Schedule.Modified on every write
	// and reject a second schedule for an enrollment with ErrScheduleExists.
	Repository interface {
		CreateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
		GetByEnrollment(ctx context.Context, enrollmentID string, exec ...core.DBExecutor) (Schedule, error)
		QuerySchedules(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Schedule, error)
		// UpdateSchedule saves Active & UpgradeDeadline.
		UpdateSchedule(ctx context.Context, sch Schedule, exec ...core.DBExecutor) (Schedule, error)
	}

	Service interface {
		GetForEnrollment(ctx context.Context, enrollmentID string) (Schedule, error)
		Query(ctx context.Context, filter QueryFilter) ([]Schedule, error)
		Deactivate(ctx context.Context, enrollmentID string) (Schedule, error)
		// SyncActive is an enrollment.SaveHook keeping Schedule.Active in line with Enrollment.IsActive.
		SyncActive(ctx context.Context, exec core.DBExecutor, enr enrollment.Enrollment, created bool) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) GetForEnrollment(ctx context.Context, enrollmentID string) (Schedule, error) {
	return svc.repo.GetByEnrollment(ctx, enrollmentID)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Schedule, error) {
	return svc.repo.QuerySchedules(ctx, filter)
}

func (svc *service) Deactivate(ctx context.Context, enrollmentID string) (Schedule, error) {
	return svc.setActive(ctx, enrollmentID, false)
}

func (svc *service) SyncActive(ctx context.Context, exec core.DBExecutor, enr enrollment.Enrollment, created bool) error {
	if created {
		return nil
	}
	_, err := svc.setActive(ctx, enr.ID, enr.IsActive, exec)
	if err == ErrNotFound { // enrolled before schedules existed
		return nil
	}
	return err
}

func (svc *service) setActive(ctx context.Context, enrollmentID string, active bool, exec ...core.DBExecutor) (Schedule, error) {
	sch, err := svc.repo.GetByEnrollment(ctx, enrollmentID, exec...)
	if err != nil {
		return Schedule{}, err
	}
	if sch.Active == active {
		return sch, nil
	}
	sch.Active = active
	return svc.repo.UpdateSchedule(ctx, sch, exec...)
}
