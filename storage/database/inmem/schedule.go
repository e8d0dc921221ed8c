package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	defer repo.db.lockWrite(exec)()

	if _, exists := repo.db.scheduleByEnrollment[sch.EnrollmentID]; exists {
		return schedule.Schedule{}, schedule.ErrScheduleExists
	}
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	sch.Start = sch.Start.UTC()
	sch.UpgradeDeadline = core.UTCPtr(sch.UpgradeDeadline)
	sch.Modified = schedule.NowFunc().UTC()
	repo.db.schedules[sch.ID] = sch
	repo.db.scheduleByEnrollment[sch.EnrollmentID] = sch.ID
	return sch, nil
}

func (repo *scheduleRepository) GetByEnrollment(_ context.Context, enrollmentID string, _ ...core.DBExecutor) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if id, ok := repo.db.scheduleByEnrollment[enrollmentID]; ok {
		return repo.db.schedules[id], nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context, filter schedule.QueryFilter, _ ...core.DBExecutor) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schedules := make([]schedule.Schedule, 0)
	for _, sch := range repo.db.schedules {
		if filter.Match(sch) {
			schedules = append(schedules, sch)
		}
	}
	// upgrade_deadline NULLS LAST, start, id
	sort.Slice(schedules, func(i, j int) bool {
		di, dj := schedules[i].UpgradeDeadline, schedules[j].UpgradeDeadline
		switch {
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		}
		if !schedules[i].Start.Equal(schedules[j].Start) {
			return schedules[i].Start.Before(schedules[j].Start)
		}
		return schedules[i].ID < schedules[j].ID
	})
	return schedules, nil
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	defer repo.db.lockWrite(exec)()

	existing, ok := repo.db.schedules[sch.ID]
	if !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	existing.Active = sch.Active
	existing.UpgradeDeadline = core.UTCPtr(sch.UpgradeDeadline)
	existing.Modified = schedule.NowFunc().UTC()
	repo.db.schedules[sch.ID] = existing
	return existing, nil
}
