package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

const scheduleColumns = `id, enrollment_id, active, start, upgrade_deadline, modified`

type scheduleRow struct {
	ID              string    `db:"id"`
	EnrollmentID    string    `db:"enrollment_id"`
	Active          bool      `db:"active"`
	Start           time.Time `db:"start"`
	UpgradeDeadline null.Time `db:"upgrade_deadline"`
	Modified        time.Time `db:"modified"`
}

func toScheduleRow(sch schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:              sch.ID,
		EnrollmentID:    sch.EnrollmentID,
		Active:          sch.Active,
		Start:           sch.Start.UTC(),
		UpgradeDeadline: nullTime(sch.UpgradeDeadline),
		Modified:        sch.Modified.UTC(),
	}
}

func (row scheduleRow) toSchedule() schedule.Schedule {
	return schedule.Schedule{
		ID:              row.ID,
		EnrollmentID:    row.EnrollmentID,
		Active:          row.Active,
		Start:           row.Start.UTC(),
		UpgradeDeadline: timePtr(row.UpgradeDeadline),
		Modified:        row.Modified.UTC(),
	}
}

type scheduleRepository struct {
	baseRepository
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(exec core.DBExecutor) schedule.Repository {
	return &scheduleRepository{baseRepository{exec: exec}}
}

func (repo scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	sch.Modified = schedule.NowFunc().UTC()
	q := `INSERT INTO schedule (` + scheduleColumns + `)
		VALUES (:id, :enrollment_id, :active, :start, :upgrade_deadline, :modified)`
	row := toScheduleRow(sch)
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return schedule.Schedule{}, schedule.ErrScheduleExists
		}
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return row.toSchedule(), nil
}

func (repo scheduleRepository) GetByEnrollment(ctx context.Context, enrollmentID string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if !isUUID(enrollmentID) {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var row scheduleRow
	q := `SELECT ` + scheduleColumns + ` FROM schedule WHERE enrollment_id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, enrollmentID); err != nil {
		if isNoRows(err) {
			return schedule.Schedule{}, schedule.ErrNotFound
		}
		return schedule.Schedule{}, errors.Wrap(err, "selecting schedule")
	}
	return row.toSchedule(), nil
}

func (repo scheduleRepository) QuerySchedules(ctx context.Context, filter schedule.QueryFilter, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	var w where
	if filter.Active != nil {
		w.add("active = $%d", *filter.Active)
	}
	if filter.DeadlineFrom != nil {
		w.add("upgrade_deadline >= $%d", filter.DeadlineFrom.UTC())
	}
	if filter.DeadlineTo != nil {
		w.add("upgrade_deadline < $%d", filter.DeadlineTo.UTC())
	}

	var rows []scheduleRow
	q := `SELECT ` + scheduleColumns + ` FROM schedule` + w.String() + ` ORDER BY upgrade_deadline NULLS LAST, start, id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting schedules")
	}
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.toSchedule())
	}
	return schedules, nil
}

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if !isUUID(sch.ID) {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	sch.Modified = schedule.NowFunc().UTC()
	q := `UPDATE schedule SET active = :active, upgrade_deadline = :upgrade_deadline, modified = :modified WHERE id = :id`
	res, err := repo.getExec(exec).NamedExecContext(ctx, q, toScheduleRow(sch))
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return repo.GetByEnrollment(ctx, sch.EnrollmentID, exec...)
}
