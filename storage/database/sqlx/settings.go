package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/settings"
)

type upgradeDeadlineRow struct {
	ID           int64     `db:"id"`
	Enabled      bool      `db:"enabled"`
	DeadlineDays int       `db:"deadline_days"`
	ChangeDate   time.Time `db:"change_date"`
}

type courseUpgradeDeadlineRow struct {
	ID           int64     `db:"id"`
	CourseID     string    `db:"course_id"`
	Enabled      bool      `db:"enabled"`
	OptOut       bool      `db:"opt_out"`
	DeadlineDays int       `db:"deadline_days"`
	ChangeDate   time.Time `db:"change_date"`
}

type refundRow struct {
	ID               int64     `db:"id"`
	RefundWindowSecs int64     `db:"refund_window_secs"`
	ChangeDate       time.Time `db:"change_date"`
}

type settingsRepository struct {
	baseRepository
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(exec core.DBExecutor) settings.Repository {
	return &settingsRepository{baseRepository{exec: exec}}
}

func (repo settingsRepository) GetLatestUpgradeDeadline(ctx context.Context, exec ...core.DBExecutor) (settings.UpgradeDeadlineConfig, error) {
	var row upgradeDeadlineRow
	q := `SELECT id, enabled, deadline_days, change_date FROM upgrade_deadline_config
		ORDER BY change_date DESC, id DESC LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q); err != nil {
		if isNoRows(err) {
			return settings.UpgradeDeadlineConfig{}, settings.ErrNotFound
		}
		return settings.UpgradeDeadlineConfig{}, errors.Wrap(err, "selecting upgrade deadline config")
	}
	cfg := settings.UpgradeDeadlineConfig(row)
	cfg.ChangeDate = cfg.ChangeDate.UTC()
	return cfg, nil
}

func (repo settingsRepository) CreateUpgradeDeadline(
	ctx context.Context,
	cfg settings.UpgradeDeadlineConfig,
	exec ...core.DBExecutor,
) (settings.UpgradeDeadlineConfig, error) {
	q := `INSERT INTO upgrade_deadline_config (enabled, deadline_days, change_date) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.getExec(exec).GetContext(ctx, &cfg.ID, q, cfg.Enabled, cfg.DeadlineDays, cfg.ChangeDate.UTC()); err != nil {
		return settings.UpgradeDeadlineConfig{}, errors.Wrap(err, "inserting upgrade deadline config")
	}
	return cfg, nil
}

func (repo settingsRepository) GetLatestCourseUpgradeDeadline(
	ctx context.Context,
	courseID string,
	exec ...core.DBExecutor,
) (settings.CourseUpgradeDeadlineConfig, error) {
	var row courseUpgradeDeadlineRow
	q := `SELECT id, course_id, enabled, opt_out, deadline_days, change_date FROM course_upgrade_deadline_config
		WHERE course_id = $1 ORDER BY change_date DESC, id DESC LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, courseID); err != nil {
		if isNoRows(err) {
			return settings.CourseUpgradeDeadlineConfig{}, settings.ErrNotFound
		}
		return settings.CourseUpgradeDeadlineConfig{}, errors.Wrap(err, "selecting course upgrade deadline config")
	}
	cfg := settings.CourseUpgradeDeadlineConfig(row)
	cfg.ChangeDate = cfg.ChangeDate.UTC()
	return cfg, nil
}

func (repo settingsRepository) CreateCourseUpgradeDeadline(
	ctx context.Context,
	cfg settings.CourseUpgradeDeadlineConfig,
	exec ...core.DBExecutor,
) (settings.CourseUpgradeDeadlineConfig, error) {
	q := `INSERT INTO course_upgrade_deadline_config (course_id, enabled, opt_out, deadline_days, change_date)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := repo.getExec(exec).GetContext(
		ctx, &cfg.ID, q,
		cfg.CourseID, cfg.Enabled, cfg.OptOut, cfg.DeadlineDays, cfg.ChangeDate.UTC(),
	)
	if err != nil {
		return settings.CourseUpgradeDeadlineConfig{}, errors.Wrap(err, "inserting course upgrade deadline config")
	}
	return cfg, nil
}

func (repo settingsRepository) GetLatestRefund(ctx context.Context, exec ...core.DBExecutor) (settings.RefundConfig, error) {
	var row refundRow
	q := `SELECT id, refund_window_secs, change_date FROM refund_config ORDER BY change_date DESC, id DESC LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q); err != nil {
		if isNoRows(err) {
			return settings.RefundConfig{}, settings.ErrNotFound
		}
		return settings.RefundConfig{}, errors.Wrap(err, "selecting refund config")
	}
	return settings.RefundConfig{
		ID:           row.ID,
		RefundWindow: time.Duration(row.RefundWindowSecs) * time.Second,
		ChangeDate:   row.ChangeDate.UTC(),
	}, nil
}

func (repo settingsRepository) CreateRefund(ctx context.Context, cfg settings.RefundConfig, exec ...core.DBExecutor) (settings.RefundConfig, error) {
	q := `INSERT INTO refund_config (refund_window_secs, change_date) VALUES ($1, $2) RETURNING id`
	secs := int64(cfg.RefundWindow / time.Second)
	if err := repo.getExec(exec).GetContext(ctx, &cfg.ID, q, secs, cfg.ChangeDate.UTC()); err != nil {
		return settings.RefundConfig{}, errors.Wrap(err, "inserting refund config")
	}
	return cfg, nil
}
