package inmemdb

import (
	"context"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/settings"
)

type settingsRepository struct {
	db *DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db}
}

// Rows are appended in change order: the latest is the last one.

func (repo *settingsRepository) GetLatestUpgradeDeadline(_ context.Context, _ ...core.DBExecutor) (settings.UpgradeDeadlineConfig, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n := len(repo.db.upgradeDeadlines); n > 0 {
		return repo.db.upgradeDeadlines[n-1], nil
	}
	return settings.UpgradeDeadlineConfig{}, settings.ErrNotFound
}

func (repo *settingsRepository) CreateUpgradeDeadline(
	_ context.Context,
	cfg settings.UpgradeDeadlineConfig,
	exec ...core.DBExecutor,
) (settings.UpgradeDeadlineConfig, error) {
	defer repo.db.lockWrite(exec)()

	cfg.ID = repo.db.nextID()
	cfg.ChangeDate = cfg.ChangeDate.UTC()
	repo.db.upgradeDeadlines = append(repo.db.upgradeDeadlines, cfg)
	return cfg, nil
}

func (repo *settingsRepository) GetLatestCourseUpgradeDeadline(
	_ context.Context,
	courseID string,
	_ ...core.DBExecutor,
) (settings.CourseUpgradeDeadlineConfig, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for i := len(repo.db.courseUpgradeDeadlines) - 1; i >= 0; i-- {
		if cfg := repo.db.courseUpgradeDeadlines[i]; cfg.CourseID == courseID {
			return cfg, nil
		}
	}
	return settings.CourseUpgradeDeadlineConfig{}, settings.ErrNotFound
}

func (repo *settingsRepository) CreateCourseUpgradeDeadline(
	_ context.Context,
	cfg settings.CourseUpgradeDeadlineConfig,
	exec ...core.DBExecutor,
) (settings.CourseUpgradeDeadlineConfig, error) {
	defer repo.db.lockWrite(exec)()

	cfg.ID = repo.db.nextID()
	cfg.ChangeDate = cfg.ChangeDate.UTC()
	repo.db.courseUpgradeDeadlines = append(repo.db.courseUpgradeDeadlines, cfg)
	return cfg, nil
}

func (repo *settingsRepository) GetLatestRefund(_ context.Context, _ ...core.DBExecutor) (settings.RefundConfig, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n := len(repo.db.refunds); n > 0 {
		return repo.db.refunds[n-1], nil
	}
	return settings.RefundConfig{}, settings.ErrNotFound
}

func (repo *settingsRepository) CreateRefund(_ context.Context, cfg settings.RefundConfig, exec ...core.DBExecutor) (settings.RefundConfig, error) {
	defer repo.db.lockWrite(exec)()

	cfg.ID = repo.db.nextID()
	cfg.ChangeDate = cfg.ChangeDate.UTC()
	repo.db.refunds = append(repo.db.refunds, cfg)
	return cfg, nil
}
