package settings

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/trezcool/ratiba/core"
)

var ErrNotFound = errors.New("configuration not found")

const (
	upgradeDeadlineKey       = "upgrade_deadline"
	courseUpgradeDeadlineKey = "course_upgrade_deadline:"
	refundKey                = "refund"
)

var NowFunc = time.Now // mockable

type (
	// Repository stores the history of every configuration: saves append, reads return the newest row.
	Repository interface {
		GetLatestUpgradeDeadline(ctx context.Context, exec ...core.DBExecutor) (UpgradeDeadlineConfig, error)
		CreateUpgradeDeadline(ctx context.Context, cfg UpgradeDeadlineConfig, exec ...core.DBExecutor) (UpgradeDeadlineConfig, error)
		GetLatestCourseUpgradeDeadline(ctx context.Context, courseID string, exec ...core.DBExecutor) (CourseUpgradeDeadlineConfig, error)
		CreateCourseUpgradeDeadline(ctx context.Context, cfg CourseUpgradeDeadlineConfig, exec ...core.DBExecutor) (CourseUpgradeDeadlineConfig, error)
		GetLatestRefund(ctx context.Context, exec ...core.DBExecutor) (RefundConfig, error)
		CreateRefund(ctx context.Context, cfg RefundConfig, exec ...core.DBExecutor) (RefundConfig, error)
	}

	Service interface {
		CurrentUpgradeDeadline(ctx context.Context) (UpgradeDeadlineConfig, error)
		CurrentCourseUpgradeDeadline(ctx context.Context, courseID string) (CourseUpgradeDeadlineConfig, error)
		CurrentRefund(ctx context.Context) (RefundConfig, error)
		SaveUpgradeDeadline(ctx context.Context, uud UpdateUpgradeDeadline) (UpgradeDeadlineConfig, error)
		SaveCourseUpgradeDeadline(ctx context.Context, courseID string, uud UpdateUpgradeDeadline) (CourseUpgradeDeadlineConfig, error)
		SaveRefund(ctx context.Context, ur UpdateRefund) (RefundConfig, error)
		ClearCache()
	}

	service struct {
		repo  Repository
		cache *cache.Cache
	}
)

var _ Service = (*service)(nil)

// NewService returns a Service caching current configurations for ttl.
// A zero ttl disables expiration: values live until saved over or ClearCache is called.
func NewService(repo Repository, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &service{
		repo:  repo,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (svc *service) CurrentUpgradeDeadline(ctx context.Context) (UpgradeDeadlineConfig, error) {
	if cfg, ok := svc.cache.Get(upgradeDeadlineKey); ok {
		return cfg.(UpgradeDeadlineConfig), nil
	}
	cfg, err := svc.repo.GetLatestUpgradeDeadline(ctx)
	switch err {
	case nil:
	case ErrNotFound:
		cfg = defaultUpgradeDeadline()
	default:
		return UpgradeDeadlineConfig{}, err
	}
	svc.cache.SetDefault(upgradeDeadlineKey, cfg)
	return cfg, nil
}

func (svc *service) CurrentCourseUpgradeDeadline(ctx context.Context, courseID string) (CourseUpgradeDeadlineConfig, error) {
	key := courseUpgradeDeadlineKey + courseID
	if cfg, ok := svc.cache.Get(key); ok {
		return cfg.(CourseUpgradeDeadlineConfig), nil
	}
	cfg, err := svc.repo.GetLatestCourseUpgradeDeadline(ctx, courseID)
	switch err {
	case nil:
	case ErrNotFound:
		cfg = defaultCourseUpgradeDeadline(courseID)
	default:
		return CourseUpgradeDeadlineConfig{}, err
	}
	svc.cache.SetDefault(key, cfg)
	return cfg, nil
}

func (svc *service) CurrentRefund(ctx context.Context) (RefundConfig, error) {
	if cfg, ok := svc.cache.Get(refundKey); ok {
		return cfg.(RefundConfig), nil
	}
	cfg, err := svc.repo.GetLatestRefund(ctx)
	switch err {
	case nil:
	case ErrNotFound:
		cfg = defaultRefund()
	default:
		return RefundConfig{}, err
	}
	svc.cache.SetDefault(refundKey, cfg)
	return cfg, nil
}

func (svc *service) SaveUpgradeDeadline(ctx context.Context, uud UpdateUpgradeDeadline) (UpgradeDeadlineConfig, error) {
	cfg, err := svc.repo.CreateUpgradeDeadline(ctx, UpgradeDeadlineConfig{
		Enabled:      uud.Enabled,
		DeadlineDays: uud.DeadlineDays,
		ChangeDate:   NowFunc().UTC(),
	})
	if err != nil {
		return UpgradeDeadlineConfig{}, err
	}
	svc.cache.Delete(upgradeDeadlineKey)
	return cfg, nil
}

func (svc *service) SaveCourseUpgradeDeadline(
	ctx context.Context,
	courseID string,
	uud UpdateUpgradeDeadline,
) (CourseUpgradeDeadlineConfig, error) {
	cfg, err := svc.repo.CreateCourseUpgradeDeadline(ctx, CourseUpgradeDeadlineConfig{
		CourseID:     courseID,
		Enabled:      uud.Enabled,
		OptOut:       uud.OptOut,
		DeadlineDays: uud.DeadlineDays,
		ChangeDate:   NowFunc().UTC(),
	})
	if err != nil {
		return CourseUpgradeDeadlineConfig{}, err
	}
	svc.cache.Delete(courseUpgradeDeadlineKey + courseID)
	return cfg, nil
}

func (svc *service) SaveRefund(ctx context.Context, ur UpdateRefund) (RefundConfig, error) {
	cfg, err := svc.repo.CreateRefund(ctx, RefundConfig{
		RefundWindow: time.Duration(ur.RefundWindowDays) * 24 * time.Hour,
		ChangeDate:   NowFunc().UTC(),
	})
	if err != nil {
		return RefundConfig{}, err
	}
	svc.cache.Delete(refundKey)
	return cfg, nil
}

func (svc *service) ClearCache() {
	svc.cache.Flush()
}
