package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) GetOverview(_ context.Context, courseID string, _ ...core.DBExecutor) (course.Overview, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ovw, ok := repo.db.courses[courseID]; ok {
		return ovw, nil
	}
	return course.Overview{}, course.ErrNotFound
}

func (repo *courseRepository) UpsertOverview(_ context.Context, ovw course.Overview, exec ...core.DBExecutor) (course.Overview, error) {
	defer repo.db.lockWrite(exec)()

	if !ovw.Start.IsZero() {
		ovw.Start = ovw.Start.UTC()
	}
	ovw.End = core.UTCPtr(ovw.End)
	ovw.Modified = ovw.Modified.UTC()
	repo.db.courses[ovw.ID] = ovw
	return ovw, nil
}

func (repo *courseRepository) GetVerifiedMode(ctx context.Context, courseID string, exec ...core.DBExecutor) (course.Mode, error) {
	return repo.verifiedMode(ctx, courseID, nil)
}

func (repo *courseRepository) GetActiveVerifiedMode(
	ctx context.Context,
	courseID string,
	at time.Time,
	_ ...core.DBExecutor,
) (course.Mode, error) {
	return repo.verifiedMode(ctx, courseID, &at)
}

// verifiedMode skips the modes expired at `at`, when set.
func (repo *courseRepository) verifiedMode(ctx context.Context, courseID string, at *time.Time) (course.Mode, error) {
	for _, slug := range course.VerifiedModes {
		mode, err := repo.GetMode(ctx, courseID, slug)
		if err != nil {
			continue
		}
		if at != nil && mode.ExpirationDatetime != nil && mode.ExpirationDatetime.Before(*at) {
			continue
		}
		return mode, nil
	}
	return course.Mode{}, course.ErrModeNotFound
}

func (repo *courseRepository) GetMode(_ context.Context, courseID, slug string, _ ...core.DBExecutor) (course.Mode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, mode := range repo.db.modes {
		if mode.CourseID == courseID && mode.Slug == slug {
			return mode, nil
		}
	}
	return course.Mode{}, course.ErrModeNotFound
}

func (repo *courseRepository) QueryModes(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Mode, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	modes := make([]course.Mode, 0)
	for _, mode := range repo.db.modes {
		if mode.CourseID == courseID {
			modes = append(modes, mode)
		}
	}
	sort.Slice(modes, func(i, j int) bool {
		if modes[i].MinPrice != modes[j].MinPrice {
			return modes[i].MinPrice < modes[j].MinPrice
		}
		return modes[i].Slug < modes[j].Slug
	})
	return modes, nil
}

func (repo *courseRepository) UpsertMode(_ context.Context, mode course.Mode, exec ...core.DBExecutor) (course.Mode, error) {
	defer repo.db.lockWrite(exec)()

	if _, ok := repo.db.courses[mode.CourseID]; !ok {
		return course.Mode{}, course.ErrNotFound
	}
	mode.ID = ""
	for id, m := range repo.db.modes {
		if m.CourseID == mode.CourseID && m.Slug == mode.Slug {
			mode.ID = id
			break
		}
	}
	if mode.ID == "" {
		mode.ID = uuid.NewString()
	}
	mode.ExpirationDatetime = core.UTCPtr(mode.ExpirationDatetime)
	repo.db.modes[mode.ID] = mode
	return mode, nil
}
