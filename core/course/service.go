package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
)

var (
	ErrNotFound     = errors.New("course not found")
	ErrModeNotFound = errors.New("course mode not found")
)

type (
	Repository interface {
		GetOverview(ctx context.Context, courseID string, exec ...core.DBExecutor) (Overview, error)
		UpsertOverview(ctx context.Context, ovw Overview, exec ...core.DBExecutor) (Overview, error)
		// GetVerifiedMode returns the first mode of courseID in VerifiedModes, or ErrModeNotFound.
		GetVerifiedMode(ctx context.Context, courseID string, exec ...core.DBExecutor) (Mode, error)
		// GetActiveVerifiedMode is GetVerifiedMode ignoring the modes expired at `at`.
		GetActiveVerifiedMode(ctx context.Context, courseID string, at time.Time, exec ...core.DBExecutor) (Mode, error)
		GetMode(ctx context.Context, courseID, slug string, exec ...core.DBExecutor) (Mode, error)
		QueryModes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Mode, error)
		UpsertMode(ctx context.Context, mode Mode, exec ...core.DBExecutor) (Mode, error)
	}

	Service interface {
		GetOverview(ctx context.Context, courseID string) (Overview, error)
		SaveOverview(ctx context.Context, no NewOverview) (Overview, error)
		GetVerifiedMode(ctx context.Context, courseID string) (Mode, error)
		GetMode(ctx context.Context, courseID, slug string) (Mode, error)
		QueryModes(ctx context.Context, courseID string) ([]Mode, error)
		// SaveMode creates or updates the mode identified by (courseID, nm.Slug).
		SaveMode(ctx context.Context, courseID string, nm NewMode) (Mode, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) GetOverview(ctx context.Context, courseID string) (Overview, error) {
	return svc.repo.GetOverview(ctx, courseID)
}

func (svc *service) SaveOverview(ctx context.Context, no NewOverview) (Overview, error) {
	ovw := Overview{
		ID:          no.ID,
		DisplayName: no.DisplayName,
		Start:       no.Start.UTC(),
		End:         core.UTCPtr(no.End),
		Modified:    time.Now().UTC(),
	}
	return svc.repo.UpsertOverview(ctx, ovw)
}

func (svc *service) GetVerifiedMode(ctx context.Context, courseID string) (Mode, error) {
	return svc.repo.GetVerifiedMode(ctx, courseID)
}

func (svc *service) GetMode(ctx context.Context, courseID, slug string) (Mode, error) {
	return svc.repo.GetMode(ctx, courseID, slug)
}

func (svc *service) QueryModes(ctx context.Context, courseID string) ([]Mode, error) {
	if _, err := svc.repo.GetOverview(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryModes(ctx, courseID)
}

func (svc *service) SaveMode(ctx context.Context, courseID string, nm NewMode) (Mode, error) {
	if _, err := svc.repo.GetOverview(ctx, courseID); err != nil {
		return Mode{}, err
	}
	mode := Mode{
		CourseID:           courseID,
		Slug:               nm.Slug,
		DisplayName:        nm.DisplayName,
		MinPrice:           nm.MinPrice,
		Currency:           nm.Currency,
		ExpirationDatetime: core.UTCPtr(nm.ExpirationDatetime),
	}
	return svc.repo.UpsertMode(ctx, mode)
}
