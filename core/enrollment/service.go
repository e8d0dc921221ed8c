package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
	"github.com/trezcool/ratiba/core/commerce"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
)

var (
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")

	errModeUnavailable = "this mode is not available for the course"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string, exec ...core.DBExecutor) (Enrollment, error)
		GetUserEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Enrollment, error)
		// UpdateEnrollment saves Mode, IsActive & CanRefund.
		UpdateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		CreateAttribute(ctx context.Context, enrollmentID string, attr Attribute, exec ...core.DBExecutor) (Attribute, error)
	}

	// SaveHook is notified of every enrollment save, inside the saving transaction.
	// created is true on first insert only. Returning an error rolls the save back.
	SaveHook func(ctx context.Context, exec core.DBExecutor, enr Enrollment, created bool) error

	Service interface {
		// RegisterSaveHook adds hook to the hooks run on every save, in registration order.
		RegisterSaveHook(hook SaveHook)
		Enroll(ctx context.Context, ne NewEnrollment) (enr Enrollment, created bool, err error)
		Unenroll(ctx context.Context, id string) (Enrollment, error)
		Get(ctx context.Context, id string) (Enrollment, error)
		QueryForUser(ctx context.Context, userID string, activeOnly bool) ([]Enrollment, error)
		Query(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
		AddAttribute(ctx context.Context, id string, attr Attribute) (Enrollment, error)
		RefundCutoffDate(ctx context.Context, enr Enrollment) (*time.Time, error)
		// Refundable tells whether enr can still be refunded.
		// certCourseIDs, when given, is the set of the courses the learner holds a downloadable certificate in.
		Refundable(ctx context.Context, enr Enrollment, certCourseIDs ...map[string]bool) (bool, error)
		RefundStatus(ctx context.Context, enr Enrollment, certCourseIDs ...map[string]bool) (RefundStatus, error)
	}

	Deps struct {
		Repo        Repository
		CourseRepo  course.Repository
		CertRepo    certificate.Repository
		UserRepo    user.Repository
		SettingsSvc settings.Service
		Orders      commerce.OrdersClient
		Tx          core.Transactor
		Logger      core.Logger
	}

	service struct {
		Deps
		hooks []SaveHook
	}
)

var _ Service = (*service)(nil)

func NewService(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger
	}
	return &service{Deps: deps}
}

func (svc *service) RegisterSaveHook(hook SaveHook) {
	svc.hooks = append(svc.hooks, hook)
}

func (svc *service) runHooks(ctx context.Context, exec core.DBExecutor, enr Enrollment, created bool) error {
	for _, hook := range svc.hooks {
		if err := hook(ctx, exec, enr, created); err != nil {
			return err
		}
	}
	return nil
}

func (svc *service) Enroll(ctx context.Context, ne NewEnrollment) (enr Enrollment, created bool, err error) {
	err = svc.Tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.UserRepo.GetUser(ctx, user.GetFilter{ID: ne.UserID}, exec); err != nil {
			return errors.Wrap(err, "getting user")
		}
		if _, err := svc.CourseRepo.GetOverview(ctx, ne.CourseID, exec); err != nil {
			return errors.Wrap(err, "getting course")
		}
		if err := svc.checkModeAvailable(ctx, ne.CourseID, ne.Mode, exec); err != nil {
			return err
		}

		existing, err := svc.Repo.GetUserEnrollment(ctx, ne.UserID, ne.CourseID, exec)
		switch errors.Cause(err) {
		case nil:
			if existing.IsActive && existing.Mode == ne.Mode {
				return ErrAlreadyEnrolled
			}
			existing.IsActive = true
			existing.Mode = ne.Mode
			if enr, err = svc.Repo.UpdateEnrollment(ctx, existing, exec); err != nil {
				return errors.Wrap(err, "updating enrollment")
			}
		case ErrNotFound:
			created = true
			enr, err = svc.Repo.CreateEnrollment(ctx, Enrollment{
				UserID:   ne.UserID,
				CourseID: ne.CourseID,
				Mode:     ne.Mode,
				IsActive: true,
				Created:  NowFunc().UTC(),
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating enrollment")
			}
		default:
			return errors.Wrap(err, "getting user enrollment")
		}

		return svc.runHooks(ctx, exec, enr, created)
	})
	if err != nil {
		return Enrollment{}, false, err
	}
	return enr, created, nil
}

// checkModeAvailable makes sure courseID offers mode. Audit & honor are always offered.
func (svc *service) checkModeAvailable(ctx context.Context, courseID, mode string, exec core.DBExecutor) error {
	if mode == course.ModeAudit || mode == course.ModeHonor {
		return nil
	}
	_, err := svc.CourseRepo.GetMode(ctx, courseID, mode, exec)
	switch errors.Cause(err) {
	case nil:
		return nil
	case course.ErrModeNotFound:
		return core.NewFieldError("mode", errModeUnavailable)
	default:
		return errors.Wrap(err, "getting course mode")
	}
}

func (svc *service) Unenroll(ctx context.Context, id string) (enr Enrollment, err error) {
	err = svc.Tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if enr, err = svc.Repo.GetEnrollment(ctx, id, exec); err != nil {
			return err
		}
		if !enr.IsActive {
			return nil
		}
		enr.IsActive = false
		if enr, err = svc.Repo.UpdateEnrollment(ctx, enr, exec); err != nil {
			return errors.Wrap(err, "updating enrollment")
		}
		return svc.runHooks(ctx, exec, enr, false)
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *service) Get(ctx context.Context, id string) (Enrollment, error) {
	return svc.Repo.GetEnrollment(ctx, id)
}

func (svc *service) QueryForUser(ctx context.Context, userID string, activeOnly bool) ([]Enrollment, error) {
	filter := QueryFilter{UserID: userID}
	if activeOnly {
		active := true
		filter.IsActive = &active
	}
	return svc.Repo.QueryEnrollments(ctx, filter)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Enrollment, error) {
	return svc.Repo.QueryEnrollments(ctx, filter)
}

func (svc *service) AddAttribute(ctx context.Context, id string, attr Attribute) (enr Enrollment, err error) {
	err = svc.Tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.Repo.GetEnrollment(ctx, id, exec); err != nil {
			return err
		}
		if _, err := svc.Repo.CreateAttribute(ctx, id, attr, exec); err != nil {
			return errors.Wrap(err, "creating attribute")
		}
		enr, err = svc.Repo.GetEnrollment(ctx, id, exec)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}
